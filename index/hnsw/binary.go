package hnsw

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/vecbench/distance"
	"github.com/hupe1980/vecbench/index"
	"github.com/hupe1980/vecbench/internal/compress"
)

// ErrCorruptGraph is returned by Load for structurally invalid snapshots.
var ErrCorruptGraph = errors.New("hnsw: corrupt graph snapshot")

// graphMeta follows the snapshot header.
type graphMeta struct {
	M              uint32
	EFConstruction uint32
	Entry          uint32
	TopLevel       uint32
	Heuristic      uint8
	Padding        [3]byte
	Seed           uint64
}

// Save writes the graph (not the vectors) as a snapshot.
//
// Body layout after graphMeta, per node in id order:
//
//	[level uint8] then for each layer 0..level: [count uint32][ids uint32...]
func (h *HNSW) Save(w io.Writer) error {
	if h.count == 0 {
		return index.ErrNotBuilt
	}

	hdr := index.NewSnapshotHeader(index.KindHNSW, h.opts.Metric, h.opts.Compression, h.opts.Dimension, h.count)

	return index.WriteSnapshot(w, hdr, func(w io.Writer) error {
		meta := graphMeta{
			M:              uint32(h.opts.M),
			EFConstruction: uint32(h.opts.EFConstruction),
			Entry:          h.entry,
			TopLevel:       uint32(h.topLevel),
			Seed:           h.opts.Seed,
		}
		if h.opts.Heuristic {
			meta.Heuristic = 1
		}
		if err := binary.Write(w, binary.LittleEndian, &meta); err != nil {
			return err
		}

		buf := make([]byte, 0, 4*(h.mmax0+1))
		for id, layers := range h.links {
			buf = append(buf[:0], h.levels[id])
			if _, err := w.Write(buf); err != nil {
				return err
			}
			for _, conns := range layers {
				buf = binary.LittleEndian.AppendUint32(buf[:0], uint32(len(conns)))
				for _, c := range conns {
					buf = binary.LittleEndian.AppendUint32(buf, c)
				}
				if _, err := w.Write(buf); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Load replaces the graph with a snapshot written by Save. Dimension,
// metric and build parameters are taken from the snapshot. On error the
// graph is left unchanged.
func (h *HNSW) Load(r io.Reader) error {
	var loaded *HNSW

	err := index.ReadSnapshot(r, index.KindHNSW, func(hdr index.SnapshotHeader, r io.Reader) error {
		var meta graphMeta
		if err := binary.Read(r, binary.LittleEndian, &meta); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptGraph, err)
		}

		count := int(hdr.Count)
		if count == 0 || hdr.Dimension == 0 || meta.M < minimumM || meta.TopLevel > maxLevel || int(meta.Entry) >= count {
			return fmt.Errorf("%w: invalid metadata", ErrCorruptGraph)
		}

		opts := h.opts
		opts.Dimension = int(hdr.Dimension)
		opts.Metric = distance.Metric(hdr.Metric)
		opts.Compression = compress.Type(hdr.Compression)
		opts.M = int(meta.M)
		opts.EFConstruction = int(meta.EFConstruction)
		opts.Heuristic = meta.Heuristic == 1
		opts.Seed = meta.Seed
		g := &HNSW{}
		if err := g.configure(opts); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptGraph, err)
		}

		levels := make([]uint8, count)
		links := make([][][]uint32, count)

		var word [4]byte
		for id := range count {
			if _, err := io.ReadFull(r, word[:1]); err != nil {
				return fmt.Errorf("%w: node %d: %v", ErrCorruptGraph, id, err)
			}
			lvl := int(word[0])
			if lvl > int(meta.TopLevel) {
				return fmt.Errorf("%w: node %d level %d above top level %d", ErrCorruptGraph, id, lvl, meta.TopLevel)
			}
			levels[id] = word[0]
			links[id] = make([][]uint32, lvl+1)

			for l := range lvl + 1 {
				if _, err := io.ReadFull(r, word[:]); err != nil {
					return fmt.Errorf("%w: node %d: %v", ErrCorruptGraph, id, err)
				}
				n := int(binary.LittleEndian.Uint32(word[:]))
				limit := g.mmax
				if l == 0 {
					limit = g.mmax0
				}
				if n > limit {
					return fmt.Errorf("%w: node %d has %d links on layer %d", ErrCorruptGraph, id, n, l)
				}

				raw := make([]byte, 4*n)
				if _, err := io.ReadFull(r, raw); err != nil {
					return fmt.Errorf("%w: node %d: %v", ErrCorruptGraph, id, err)
				}
				conns := make([]uint32, n)
				for i := range conns {
					c := binary.LittleEndian.Uint32(raw[4*i:])
					if int(c) >= count {
						return fmt.Errorf("%w: node %d links to %d", ErrCorruptGraph, id, c)
					}
					conns[i] = c
				}
				links[id][l] = conns
			}
		}

		if int(levels[meta.Entry]) != int(meta.TopLevel) {
			return fmt.Errorf("%w: entry point below top level", ErrCorruptGraph)
		}

		g.count = count
		g.entry = meta.Entry
		g.topLevel = int(meta.TopLevel)
		g.levels = levels
		g.links = links
		loaded = g
		return nil
	})
	if err != nil {
		return err
	}

	*h = *loaded
	return nil
}
