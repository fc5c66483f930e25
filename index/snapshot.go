package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/hupe1980/vecbench/distance"
	"github.com/hupe1980/vecbench/internal/compress"
)

const (
	// SnapshotMagic identifies vecbench index snapshots (ASCII: "VBX1").
	SnapshotMagic = 0x56425831
	// SnapshotVersion is the current snapshot format version.
	SnapshotVersion = 0x00010000
)

// Snapshot kind tags.
const (
	KindFlat uint8 = 1
	KindHNSW uint8 = 2
)

var (
	ErrInvalidMagic   = errors.New("index: invalid snapshot magic")
	ErrInvalidVersion = errors.New("index: unsupported snapshot version")
	ErrKindMismatch   = errors.New("index: snapshot is of a different kind")
	ErrChecksum       = errors.New("index: snapshot checksum mismatch")
)

// SnapshotHeader is the fixed 32-byte header of every snapshot.
type SnapshotHeader struct {
	Magic       uint32
	Version     uint32
	Kind        uint8
	Metric      uint8
	Compression uint8
	Padding     uint8
	Dimension   uint32
	Count       uint64
	Reserved    [8]byte
}

// NewSnapshotHeader fills the fields every kind writes.
func NewSnapshotHeader(kind uint8, m distance.Metric, c compress.Type, dim, count int) SnapshotHeader {
	return SnapshotHeader{
		Kind:        kind,
		Metric:      uint8(m),
		Compression: uint8(c),
		Dimension:   uint32(dim),
		Count:       uint64(count),
	}
}

// WriteSnapshot writes h followed by the body produced by fn. The body is
// compressed as h.Compression says and followed by its CRC32.
func WriteSnapshot(w io.Writer, h SnapshotHeader, fn func(w io.Writer) error) error {
	h.Magic = SnapshotMagic
	h.Version = SnapshotVersion
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	cw, err := compress.NewWriter(w, compress.Type(h.Compression), 0)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(cw)
	sum := crc32.NewIEEE()

	if err := fn(io.MultiWriter(bw, sum)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, sum.Sum32()); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return cw.Close()
}

// ReadSnapshot reads a snapshot of the given kind and hands the decoded body
// to fn. The checksum is verified after fn returns.
func ReadSnapshot(r io.Reader, kind uint8, fn func(h SnapshotHeader, r io.Reader) error) error {
	var h SnapshotHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("read snapshot header: %w", err)
	}
	if h.Magic != SnapshotMagic {
		return fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != SnapshotVersion {
		return fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, h.Version)
	}
	if h.Kind != kind {
		return fmt.Errorf("%w: got %d, want %d", ErrKindMismatch, h.Kind, kind)
	}

	cr, err := compress.NewReader(r, compress.Type(h.Compression))
	if err != nil {
		return err
	}
	br := bufio.NewReader(cr)
	sum := crc32.NewIEEE()

	if err := fn(h, io.TeeReader(br, sum)); err != nil {
		return err
	}

	return verifyChecksum(br, sum)
}

func verifyChecksum(r io.Reader, sum hash.Hash32) error {
	var stored uint32
	if err := binary.Read(r, binary.LittleEndian, &stored); err != nil {
		return fmt.Errorf("read snapshot checksum: %w", err)
	}
	if got := sum.Sum32(); got != stored {
		return fmt.Errorf("%w: stored 0x%08x, computed 0x%08x", ErrChecksum, stored, got)
	}
	return nil
}
