// Package hnsw implements the Hierarchical Navigable Small World (HNSW) graph for approximate nearest neighbor search.
//
// The graph is built over a caller-owned flat row-major buffer and stores
// only adjacency; snapshots therefore contain the graph but no vectors.
package hnsw

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/hupe1980/vecbench/distance"
	"github.com/hupe1980/vecbench/index"
	"github.com/hupe1980/vecbench/internal/compress"
	"github.com/hupe1980/vecbench/internal/queue"
)

// Kind is the registered kind name.
const Kind = "hnsw"

const (
	// DefaultM is the default number of bidirectional links.
	DefaultM = 16

	// DefaultEFConstruction is the default candidate list size during build.
	DefaultEFConstruction = 200

	// DefaultSeed makes builds reproducible unless overridden.
	DefaultSeed = 42

	// mmax0Multiplier is the multiplier for calculating maximum connections at layer 0.
	mmax0Multiplier = 2

	// minimumM is the minimum valid value for M.
	minimumM = 2

	// maxLevel caps the random level so a node's level fits in a byte.
	maxLevel = 31

	// ctxCheckInterval is how many inserts run between cancellation checks.
	ctxCheckInterval = 1024
)

// Compile-time checks
var (
	_ index.Index    = (*HNSW)(nil)
	_ index.Searcher = (*Searcher)(nil)
)

func init() {
	index.Register(Kind, func(o index.Options) (index.Index, error) {
		return New(func(opts *Options) {
			opts.Dimension = o.Dimension
			opts.Metric = o.Metric
			opts.Compression = o.Compression
			if o.M > 0 {
				opts.M = o.M
			}
			if o.EFConstruction > 0 {
				opts.EFConstruction = o.EFConstruction
			}
			if o.Seed != 0 {
				opts.Seed = o.Seed
			}
		})
	})
}

// Options represents the options for configuring HNSW.
type Options struct {
	Dimension int
	Metric    distance.Metric

	// M is the number of links per node on the upper layers; layer 0 allows
	// twice as many. Higher M helps high intrinsic dimensionality.
	M int

	// EFConstruction is the size of the dynamic candidate list during build.
	EFConstruction int

	// Heuristic selects diverse neighbors instead of the plain closest M.
	Heuristic bool

	// Seed drives level assignment. Equal seeds and inputs give equal graphs.
	Seed uint64

	// Compression applies to saved snapshots.
	Compression compress.Type
}

// DefaultOptions are the options New starts from.
var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	Heuristic:      true,
	Seed:           DefaultSeed,
}

// HNSW represents the Hierarchical Navigable Small World graph.
//
// Build and Load are not safe for concurrent use; a built graph is read-only
// and may back any number of Searchers.
type HNSW struct {
	opts   Options
	distFn distance.Func

	mmax  int     // Max links per node on layers > 0
	mmax0 int     // Max links per node on layer 0
	ml    float64 // Normalization factor for level generation

	count    int
	entry    uint32
	topLevel int
	levels   []uint8
	links    [][][]uint32 // node -> layer -> neighbors

	// data is the buffer the graph was built over; nil after Load.
	data []float32
}

// New creates an empty HNSW graph.
func New(optFns ...func(o *Options)) (*HNSW, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("hnsw: invalid dimension %d", opts.Dimension)
	}
	if opts.M < minimumM {
		opts.M = minimumM
	}
	if opts.EFConstruction < opts.M {
		opts.EFConstruction = opts.M
	}

	h := &HNSW{}
	if err := h.configure(opts); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *HNSW) configure(opts Options) error {
	fn, err := distance.Provider(opts.Metric)
	if err != nil {
		return err
	}
	h.opts = opts
	h.distFn = fn
	h.mmax = opts.M
	h.mmax0 = mmax0Multiplier * opts.M
	h.ml = 1 / math.Log(float64(opts.M))
	return nil
}

// Kind returns "hnsw".
func (h *HNSW) Kind() string { return Kind }

// Dimension returns the vector dimension.
func (h *HNSW) Dimension() int { return h.opts.Dimension }

// Len returns the number of nodes in the graph.
func (h *HNSW) Len() int { return h.count }

// Build constructs the graph over n row-major vectors in data. Nodes are
// inserted in id order, so the result depends only on data and Options.
func (h *HNSW) Build(ctx context.Context, data []float32, n int) error {
	if n == 0 {
		return index.ErrEmptyBuild
	}
	dim := h.opts.Dimension
	if len(data) < n*dim {
		return fmt.Errorf("%w: buffer holds %d floats, need %d", index.ErrCountMismatch, len(data), n*dim)
	}

	rng := rand.New(rand.NewPCG(h.opts.Seed, h.opts.Seed^0x9E3779B97F4A7C15))

	h.data = data[:n*dim]
	h.count = n
	h.levels = make([]uint8, n)
	h.links = make([][][]uint32, n)
	for i := range h.levels {
		h.levels[i] = h.randomLevel(rng)
	}

	h.entry = 0
	h.topLevel = int(h.levels[0])
	h.links[0] = h.newLinks(0)

	sc := newSearchContext(n, h.opts.EFConstruction)
	for i := 1; i < n; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		h.insert(sc, uint32(i))
	}

	return nil
}

func (h *HNSW) randomLevel(rng *rand.Rand) uint8 {
	// 1-Float64 lies in (0, 1], so the logarithm is finite.
	level := int(math.Floor(-math.Log(1-rng.Float64()) * h.ml))
	return uint8(min(level, maxLevel))
}

func (h *HNSW) newLinks(id uint32) [][]uint32 {
	lvl := int(h.levels[id])
	links := make([][]uint32, lvl+1)
	links[0] = make([]uint32, 0, h.mmax0)
	for l := 1; l <= lvl; l++ {
		links[l] = make([]uint32, 0, h.mmax)
	}
	return links
}

func vectorAt(data []float32, dim int, id uint32) []float32 {
	off := int(id) * dim
	return data[off : off+dim]
}

func (h *HNSW) vector(id uint32) []float32 {
	return vectorAt(h.data, h.opts.Dimension, id)
}

// insert links node id into the graph. Node ids below id are already linked.
func (h *HNSW) insert(sc *searchContext, id uint32) {
	q := h.vector(id)
	lvl := int(h.levels[id])
	h.links[id] = h.newLinks(id)

	ep := h.entry
	epDist := h.distFn(q, h.vector(ep))

	// Find single shortest path from top layers above our current node, which will be our new starting-point
	for l := h.topLevel; l > lvl; l-- {
		ep, epDist = h.greedy(h.data, q, ep, epDist, l)
	}

	for l := min(lvl, h.topLevel); l >= 0; l-- {
		h.searchLayer(sc, h.data, q, ep, epDist, h.opts.EFConstruction, l)
		cands := sc.sortedResult()

		ep, epDist = cands[0].ID, cands[0].Distance

		selected := h.selectNeighbors(cands, h.mmax)
		for _, nb := range selected {
			h.links[id][l] = append(h.links[id][l], nb.ID)
		}
		for _, nb := range selected {
			h.connect(nb.ID, id, nb.Distance, l)
		}
	}

	if lvl > h.topLevel {
		h.topLevel = lvl
		h.entry = id
	}
}

// connect adds a link from node to target on level, shrinking the node's
// neighbor list when it overflows.
func (h *HNSW) connect(node, target uint32, dist float32, level int) {
	maxConn := h.mmax
	// HNSW allows double the connections for the bottom level (0)
	if level == 0 {
		maxConn = h.mmax0
	}

	conns := h.links[node][level]
	if len(conns) < maxConn {
		h.links[node][level] = append(conns, target)
		return
	}

	v := h.vector(node)
	cands := make([]queue.Item, 0, len(conns)+1)
	for _, c := range conns {
		cands = append(cands, queue.Item{ID: c, Distance: h.distFn(v, h.vector(c))})
	}
	cands = append(cands, queue.Item{ID: target, Distance: dist})
	sortItems(cands)

	selected := h.selectNeighbors(cands, maxConn)
	conns = conns[:0]
	for _, s := range selected {
		conns = append(conns, s.ID)
	}
	h.links[node][level] = conns
}

// selectNeighbors picks up to m items from cands, which must be sorted by
// ascending distance to the base node.
func (h *HNSW) selectNeighbors(cands []queue.Item, m int) []queue.Item {
	if !h.opts.Heuristic || len(cands) <= m {
		return slices.Clone(cands[:min(m, len(cands))])
	}

	selected := make([]queue.Item, 0, m)
	var pruned []queue.Item

	for _, c := range cands {
		if len(selected) >= m {
			break
		}
		cv := h.vector(c.ID)
		keep := true
		for _, s := range selected {
			// Skip candidates closer to an already selected neighbor than to the base.
			if h.distFn(cv, h.vector(s.ID)) < c.Distance {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, c)
		} else {
			pruned = append(pruned, c)
		}
	}

	// Top up from the pruned candidates to keep the graph well connected.
	for _, p := range pruned {
		if len(selected) >= m {
			break
		}
		selected = append(selected, p)
	}

	return selected
}

// greedy walks level towards q and returns the closest node found.
func (h *HNSW) greedy(data, q []float32, ep uint32, epDist float32, level int) (uint32, float32) {
	dim := h.opts.Dimension
	for changed := true; changed; {
		changed = false
		for _, nb := range h.links[ep][level] {
			if d := h.distFn(q, vectorAt(data, dim, nb)); d < epDist {
				ep, epDist, changed = nb, d, true
			}
		}
	}
	return ep, epDist
}

// searchLayer runs a best-first search on level and leaves up to ef closest
// nodes in sc.result.
func (h *HNSW) searchLayer(sc *searchContext, data, q []float32, ep uint32, epDist float32, ef, level int) {
	sc.reset()
	dim := h.opts.Dimension

	sc.visited.Set(uint(ep))
	sc.candidates.Push(queue.Item{ID: ep, Distance: epDist})
	sc.result.Push(queue.Item{ID: ep, Distance: epDist})

	for sc.candidates.Len() > 0 {
		c, _ := sc.candidates.Pop()
		worst, _ := sc.result.Top()
		if c.Distance > worst.Distance && sc.result.Len() >= ef {
			break
		}

		for _, nb := range h.links[c.ID][level] {
			if sc.visited.Test(uint(nb)) {
				continue
			}
			sc.visited.Set(uint(nb))

			d := h.distFn(q, vectorAt(data, dim, nb))
			worst, _ = sc.result.Top()
			if sc.result.Len() < ef || d < worst.Distance {
				item := queue.Item{ID: nb, Distance: d}
				sc.candidates.Push(item)
				sc.result.PushBounded(item, ef)
			}
		}
	}
}

func sortItems(items []queue.Item) {
	slices.SortFunc(items, func(a, b queue.Item) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Searcher returns a query handle. After Build it is already bound to the
// build buffer; after Load it needs SetData before the first Search.
func (h *HNSW) Searcher() (index.Searcher, error) {
	if h.count == 0 {
		return nil, index.ErrNotBuilt
	}
	return newSearcher(h), nil
}
