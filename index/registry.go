package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/vecbench/distance"
	"github.com/hupe1980/vecbench/internal/compress"
)

// Options are the construction parameters shared by all kinds. Kinds ignore
// the fields that do not apply to them.
type Options struct {
	Dimension      int
	Metric         distance.Metric
	M              int
	EFConstruction int
	Seed           uint64
	Compression    compress.Type
}

// Factory constructs an empty index of one kind.
type Factory func(opts Options) (Index, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a kind available to New.
//
// Implementations should typically call this from an init() function.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = f
}

// New constructs an empty index of the given kind.
func New(kind string, opts Options) (Index, error) {
	registryMu.RLock()
	f, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownKind, kind, Kinds())
	}
	return f(opts)
}

// Kinds returns the registered kind names in sorted order.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
