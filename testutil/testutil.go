package testutil

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/vecbench/distance"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num, dim int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)
	for i := range num {
		vec := data[i*dim : (i+1)*dim]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}
	return vectors
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
func (r *RNG) UnitVectors(num, dim int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)
	for i := range num {
		vec := data[i*dim : (i+1)*dim]
		var norm float64
		for j := range vec {
			v := r.rand.NormFloat64()
			vec[j] = float32(v)
			norm += v * v
		}
		if norm == 0 {
			norm = 1
		}
		inv := float32(1 / math.Sqrt(norm))
		for j := range vec {
			vec[j] *= inv
		}
		vectors[i] = vec
	}
	return vectors
}

// ClusteredVectors generates vectors clustered around random centroids.
// Useful for testing ANN index performance on non-uniform data.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) [][]float32 {
	centroids := r.UnitVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)
	for i := range num {
		centroid := centroids[i%clusters]
		vec := data[i*dim : (i+1)*dim]
		for j := range dim {
			vec[j] = centroid[j] + float32(r.rand.NormFloat64())*spread
		}
		vectors[i] = vec
	}
	return vectors
}

// Flatten copies rows into one row-major buffer.
func Flatten(rows [][]float32) []float32 {
	if len(rows) == 0 {
		return nil
	}
	dim := len(rows[0])
	flat := make([]float32, 0, len(rows)*dim)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	return flat
}

// Neighbor is an exact search hit.
type Neighbor struct {
	ID       uint32
	Distance float32
}

// ExactTopK returns the k closest rows of the row-major buffer data to query,
// closest first. Ties are broken by the smaller id.
func ExactTopK(query, data []float32, dim, k int, fn distance.Func) []Neighbor {
	n := len(data) / dim
	all := make([]Neighbor, n)
	for i := range n {
		all[i] = Neighbor{ID: uint32(i), Distance: fn(query, data[i*dim:(i+1)*dim])}
	}
	slices.SortFunc(all, func(a, b Neighbor) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return all[:min(k, n)]
}

// GroundTruth computes the exact top-depth ids of every query in the
// on-disk ground-truth element type.
func GroundTruth(data []float32, dim int, queries [][]float32, depth int, fn distance.Func) [][]int32 {
	truth := make([][]int32, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits := ExactTopK(q, data, dim, depth, fn)
			row := make([]int32, len(hits))
			for j, h := range hits {
				row[j] = int32(h.ID)
			}
			truth[i] = row
		}()
	}
	wg.Wait()
	return truth
}

// ComputeRecall returns the fraction of exact ids found in approx.
func ComputeRecall(approx []uint32, exact []int32) float64 {
	if len(exact) == 0 {
		return 0
	}
	found := make(map[uint32]struct{}, len(approx))
	for _, id := range approx {
		found[id] = struct{}{}
	}
	hits := 0
	for _, id := range exact {
		if _, ok := found[uint32(id)]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(exact))
}
