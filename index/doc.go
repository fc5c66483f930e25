// Package index defines the contract between the benchmark harness and the
// nearest-neighbor index under test.
//
// An Index is built from (or loaded into) memory once; a Searcher bound to
// the same base vectors answers top-k queries. Searchers must tolerate
// concurrent Search calls, and SetEf is only called while no search is in
// flight.
//
// # Implementations
//
//   - hnsw: Hierarchical Navigable Small World graph (approximate)
//   - flat: exhaustive scan (exact, ef is ignored)
//
// Implementations register a Factory under their kind name so the harness can
// construct them from configuration:
//
//	idx, err := index.New("hnsw", index.Options{Dimension: 128})
//
// # Snapshots
//
// Save and Load use a shared framing (see WriteSnapshot): a fixed header with
// kind, metric, dimension and count, followed by an optionally compressed body
// and a CRC32 of the body. Base vectors are never part of a snapshot; they are
// bound again with Searcher.SetData after loading.
package index
