// Package vecbench measures recall and throughput of approximate
// nearest-neighbor indexes across a sweep of search-effort (ef) values.
//
// A run loads a base dataset, a query set and ground truth from a blob
// store, flattens the base vectors into one contiguous buffer, builds or
// loads an index, and then searches every query once per ef value on a
// fixed worker pool. Each round is scored against ground truth with
// set-based matching and written to the configured report sinks.
//
// # Quick Start
//
//	cfg, _ := vecbench.LoadConfigFile("bench.yaml")
//	h, _ := vecbench.NewHarness(cfg, vecbench.WithLogger(vecbench.NewTextLogger(slog.LevelInfo)))
//	rep, _ := h.Run(ctx)
//	best, _ := rep.Best()
//
// # Input Format
//
// Every input file starts with two little-endian uint32 values, the number
// of rows N and the row dimension D, followed by N*D little-endian 4-byte
// elements in row-major order. Base and query vectors hold float32, ground
// truth holds int32 neighbor ids.
//
// # Indexes
//
// Index kinds register themselves with the index package. The hnsw and
// flat kinds are always available; other kinds register from their own
// init functions, or an index can be passed directly with WithIndex.
package vecbench
