// Package testutil provides testing utilities for vecbench.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random vectors, computing exact
// nearest neighbors (ground truth), and measuring recall.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	base := rng.UniformVectors(1000, 32)
//
// # Ground Truth
//
//	truth := testutil.GroundTruth(testutil.Flatten(base), 32, queries, 100, distance.SquaredL2)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(approx, truth[i][:k])
package testutil
