// Package distance provides the vector distances used by the bundled indexes.
//
// Every metric is expressed as a dissimilarity: smaller values mean closer
// vectors, so indexes can order candidates the same way for all metrics.
//
// # Supported Metrics
//
//   - MetricL2: squared Euclidean distance (default)
//   - MetricDot: negated inner product
//   - MetricCosine: 1 - cosine similarity
//
// # Usage
//
//	fn, err := distance.Provider(distance.MetricL2)
//	d := fn(a, b)
package distance
