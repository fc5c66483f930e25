// Package dataset reads and writes the binary vector file format and
// converts row collections into flat row-major buffers.
//
// # File Format
//
//	[N uint32 LE][D uint32 LE][N*D elements, 4 bytes LE each]
//
// Elements are float32 for base and query vectors and int32 for
// ground-truth ids. Rows are tightly packed, row-major, with no padding
// and no trailing data.
//
// # Usage
//
//	base, err := dataset.Load[float32](ctx, store, "sift_base.fbin", logger)
//	truth, err := dataset.LoadAs[int32, uint32](ctx, store, "sift_gt.ibin", logger)
//	flat, err := dataset.Flatten(ctx, base, runtime.GOMAXPROCS(0))
package dataset
