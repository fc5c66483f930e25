package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hupe1980/vecbench/blobstore"
	"github.com/hupe1980/vecbench/internal/pool"
)

// Load reads the named blob, whose elements are stored as T.
func Load[T Element](ctx context.Context, store blobstore.BlobStore, name string, logger *slog.Logger) (*Matrix[T], error) {
	return LoadAs[T, T](ctx, store, name, logger)
}

// LoadAs reads the named blob, whose elements are stored as S, converting
// them to T. The blob size is checked against the header before any row
// is read, so truncated or oversized blobs fail without a full scan.
func LoadAs[S, T Element](ctx context.Context, store blobstore.BlobStore, name string, logger *slog.Logger) (*Matrix[T], error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	start := time.Now()

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer blob.Close()

	var raw [headerSize]byte
	if _, err := blob.ReadAt(ctx, raw[:], 0); err != nil {
		return nil, fmt.Errorf("%s: %w", name, truncated(err, "header"))
	}
	hdr, err := parseHeader(raw[:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	switch size := blob.Size(); {
	case size < hdr.FileSize():
		return nil, fmt.Errorf("%s: %w: %d bytes, header needs %d", name, ErrTruncated, size, hdr.FileSize())
	case size > hdr.FileSize():
		return nil, fmt.Errorf("%s: %w: %d bytes, header needs %d", name, ErrTrailingData, size, hdr.FileSize())
	}

	logger.DebugContext(ctx, "reading vectors",
		slog.String("path", name),
		slog.Int("points", hdr.Count),
		slog.Int("dimensions", hdr.Dim),
		slog.Int64("bytes", blob.Size()),
	)

	var m *Matrix[T]
	if mb, ok := blob.(mappedBlob); ok {
		data, err := mb.Bytes()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		m, err = decodeMapped[S, T](ctx, hdr, data[headerSize:])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	} else {
		rc, err := blob.ReadRange(ctx, 0, blob.Size())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		defer rc.Close()

		m, err = ReadAs[S, T](&ctxReader{ctx: ctx, r: rc})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	logger.InfoContext(ctx, "vectors loaded",
		slog.String("path", name),
		slog.Int("points", m.Len()),
		slog.Int("dimensions", m.Dim),
		slog.Duration("elapsed", time.Since(start)),
	)

	return m, nil
}

// mappedBlob is implemented by blobs whose contents are already mapped
// into memory, such as those of blobstore.LocalStore.
type mappedBlob interface {
	Bytes() ([]byte, error)
}

// decodeRowsPerChunk is the number of rows decoded per work item.
const decodeRowsPerChunk = 4096

// decodeMapped converts an in-memory file body, whose size was already
// checked against hdr, in parallel over disjoint row ranges.
func decodeMapped[S, T Element](ctx context.Context, hdr Header, body []byte) (*Matrix[T], error) {
	dim := hdr.Dim
	rowBytes := dim * elementSize

	backing := make([]T, hdr.Elements())
	rows := make([][]T, hdr.Count)

	err := pool.New().ParallelRange(ctx, hdr.Count, decodeRowsPerChunk, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			row := backing[i*dim : (i+1)*dim : (i+1)*dim]
			decodeRow[S](row, body[i*rowBytes:(i+1)*rowBytes])
			rows[i] = row
		}
	})
	if err != nil {
		return nil, err
	}

	return &Matrix[T]{Rows: rows, Dim: dim}, nil
}

// ctxReader stops a long sequential read once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
