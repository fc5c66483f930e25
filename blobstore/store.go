package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned when a blob does not exist.
	//
	// Implementations return an error satisfying errors.Is(err, ErrNotFound).
	ErrNotFound = os.ErrNotExist

	// ErrAborted is the error an upload fails with after Abort.
	ErrAborted = errors.New("blobstore: write aborted")
)

// Content types attached to uploaded objects.
const (
	ContentTypeJSON   = "application/json"
	ContentTypeBinary = "application/octet-stream"
)

// ContentType returns the content type for name: JSON for reports and
// binary for vector files and index snapshots.
func ContentType(name string) string {
	if strings.EqualFold(path.Ext(name), ".json") {
		return ContentTypeJSON
	}
	return ContentTypeBinary
}

// BlobStore gives named access to immutable blobs.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create opens a blob for streaming writes. The blob becomes visible on Close.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	io.Closer
	// Size returns the blob size in bytes.
	Size() int64
	// ReadAt reads len(p) bytes at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange streams length bytes starting at off.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
}

// WritableBlob is a blob under construction.
type WritableBlob interface {
	io.WriteCloser
	// Sync flushes buffered data where the backend supports it.
	Sync() error
}

// Aborter is implemented by writable blobs that can discard a write in
// progress. After Abort nothing new is visible under the blob's name, and a
// blob that existed before Create is left untouched.
type Aborter interface {
	Abort() error
}

// Abort discards w if it implements Aborter and closes it otherwise.
func Abort(w WritableBlob) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort()
	}
	return w.Close()
}

// NewReader opens name and returns a sequential reader over the whole blob.
// Closing the reader also closes the blob.
func NewReader(ctx context.Context, store BlobStore, name string) (io.ReadCloser, int64, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, 0, err
	}

	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		_ = b.Close()
		return nil, 0, err
	}

	return &blobReader{ReadCloser: rc, blob: b}, b.Size(), nil
}

type blobReader struct {
	io.ReadCloser
	blob Blob
}

func (r *blobReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.blob.Close(); err == nil {
		err = cerr
	}
	return err
}
