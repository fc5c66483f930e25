// Package blobstore abstracts where vecbench reads and writes its files.
//
// Dataset, query and ground-truth files, persisted index snapshots and JSON
// reports are all addressed by name inside a BlobStore. The same benchmark
// configuration can therefore run against a local directory, an in-memory
// store (tests) or object storage (see the s3 and minio subpackages).
//
// Implementations must be safe for concurrent use.
package blobstore
