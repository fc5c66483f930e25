// Package s3 stores vecbench blobs in Amazon S3.
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil { ... }
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "ann-datasets", "deep1m/")
//
// Reads use ranged GETs; writes stream through the multipart upload manager.
package s3
