// Package storage implements the object stores the dubbing pipeline reads
// source videos from and writes dubbed outputs to.
//
// Backends:
//   - Local: a directory tree, `file://` URIs. Buckets are subdirectories.
//   - GCS: Google Cloud Storage, `gs://bucket/key` URIs.
//   - COS: Tencent Cloud Object Storage, `cos://bucket/key` URIs.
//
// Remote fetches are cached under a local directory keyed by bucket and
// object key. Resolver maps any supported URI back to a local file.
package storage
