// Package storage defines the object storage abstraction transcript
// artifacts are persisted through. storage/local implements it on the
// filesystem with atomic writes; storage/s3 on a bucket, used to mirror
// transcripts off the host.
package storage
