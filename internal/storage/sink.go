// Package storage provides the object-storage capability accepted uploads
// are persisted through. The production implementation targets S3 (or any
// S3-compatible store); tests use the in-memory sink.
package storage

import "context"

// Sink abstracts an object store as a single put capability.
type Sink interface {
	// Put writes body under key with the given content type and
	// per-object metadata. A nil error means the object is durably
	// stored; failures are surfaced immediately, never retried here.
	Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error
}
