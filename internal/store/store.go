// Package store persists résumé metadata and analysis records per user.
//
// Documents are plain JSON laid out as
//
//	users/<userID>/resumes/<resumeID>.json
//	users/<userID>/resumes/files/<resumeID><ext>
//	users/<userID>/analyses/<analysisID>.json
//
// on top of a Blobs backend (see fsstore and s3store).
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("document not found")
	ErrInvalidKey = errors.New("invalid document key")
)

// Gateway is the persistence contract used by the pipelines and the HTTP server.
type Gateway interface {
	// SaveAnalysis writes a new immutable record for result.
	SaveAnalysis(ctx context.Context, userID string, result any, resumeID string) (*Record, error)
	// ListAnalyses returns the user's records, newest first.
	ListAnalyses(ctx context.Context, userID string) ([]Record, error)
	GetAnalysis(ctx context.Context, userID, id string) (*Record, error)
	// SaveResume stores résumé metadata, generating an id when meta.ID is empty.
	SaveResume(ctx context.Context, userID string, meta ResumeMeta) (*ResumeMeta, error)
	// SaveResumeFile stores the original upload and returns its key.
	SaveResumeFile(ctx context.Context, userID, resumeID, filename string, data []byte) (string, error)
}

// Blobs is a flat key/value object store.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns ErrNotFound for missing keys.
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys directly or indirectly under prefix. A missing
	// prefix is not an error.
	List(ctx context.Context, prefix string) ([]string, error)
}
