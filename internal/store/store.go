// Package store provides whole-document persistence with optimistic
// concurrency. The document is read with a version token and written back
// with the same token; a stale token fails the write instead of silently
// overwriting a concurrent change.
package store

import (
	"context"
	"errors"
)

// ErrVersionConflict is returned by Write when the supplied version no
// longer matches the stored document.
var ErrVersionConflict = errors.New("document version conflict")

// VersionNone is the version token for a document that does not exist yet.
const VersionNone = "0"

// DocumentStore is read-whole/write-whole access to a single document.
type DocumentStore interface {
	// Read returns the raw document and its current version token. A store
	// with no document yet returns (nil, VersionNone, nil).
	Read(ctx context.Context) (data []byte, version string, err error)

	// Write replaces the document if version still matches, returning the
	// new version token. A stale version returns ErrVersionConflict.
	Write(ctx context.Context, data []byte, version string) (newVersion string, err error)
}
