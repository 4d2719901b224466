package store

import (
	"context"
	"strconv"
	"sync"
)

// MemStore is an in-process document store. It backs local development and
// tests; its version token follows the same CAS rules as the real backends.
type MemStore struct {
	mu      sync.Mutex
	data    []byte
	version int64
}

// NewMemStore creates an empty in-memory document store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Read(ctx context.Context) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.version == 0 {
		return nil, VersionNone, nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, strconv.FormatInt(s.version, 10), nil
}

func (s *MemStore) Write(ctx context.Context, data []byte, version string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if version != strconv.FormatInt(s.version, 10) {
		return "", ErrVersionConflict
	}
	s.data = make([]byte, len(data))
	copy(s.data, data)
	s.version++
	return strconv.FormatInt(s.version, 10), nil
}
