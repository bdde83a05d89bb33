// Package storage holds the blob store boundary for package tarballs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when no blob exists under the requested key.
var ErrNotFound = errors.New("storage: blob not found")

// BlobStore stores raw package archives addressed by key. Implementations
// must make a successful Put durable before returning; the publish pipeline
// relies on that to never commit metadata pointing at a missing blob. Put is
// first-write-wins: once a key holds data, later writes leave it untouched,
// so a published archive can never be replaced.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Key derives the canonical blob key for a package version.
func Key(name, version string) string {
	return fmt.Sprintf("crates/%s/%s-%s.crate", name, name, version)
}

// Memory is a process-local BlobStore for tests and local development.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

var _ BlobStore = (*Memory)(nil)

func (m *Memory) Put(ctx context.Context, key string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.blobs[key]; exists {
		return nil
	}
	m.blobs[key] = buf
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
