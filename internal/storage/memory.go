package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// MemoryBackend keeps objects in process memory. It backs local runs
// without an object store and the tests of packages built on Gateway.
type MemoryBackend struct {
	base string

	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryBackend returns an empty MemoryBackend whose public URLs start
// with publicBase.
func NewMemoryBackend(publicBase string) *MemoryBackend {
	return &MemoryBackend{
		base:    strings.TrimRight(publicBase, "/"),
		objects: make(map[string]memoryObject),
	}
}

// Upload stores the bytes read from reader under key.
func (m *MemoryBackend) Upload(_ context.Context, key string, reader io.Reader, _ int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return fmt.Errorf("memory upload %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: buf.Bytes(), contentType: contentType}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// PublicURL returns publicBase/key.
func (m *MemoryBackend) PublicURL(key string) string {
	return m.base + "/" + key
}

// Object returns the stored bytes and content type of key.
func (m *MemoryBackend) Object(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o.data, o.contentType, ok
}

// Len returns the number of stored objects.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
