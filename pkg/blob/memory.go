package blob

import (
	"context"
	"io"
	"sync"
)

// Object is a stored blob.
type Object struct {
	ContentType string
	Data        []byte
}

// Memory keeps objects in memory. Its public URLs use the memory:// scheme.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

func (m *Memory) Put(_ context.Context, key, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = ContentType(key)
	}
	m.mu.Lock()
	m.objects[key] = Object{ContentType: contentType, Data: data}
	m.mu.Unlock()
	return nil
}

func (m *Memory) PublicURL(key string) string { return "memory://" + key }

// Get returns the object stored under key.
func (m *Memory) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o, ok
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

var _ Store = (*Memory)(nil)
