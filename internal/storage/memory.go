package storage

import (
	"context"
	"sync"
)

// Object is one stored entry in a MemorySink.
type Object struct {
	Body        []byte
	ContentType string
	Metadata    map[string]string
}

// MemorySink is an in-memory Sink used by tests. It records every put and
// can be told to fail on demand.
type MemorySink struct {
	mu      sync.Mutex
	objects map[string]Object
	failErr error
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{objects: make(map[string]Object)}
}

// FailWith makes every subsequent Put return err. Pass nil to heal.
func (m *MemorySink) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Put implements Sink.
func (m *MemorySink) Put(_ context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return m.failErr
	}

	stored := Object{
		Body:        append([]byte(nil), body...),
		ContentType: contentType,
		Metadata:    make(map[string]string, len(metadata)),
	}
	for k, v := range metadata {
		stored.Metadata[k] = v
	}
	m.objects[key] = stored
	return nil
}

// Get returns the object stored under key, if any.
func (m *MemorySink) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Len returns the number of stored objects.
func (m *MemorySink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// Keys returns the keys of all stored objects in no particular order.
func (m *MemorySink) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
