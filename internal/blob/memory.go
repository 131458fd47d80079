package blob

import (
	"bytes"
	"context"
	"sync"
)

// MemoryBackend keeps objects in process memory. Data does not survive a
// restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string][]byte)}
}

func (b *MemoryBackend) Object(key string) Transport {
	return &MemoryTransport{backend: b, key: key}
}

func (b *MemoryBackend) Close() error { return nil }

type MemoryTransport struct {
	backend *MemoryBackend
	key     string
}

// NewMemoryTransport returns a transport over a private single-object backend.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{backend: NewMemoryBackend(), key: "object"}
}

func (t *MemoryTransport) Fetch(ctx context.Context) ([]byte, error) {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()
	return bytes.Clone(t.backend.objects[t.key]), nil
}

func (t *MemoryTransport) Store(ctx context.Context, data []byte) error {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	t.backend.objects[t.key] = bytes.Clone(data)
	return nil
}
