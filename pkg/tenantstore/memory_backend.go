package tenantstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend is an in-process Backend used for FORCE_MOCK_BLOBS and
// unit tests; it never touches the network or disk.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string][]byte // container/key -> data
}

// NewMemoryBackend constructs an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string][]byte)}
}

func fullKey(container, key string) string { return container + "/" + key }

func (b *MemoryBackend) Put(_ context.Context, container, key string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	b.objects[fullKey(container, key)] = cp
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, container, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.objects[fullKey(container, key)]
	if !ok {
		return nil, &NotFoundError{Key: key}
	}
	return data, nil
}

func (b *MemoryBackend) List(_ context.Context, container, prefix string, limit int) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	full := fullKey(container, prefix)
	var names []string
	for k := range b.objects {
		if strings.HasPrefix(k, full) {
			names = append(names, strings.TrimPrefix(k, container+"/"))
		}
	}
	sort.Strings(names)
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

func (b *MemoryBackend) DeletePrefix(_ context.Context, container, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	full := fullKey(container, prefix)
	for k := range b.objects {
		if strings.HasPrefix(k, full) {
			delete(b.objects, k)
		}
	}
	return nil
}

// NotFoundError indicates a blob absent from the backend.
type NotFoundError struct{ Key string }

func (e *NotFoundError) Error() string { return "blob not found: " + e.Key }
