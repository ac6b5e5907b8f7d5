package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryBucket keeps objects in process. Used by tests and OBJECT_STORAGE_MODE=memory.
type MemoryBucket struct {
	mu            sync.RWMutex
	objects       map[string]memoryObject
	publicBaseURL string
}

func NewMemoryBucket(publicBaseURL string) *MemoryBucket {
	return &MemoryBucket{
		objects:       map[string]memoryObject{},
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (b *MemoryBucket) Upload(_ context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = DetectContentType(key, data)
	}
	cp := append([]byte(nil), data...)
	b.mu.Lock()
	b.objects[key] = memoryObject{data: cp, contentType: contentType}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBucket) Download(_ context.Context, key string) ([]byte, string, error) {
	b.mu.RLock()
	obj, ok := b.objects[key]
	b.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return append([]byte(nil), obj.data...), obj.contentType, nil
}

func (b *MemoryBucket) Copy(_ context.Context, srcKey, dstKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[srcKey]
	if !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, srcKey)
	}
	b.objects[dstKey] = memoryObject{data: append([]byte(nil), obj.data...), contentType: obj.contentType}
	return nil
}

func (b *MemoryBucket) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.objects, key)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBucket) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if b.publicBaseURL == "" {
		return "memory://" + key
	}
	return b.publicBaseURL + "/" + key
}

// Keys lists stored keys under prefix in sorted order.
func (b *MemoryBucket) Keys(prefix string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.objects))
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
