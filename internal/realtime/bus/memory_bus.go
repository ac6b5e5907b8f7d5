package bus

import (
	"context"
	"sync"

	"github.com/yungbote/hermes-backend/internal/realtime"
)

// MemoryBus delivers events synchronously to in-process forwarders.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers []func(realtime.RunEvent)
	closed   bool
}

func NewMemoryBus() *MemoryBus { return &MemoryBus{} }

func (b *MemoryBus) Publish(_ context.Context, msg realtime.RunEvent) error {
	b.mu.RLock()
	handlers := append([]func(realtime.RunEvent){}, b.handlers...)
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil
	}
	for _, h := range handlers {
		h(msg)
	}
	return nil
}

func (b *MemoryBus) StartForwarder(ctx context.Context, onMsg func(m realtime.RunEvent)) error {
	if onMsg == nil {
		return nil
	}
	b.mu.Lock()
	idx := len(b.handlers)
	b.handlers = append(b.handlers, onMsg)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if idx < len(b.handlers) {
			b.handlers[idx] = func(realtime.RunEvent) {}
		}
		b.mu.Unlock()
	}()
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.handlers = nil
	b.mu.Unlock()
	return nil
}
