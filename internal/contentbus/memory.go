package contentbus

import (
	"context"
	"sync"
	"time"

	"github.com/cuihairu/playhub/internal/ports"
)

// MemoryHub fans events out to every bus created from it, in-process.
type MemoryHub struct {
	mu   sync.RWMutex
	subs map[int]func(ports.ChangeEvent)
	next int
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: map[int]func(ports.ChangeEvent){}}
}

// Bus returns a bus publishing as origin.
func (h *MemoryHub) Bus(origin string) *MemoryBus {
	return &MemoryBus{hub: h, origin: origin}
}

func (h *MemoryHub) add(fn func(ports.ChangeEvent)) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.subs[h.next] = fn
	return h.next
}

func (h *MemoryHub) remove(id int) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *MemoryHub) deliver(evt ports.ChangeEvent) {
	h.mu.RLock()
	fns := make([]func(ports.ChangeEvent), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(evt)
	}
}

// MemoryBus delivers synchronously on Publish.
type MemoryBus struct {
	hub    *MemoryHub
	origin string

	mu  sync.Mutex
	ids []int
}

func (b *MemoryBus) Origin() string { return b.origin }

func (b *MemoryBus) Publish(_ context.Context, evt ports.ChangeEvent) error {
	if evt.Origin == "" {
		evt.Origin = b.origin
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	b.hub.deliver(evt)
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, fn func(ports.ChangeEvent)) error {
	id := b.hub.add(foreign(b.origin, fn))
	b.mu.Lock()
	b.ids = append(b.ids, id)
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.hub.remove(id)
	}()
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	ids := b.ids
	b.ids = nil
	b.mu.Unlock()
	for _, id := range ids {
		b.hub.remove(id)
	}
	return nil
}
