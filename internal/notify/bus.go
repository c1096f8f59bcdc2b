package notify

import (
	"context"
	"sync"

	"github.com/nhle/mailhub/internal/model"
)

// Bus broadcasts notifications to any number of subscribers. A slow
// subscriber whose buffer is full misses notifications instead of
// blocking the sync.
type Bus struct {
	mu     sync.Mutex
	nextID int64
	subs   map[int64]chan model.Notification
	closed bool
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int64]chan model.Notification)}
}

// Subscribe registers a subscriber with the given buffer size. The
// returned cancel func unregisters it and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan model.Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.Notification, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bus) unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Notify emits n to every current subscriber without blocking.
func (b *Bus) Notify(_ context.Context, n model.Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
	return nil
}

// Close closes all subscriber channels. Later subscribers receive an
// already closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
