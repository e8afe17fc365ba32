package broadcast

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus used in tests and single-node
// deployments. Delivery is best-effort: a subscriber that is not
// draining its channel drops events instead of blocking the publisher.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[int]*memorySub
	next int
}

type memorySub struct {
	folderID string
	section  string
	ch       chan Event
}

// NewMemoryBus constructs an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int]*memorySub)}
}

// Publish delivers the event to every matching subscriber.
func (b *MemoryBus) Publish(_ context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if !matches(event, sub.folderID, sub.section) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers interest in a folder/section key.
func (b *MemoryBus) Subscribe(ctx context.Context, folderID, section string) (<-chan Event, error) {
	sub := &memorySub{folderID: folderID, section: section, ch: make(chan Event, 16)}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(sub.ch)
	}()

	return sub.ch, nil
}
