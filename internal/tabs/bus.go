package tabs

import (
	"slices"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// PointerEvent is a pointer-down somewhere in the editor document. Path lists
// the region ids containing the event target, innermost first.
type PointerEvent struct {
	Path []string `json:"path"`
}

// Within reports whether the event happened inside region.
func (e PointerEvent) Within(region string) bool {
	return slices.Contains(e.Path, region)
}

// Bus is a per-document source of pointer events. Subscribers are called in
// subscription order.
type Bus struct {
	mu   sync.Mutex
	next int
	subs *orderedmap.OrderedMap[int, func(PointerEvent)]
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: orderedmap.New[int, func(PointerEvent)]()}
}

// Subscribe registers fn until the returned subscription is closed.
func (b *Bus) Subscribe(fn func(PointerEvent)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.subs.Set(b.next, fn)
	return &Subscription{bus: b, id: b.next}
}

// Dispatch delivers ev to every current subscriber. Handlers run outside the
// bus lock and may close their own subscription.
func (b *Bus) Dispatch(ev PointerEvent) {
	b.mu.Lock()
	handlers := make([]func(PointerEvent), 0, b.subs.Len())
	for pair := b.subs.Oldest(); pair != nil; pair = pair.Next() {
		handlers = append(handlers, pair.Value)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs.Len()
}

// Subscription is a scoped listener registration.
type Subscription struct {
	bus  *Bus
	id   int
	once sync.Once
}

// Close removes the listener. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		s.bus.subs.Delete(s.id)
		s.bus.mu.Unlock()
	})
}
