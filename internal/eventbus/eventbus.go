// Package eventbus is the process-local change notifier. Mutations publish
// which entity class changed; UI-facing consumers use the events purely as
// refresh hints, never as a source of truth. Delivery is synchronous and
// best-effort: nothing is persisted and unsubscribed consumers miss events.
package eventbus

import "sync"

// Event kinds published by the core.
const (
	KindTables      = "tables"
	KindTableItems  = "table-items"
	KindSales       = "sales"
	KindCustomers   = "customers"
	KindSettings    = "settings"
	KindStaff       = "users"
	KindPrintErrors = "print-errors"
)

type Event struct {
	Kind    string `json:"kind"`
	Subject int64  `json:"subject,omitempty"`
}

type Handler func(Event)

type Bus struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[int64]Handler
}

func New() *Bus {
	return &Bus{subs: make(map[int64]Handler)}
}

// Subscription cancels a subscriber's registration when no longer needed.
type Subscription struct {
	bus *Bus
	id  int64
}

func (s *Subscription) Cancel() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs, s.id)
}

func (b *Bus) Subscribe(h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[id] = h
	return &Subscription{bus: b, id: id}
}

// Publish fans the event out to every current subscriber on the caller's
// goroutine. Handlers must not block.
func (b *Bus) Publish(kind string, subject int64) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	ev := Event{Kind: kind, Subject: subject}
	for _, h := range handlers {
		h(ev)
	}
}
