package service

import "sync"

// Event names published on the bus. The WebSocket layer forwards them to
// clients verbatim as the envelope type.
const (
	EventSweepData    = "sweep_data"
	EventStatus       = "status"
	EventError        = "error"
	EventModelChanged = "model_changed"
)

// Event is one bus message: a name plus its payload.
type Event struct {
	Name string
	Data any
}

// Bus is a typed publish/subscribe fan-out. Publish never blocks the
// producer: a subscriber whose channel is full loses the event rather than
// stalling the sweep loop.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

const subscriberBuffer = 32

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe or bus close.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber, dropping it for slow ones.
func (b *Bus) Publish(name string, data any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	ev := Event{Name: name, Data: data}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close shuts the bus down; all subscriber channels are closed and further
// publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
