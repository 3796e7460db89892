package booking

import (
	"sync"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

const (
	EventSlots = "slots"
	EventDraft = "draft"
	EventError = "error"
)

type ErrorPayload struct {
	Kind    httperr.Kind `json:"kind"`
	Message string       `json:"message"`
}

// Notification is one message for the presentation layer. Data is a
// TimeSlot slice, a Draft or an ErrorPayload depending on Event.
type Notification struct {
	Event string
	Data  any
}

// Broadcaster is a Sink that fans notifications out to any number of
// listeners. A listener that is not keeping up misses notifications.
type Broadcaster struct {
	mu        sync.Mutex
	listeners map[uint64]chan Notification
	next      uint64
	closed    bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: map[uint64]chan Notification{}}
}

var _ domain.Sink = (*Broadcaster)(nil)

// Listen returns a channel of notifications and a func that stops it.
// The channel is closed when either is called or the broadcaster closes.
func (b *Broadcaster) Listen(buffer int) (<-chan Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Notification, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	b.next++
	id := b.next
	b.listeners[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.listeners[id]; ok {
			delete(b.listeners, id)
			close(c)
		}
	}
}

func (b *Broadcaster) OnSlotsChanged(slots []domain.TimeSlot) {
	b.publish(Notification{Event: EventSlots, Data: slots})
}

func (b *Broadcaster) OnDraftChanged(d domain.Draft) {
	b.publish(Notification{Event: EventDraft, Data: d})
}

func (b *Broadcaster) OnError(kind httperr.Kind, message string) {
	b.publish(Notification{Event: EventError, Data: ErrorPayload{Kind: kind, Message: message}})
}

func (b *Broadcaster) publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.listeners {
		select {
		case ch <- n:
		default:
		}
	}
}

func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.listeners {
		delete(b.listeners, id)
		close(ch)
	}
}
