package booking

import (
	"context"
	"sync"

	"go.uber.org/zap"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

// Handle identifies one armed date scope of a Tracker.
type Handle struct {
	id   uint64
	Date string
}

func (h Handle) Valid() bool { return h.id != 0 }

type armed struct {
	handle    Handle
	resources []string
	known     map[string]bool
	unsubs    []func()
}

// Tracker keeps the busy intervals of a set of barbers for one date, fed by
// the booking stream. At most one date scope is active at a time.
type Tracker struct {
	store  domain.BookingStore
	buffer int
	log    *zap.Logger

	mu       sync.Mutex
	gen      uint64
	current  *armed
	snapshot domain.AvailabilitySnapshot
	onChange func()
}

func NewTracker(store domain.BookingStore, bufferMinutes int, log *zap.Logger) *Tracker {
	return &Tracker{
		store:    store,
		buffer:   bufferMinutes,
		log:      log,
		snapshot: domain.AvailabilitySnapshot{},
	}
}

// OnChange registers fn to run after every applied push. fn runs without
// the tracker lock held.
func (t *Tracker) OnChange(fn func()) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Arm disarms whatever is active and subscribes every resource for date.
// If any subscription fails the whole scope is torn down.
func (t *Tracker) Arm(ctx context.Context, date string, resourceIDs []string) (Handle, error) {
	t.disarmCurrent()

	t.mu.Lock()
	t.gen++
	a := &armed{
		handle:    Handle{id: t.gen, Date: date},
		resources: append([]string(nil), resourceIDs...),
		known:     make(map[string]bool, len(resourceIDs)),
	}
	for _, id := range resourceIDs {
		a.known[id] = true
	}
	t.current = a
	t.snapshot = domain.AvailabilitySnapshot{}
	t.mu.Unlock()

	t.log.Info("availability armed",
		zap.String("date", date),
		zap.Int("barbers", len(resourceIDs)),
	)

	for _, id := range resourceIDs {
		handleID := a.handle.id
		unsub, err := t.store.SubscribeToResourceBookings(ctx, id, date, func(rb domain.ResourceBookings) {
			t.apply(handleID, rb)
		})
		if err != nil {
			t.log.Error("availability subscribe failed",
				zap.String("barber_id", id),
				zap.String("date", date),
				zap.Error(err),
			)
			t.Disarm(a.handle)
			return Handle{}, httperr.Network("availability_unavailable", err)
		}

		t.mu.Lock()
		if t.current != a {
			t.mu.Unlock()
			// disarmed while subscribing
			unsub()
			return a.handle, nil
		}
		a.unsubs = append(a.unsubs, unsub)
		t.mu.Unlock()
	}

	return a.handle, nil
}

// Refresh re-arms the active scope so every resource receives a fresh push.
func (t *Tracker) Refresh(ctx context.Context) (Handle, error) {
	t.mu.Lock()
	a := t.current
	t.mu.Unlock()

	if a == nil {
		return Handle{}, nil
	}
	return t.Arm(ctx, a.handle.Date, a.resources)
}

// Disarm unsubscribes everything opened for h. Unknown or stale handles
// are ignored, so it is safe to call repeatedly.
func (t *Tracker) Disarm(h Handle) {
	t.mu.Lock()
	if t.current == nil || t.current.handle != h {
		t.mu.Unlock()
		return
	}
	unsubs := t.current.unsubs
	t.current = nil
	t.snapshot = domain.AvailabilitySnapshot{}
	t.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	t.log.Info("availability disarmed", zap.String("date", h.Date))
}

func (t *Tracker) disarmCurrent() {
	if h, ok := t.Current(); ok {
		t.Disarm(h)
	}
}

// Current returns the active handle, if any.
func (t *Tracker) Current() (Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Handle{}, false
	}
	return t.current.handle, true
}

// Snapshot returns a copy the caller may keep.
func (t *Tracker) Snapshot() domain.AvailabilitySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot.Clone()
}

func (t *Tracker) apply(handleID uint64, rb domain.ResourceBookings) {
	t.mu.Lock()

	a := t.current
	if a == nil || a.handle.id != handleID || a.handle.Date != rb.Date || !a.known[rb.ResourceID] {
		t.mu.Unlock()
		t.log.Debug("discarding push for inactive scope",
			zap.String("barber_id", rb.ResourceID),
			zap.String("date", rb.Date),
			zap.Uint64("seq", rb.Seq),
		)
		return
	}

	if cur, ok := t.snapshot[rb.ResourceID]; ok && rb.Seq <= cur.Seq {
		t.mu.Unlock()
		t.log.Debug("discarding stale push",
			zap.String("barber_id", rb.ResourceID),
			zap.Uint64("seq", rb.Seq),
			zap.Uint64("stored_seq", cur.Seq),
		)
		return
	}

	t.snapshot[rb.ResourceID] = domain.ResourceAvailability{
		Seq:       rb.Seq,
		Intervals: domain.BusyFrom(rb.Bookings, t.buffer),
	}
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}
