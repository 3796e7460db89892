package booking

import (
	"sync"
	"time"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
)

// slotBoard holds the visible slots of the armed date and resolves them
// again, in full, whenever the tracker reports a change.
type slotBoard struct {
	tracker *Tracker
	sink    domain.Sink
	buffer  int

	mu        sync.Mutex
	starts    []time.Time
	duration  int
	resources []domain.Resource
	slots     []domain.TimeSlot
}

func newSlotBoard(tracker *Tracker, sink domain.Sink, bufferMinutes int) *slotBoard {
	b := &slotBoard{
		tracker: tracker,
		sink:    sink,
		buffer:  bufferMinutes,
	}
	tracker.OnChange(b.Recompute)
	return b
}

// Configure replaces the candidate starts without notifying.
func (b *slotBoard) Configure(starts []time.Time, durationMinutes int, resources []domain.Resource) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.starts = make([]time.Time, len(starts))
	copy(b.starts, starts)
	b.duration = durationMinutes
	b.resources = append([]domain.Resource(nil), resources...)
	b.slots = nil
}

func (b *slotBoard) Recompute() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.starts == nil {
		return
	}

	b.slots = domain.ResolveAll(b.starts, b.duration, b.buffer, b.tracker.Snapshot(), b.resources)
	b.sink.OnSlotsChanged(copySlots(b.slots))
}

func (b *slotBoard) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasShown := b.starts != nil
	b.starts = nil
	b.resources = nil
	b.slots = nil
	if wasShown {
		b.sink.OnSlotsChanged([]domain.TimeSlot{})
	}
}

func (b *slotBoard) Slots() []domain.TimeSlot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copySlots(b.slots)
}

func (b *slotBoard) Find(start time.Time) (domain.TimeSlot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	slot, ok := domain.FindSlot(b.slots, start)
	if ok {
		slot.EligibleResourceIDs = append([]string(nil), slot.EligibleResourceIDs...)
	}
	return slot, ok
}

func copySlots(in []domain.TimeSlot) []domain.TimeSlot {
	out := make([]domain.TimeSlot, len(in))
	for i, s := range in {
		s.EligibleResourceIDs = append([]string{}, s.EligibleResourceIDs...)
		out[i] = s
	}
	return out
}
