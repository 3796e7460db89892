package booking

import (
	"sort"
	"time"
)

// Resolve decides which of activeResourceIDs can take a booking of
// durationMinutes starting at start. A resource qualifies when none of its
// busy intervals overlaps [start, start+duration+buffer). Resources without
// an entry in snapshot have no known bookings and qualify.
func Resolve(
	start time.Time,
	durationMinutes int,
	bufferMinutes int,
	snapshot AvailabilitySnapshot,
	activeResourceIDs []string,
) TimeSlot {

	end := start.Add(time.Duration(durationMinutes+bufferMinutes) * time.Minute)

	eligible := make([]string, 0, len(activeResourceIDs))
	for _, id := range activeResourceIDs {
		if isFree(snapshot[id].Intervals, start, end) {
			eligible = append(eligible, id)
		}
	}

	return TimeSlot{
		Start:               start,
		Available:           len(eligible) > 0,
		EligibleResourceIDs: eligible,
	}
}

func isFree(intervals []BusyInterval, start, end time.Time) bool {
	for _, iv := range intervals {
		if iv.Overlaps(start, end) {
			return false
		}
	}
	return true
}

// ResolveAll resolves every start independently. For each start only the
// resources whose weekly profile covers it are considered.
func ResolveAll(
	starts []time.Time,
	durationMinutes int,
	bufferMinutes int,
	snapshot AvailabilitySnapshot,
	resources []Resource,
) []TimeSlot {

	out := make([]TimeSlot, 0, len(starts))
	for _, start := range starts {
		ids := EligibleResourceIDs(resources, start, durationMinutes)
		out = append(out, Resolve(start, durationMinutes, bufferMinutes, snapshot, ids))
	}
	return out
}

// EligibleResourceIDs returns, sorted, the ids of resources able to work
// [start, start+duration) ignoring bookings.
func EligibleResourceIDs(resources []Resource, start time.Time, durationMinutes int) []string {
	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		if r.CanTake(start, durationMinutes) {
			ids = append(ids, r.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// ActiveResourceIDs returns, sorted, the ids of active resources working on weekday.
func ActiveResourceIDs(resources []Resource, weekday time.Weekday) []string {
	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		if r.Active && r.WorksOn(weekday) {
			ids = append(ids, r.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// FindSlot returns the slot starting at start, if present.
func FindSlot(slots []TimeSlot, start time.Time) (TimeSlot, bool) {
	for _, s := range slots {
		if s.Start.Equal(start) {
			return s, true
		}
	}
	return TimeSlot{}, false
}

func (s TimeSlot) IsEligible(resourceID string) bool {
	for _, id := range s.EligibleResourceIDs {
		if id == resourceID {
			return true
		}
	}
	return false
}
