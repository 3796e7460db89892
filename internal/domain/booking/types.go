package booking

import (
	"fmt"
	"sort"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ===============================
// Reference data
// ===============================

type Service struct {
	ID              string  `json:"id"`
	CategoryID      string  `json:"category_id"`
	Name            string  `json:"name"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
}

type Category struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Services map[string]Service `json:"services"`
}

// WorkingHours is a daily window expressed in minutes after midnight.
type WorkingHours struct {
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

// ParseWorkingHours parses a pair of "HH:MM" bounds.
func ParseWorkingHours(start, end string) (WorkingHours, error) {
	s, err := parseHM(start)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("invalid start %q: %w", start, err)
	}
	e, err := parseHM(end)
	if err != nil {
		return WorkingHours{}, fmt.Errorf("invalid end %q: %w", end, err)
	}
	if e <= s {
		return WorkingHours{}, fmt.Errorf("working hours end %s must be after start %s", end, start)
	}
	return WorkingHours{StartMinute: s, EndMinute: e}, nil
}

func parseHM(hm string) (int, error) {
	t, err := time.Parse(TimeLayout, hm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Window returns the concrete [open, close) instants for the given day.
func (wh WorkingHours) Window(day time.Time) (time.Time, time.Time) {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return midnight.Add(time.Duration(wh.StartMinute) * time.Minute),
		midnight.Add(time.Duration(wh.EndMinute) * time.Minute)
}

func (wh WorkingHours) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d",
		wh.StartMinute/60, wh.StartMinute%60, wh.EndMinute/60, wh.EndMinute%60)
}

// Resource is a barber able to fulfil a booking.
type Resource struct {
	ID                   string                `json:"id"`
	Name                 string                `json:"name"`
	Active               bool                  `json:"active"`
	WorkingDays          map[time.Weekday]bool `json:"working_days"`
	WorkingHoursOverride *WorkingHours         `json:"working_hours_override,omitempty"`
}

func (r Resource) WorksOn(day time.Weekday) bool {
	return r.WorkingDays[day]
}

// CanTake reports whether the resource could serve [start, start+duration)
// ignoring existing bookings.
func (r Resource) CanTake(start time.Time, durationMinutes int) bool {
	if !r.Active || !r.WorksOn(start.Weekday()) {
		return false
	}
	if r.WorkingHoursOverride == nil {
		return true
	}
	open, closing := r.WorkingHoursOverride.Window(start)
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	return !start.Before(open) && !end.After(closing)
}

// ===============================
// Availability
// ===============================

// BusyInterval is half-open: [Start, End).
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && b.Start.Before(end)
}

// ExistingBooking is a booking pushed by the store for a resource and date.
type ExistingBooking struct {
	ID              string    `json:"id"`
	ResourceID      string    `json:"resource_id"`
	DateTime        time.Time `json:"date_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          Status    `json:"status"`
}

// BusyInterval maps the booking to the time its resource is unavailable.
func (b ExistingBooking) BusyInterval(bufferMinutes int) BusyInterval {
	return BusyInterval{
		Start: b.DateTime,
		End:   b.DateTime.Add(time.Duration(b.DurationMinutes+bufferMinutes) * time.Minute),
	}
}

// ResourceBookings is one push of the booking stream: the full set of a
// resource's bookings on Date, tagged with a per-resource sequence number.
type ResourceBookings struct {
	ResourceID string            `json:"resource_id"`
	Date       string            `json:"date"`
	Seq        uint64            `json:"seq"`
	Bookings   []ExistingBooking `json:"bookings"`
}

type ResourceAvailability struct {
	Seq       uint64         `json:"seq"`
	Intervals []BusyInterval `json:"intervals"`
}

// AvailabilitySnapshot maps resource id to its busy intervals.
type AvailabilitySnapshot map[string]ResourceAvailability

func (s AvailabilitySnapshot) Clone() AvailabilitySnapshot {
	out := make(AvailabilitySnapshot, len(s))
	for id, ra := range s {
		intervals := make([]BusyInterval, len(ra.Intervals))
		copy(intervals, ra.Intervals)
		out[id] = ResourceAvailability{Seq: ra.Seq, Intervals: intervals}
	}
	return out
}

// BusyFrom builds the ordered busy intervals for a push, skipping cancelled bookings.
func BusyFrom(bookings []ExistingBooking, bufferMinutes int) []BusyInterval {
	out := make([]BusyInterval, 0, len(bookings))
	for _, b := range bookings {
		if !b.Status.Blocks() {
			continue
		}
		out = append(out, b.BusyInterval(bufferMinutes))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

type TimeSlot struct {
	Start               time.Time `json:"start"`
	Available           bool      `json:"available"`
	EligibleResourceIDs []string  `json:"eligible_resource_ids"`
}

// ===============================
// Submission
// ===============================

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type BookingRequest struct {
	ServiceIDs      []string
	DateTime        time.Time
	ResourceID      string
	Customer        Customer
	DurationMinutes int
	TotalPrice      float64
	Status          Status
	CreatedAt       time.Time
}
