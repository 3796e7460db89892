package booking

import "time"

// GenerateSlots lists candidate starts on date, spaced intervalMinutes apart
// from the opening time. A start is kept only when it lies after now and the
// whole service fits before closing. The result is empty, never nil, when
// nothing fits.
func GenerateSlots(
	date time.Time,
	wh WorkingHours,
	intervalMinutes int,
	totalDurationMinutes int,
	now time.Time,
) []time.Time {

	slots := []time.Time{}
	if intervalMinutes <= 0 || totalDurationMinutes <= 0 {
		return slots
	}

	dayStart, dayEnd := wh.Window(date)
	step := time.Duration(intervalMinutes) * time.Minute
	duration := time.Duration(totalDurationMinutes) * time.Minute

	for cur := dayStart; cur.Before(dayEnd); cur = cur.Add(step) {
		if cur.Add(duration).After(dayEnd) {
			break
		}
		if !cur.After(now) {
			continue
		}
		slots = append(slots, cur)
	}

	return slots
}

// ParseDate reads an ISO date in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, loc)
}

// CombineDateTime joins an ISO date and an HH:MM time in loc.
func CombineDateTime(date, hm string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+hm, loc)
}
