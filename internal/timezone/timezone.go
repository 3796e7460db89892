package timezone

import "time"

const DefaultTimezone = "Asia/Riyadh"

func IsValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// Location falls back to the shop default for an empty or unknown name.
func Location(tz string) *time.Location {
	if IsValid(tz) {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}

	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		// no tzdata on the host; Riyadh has no DST
		return time.FixedZone("AST", 3*60*60)
	}
	return loc
}

// Clock reports the current time in a fixed location.
type Clock struct {
	loc *time.Location
}

func NewClock(tz string) Clock {
	return Clock{loc: Location(tz)}
}

func (c Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c Clock) Location() *time.Location {
	return c.loc
}
