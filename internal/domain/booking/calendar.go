package booking

import "time"

// DateRules is everything needed to decide whether a calendar day can be
// offered at all.
type DateRules struct {
	Holidays  map[string]bool
	Resources []Resource
	Now       time.Time
}

// IsDateDisabled reports whether date is in the past, a holiday, or a day
// on which no active resource works.
func IsDateDisabled(date time.Time, rules DateRules) bool {
	today := startOfDay(rules.Now.In(date.Location()))
	if startOfDay(date).Before(today) {
		return true
	}

	if rules.Holidays[date.Format(DateLayout)] {
		return true
	}

	weekday := date.Weekday()
	for _, r := range rules.Resources {
		if r.Active && r.WorksOn(weekday) {
			return false
		}
	}
	return true
}

// ParseHolidays converts ISO dates into a lookup set.
func ParseHolidays(dates []string) (map[string]bool, error) {
	out := make(map[string]bool, len(dates))
	for _, d := range dates {
		t, err := time.Parse(DateLayout, d)
		if err != nil {
			return nil, err
		}
		out[t.Format(DateLayout)] = true
	}
	return out, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
