package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var riyadh = time.FixedZone("AST", 3*60*60)

func at(t *testing.T, date, hm string) time.Time {
	t.Helper()
	ts, err := CombineDateTime(date, hm, riyadh)
	require.NoError(t, err)
	return ts
}

func mustHours(t *testing.T, start, end string) WorkingHours {
	t.Helper()
	wh, err := ParseWorkingHours(start, end)
	require.NoError(t, err)
	return wh
}

func everyDay() map[time.Weekday]bool {
	days := map[time.Weekday]bool{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		days[d] = true
	}
	return days
}
