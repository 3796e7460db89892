package booking

import (
	"context"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

const MaxCalendarDays = 62

type CalendarDay struct {
	Date     string `json:"date"`
	Disabled bool   `json:"disabled"`
}

// ListCalendar reports, day by day, which dates can be offered.
type ListCalendar struct {
	catalog domain.CatalogStore
	clock   domain.Clock
	cfg     Config
}

func NewListCalendar(catalog domain.CatalogStore, clock domain.Clock, cfg Config) *ListCalendar {
	return &ListCalendar{catalog: catalog, clock: clock, cfg: cfg}
}

func (uc *ListCalendar) Execute(ctx context.Context, from string, days int) ([]CalendarDay, error) {
	if days <= 0 || days > MaxCalendarDays {
		return nil, httperr.Validation("invalid_days", "days must be between 1 and 62.")
	}

	start, err := domain.ParseDate(from, uc.cfg.Location)
	if err != nil {
		return nil, httperr.Validation("invalid_date", "Date must look like 2006-01-02.")
	}

	barbers, err := uc.catalog.Barbers(ctx)
	if err != nil {
		return nil, classify("catalog_unavailable", err)
	}

	rules := domain.DateRules{
		Holidays:  uc.cfg.Holidays,
		Resources: domain.SortedResources(barbers),
		Now:       uc.clock.Now(),
	}

	out := make([]CalendarDay, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		out = append(out, CalendarDay{
			Date:     day.Format(domain.DateLayout),
			Disabled: domain.IsDateDisabled(day, rules),
		})
	}
	return out, nil
}

// Today is the current date in the shop's timezone.
func (uc *ListCalendar) Today() string {
	return uc.clock.Now().In(uc.cfg.Location).Format(domain.DateLayout)
}
