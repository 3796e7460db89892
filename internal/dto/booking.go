package dto

import (
	"sort"
	"time"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
)

type DraftResponse struct {
	Draft         domain.Draft `json:"draft"`
	StepName      string       `json:"step_name"`
	TotalDuration int          `json:"total_duration"`
	TotalPrice    float64      `json:"total_price"`
}

func NewDraftResponse(d domain.Draft) DraftResponse {
	return DraftResponse{
		Draft:         d,
		StepName:      d.Step.String(),
		TotalDuration: d.TotalDuration(),
		TotalPrice:    d.TotalPrice(),
	}
}

type SessionCreatedResponse struct {
	SessionID string        `json:"session_id"`
	Token     string        `json:"token"`
	Draft     DraftResponse `json:"draft"`
}

type BookingCreatedResponse struct {
	BookingID string        `json:"booking_id"`
	Draft     DraftResponse `json:"draft"`
}

// --------------------------------------------------
// Slots
// --------------------------------------------------

type SlotDTO struct {
	Time      string    `json:"time"`
	Start     time.Time `json:"start"`
	Available bool      `json:"available"`
	BarberIDs []string  `json:"barber_ids"`
}

func NewSlots(slots []domain.TimeSlot) []SlotDTO {
	out := make([]SlotDTO, 0, len(slots))
	for _, s := range slots {
		ids := s.EligibleResourceIDs
		if ids == nil {
			ids = []string{}
		}
		out = append(out, SlotDTO{
			Time:      s.Start.Format(domain.TimeLayout),
			Start:     s.Start,
			Available: s.Available,
			BarberIDs: ids,
		})
	}
	return out
}

// --------------------------------------------------
// Catalog
// --------------------------------------------------

type BarberDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewBarbers(resources []domain.Resource) []BarberDTO {
	out := make([]BarberDTO, 0, len(resources))
	for _, r := range resources {
		out = append(out, BarberDTO{ID: r.ID, Name: r.Name})
	}
	return out
}

type ServiceDTO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
}

type CategoryDTO struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Services []ServiceDTO `json:"services"`
}

// NewCatalog orders categories and their services by name.
func NewCatalog(categories map[string]domain.Category) []CategoryDTO {
	out := make([]CategoryDTO, 0, len(categories))
	for _, c := range categories {
		services := make([]ServiceDTO, 0, len(c.Services))
		for _, s := range c.Services {
			services = append(services, ServiceDTO{
				ID:              s.ID,
				Name:            s.Name,
				DurationMinutes: s.DurationMinutes,
				Price:           s.Price,
			})
		}
		sort.Slice(services, func(i, j int) bool {
			if services[i].Name == services[j].Name {
				return services[i].ID < services[j].ID
			}
			return services[i].Name < services[j].Name
		})
		out = append(out, CategoryDTO{ID: c.ID, Name: c.Name, Services: services})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// --------------------------------------------------
// Staff
// --------------------------------------------------

type BookingStatusDTO struct {
	ID       string        `json:"id"`
	BarberID string        `json:"barber_id"`
	Start    time.Time     `json:"start"`
	Status   domain.Status `json:"status"`
}

func NewBookingStatus(b domain.ExistingBooking) BookingStatusDTO {
	return BookingStatusDTO{ID: b.ID, BarberID: b.ResourceID, Start: b.DateTime, Status: b.Status}
}
