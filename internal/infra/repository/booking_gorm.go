package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
	"github.com/Ekka-Barber/Bookings-sub000/internal/models"
)

type BookingGormRepository struct {
	db            *gorm.DB
	bufferMinutes int
	loc           *time.Location
}

func NewBookingGormRepository(db *gorm.DB, bufferMinutes int, loc *time.Location) *BookingGormRepository {
	return &BookingGormRepository{db: db, bufferMinutes: bufferMinutes, loc: loc}
}

// --------------------------------------------------
// Create
// --------------------------------------------------

// CreateBooking locks the barber row so concurrent creates for the same
// barber serialise, then refuses any overlap with a non-cancelled booking.
// The exclusion constraint installed by the migration is the last word.
func (r *BookingGormRepository) CreateBooking(
	ctx context.Context,
	req domain.BookingRequest,
) (string, error) {

	start := req.DateTime
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)
	busyUntil := end.Add(time.Duration(r.bufferMinutes) * time.Minute)

	booking := models.Booking{
		BarberID:      req.ResourceID,
		ServiceIDs:    req.ServiceIDs,
		CustomerName:  req.Customer.Name,
		CustomerPhone: req.Customer.Phone,
		StartTime:     start,
		EndTime:       end,
		BusyUntil:     busyUntil,
		DurationMin:   req.DurationMinutes,
		TotalPrice:    req.TotalPrice,
		Status:        string(req.Status),
		CreatedAt:     req.CreatedAt,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var barber models.Barber
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", req.ResourceID).
			First(&barber).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httperr.NotFound("barber_not_found", "Barber not found.")
			}
			return err
		}
		if !barber.Active {
			return httperr.Conflict("barber_unavailable", "This barber is not taking bookings.")
		}

		var count int64
		if err := tx.
			Model(&models.Booking{}).
			Where(
				"barber_id = ? AND status <> ? AND start_time < ? AND busy_until > ?",
				req.ResourceID,
				string(domain.StatusCancelled),
				busyUntil,
				start,
			).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return httperr.Conflict("slot_taken", "This time was just booked, please pick another.")
		}

		return tx.Create(&booking).Error
	})

	if err != nil {
		var be *httperr.BusinessError
		switch {
		case errors.As(err, &be):
			return "", err
		case httperr.IsExclusionConflict(err):
			return "", httperr.Conflict("slot_taken", "This time was just booked, please pick another.")
		default:
			return "", httperr.Network("booking_create_failed", err)
		}
	}

	return booking.ID, nil
}

// --------------------------------------------------
// Availability
// --------------------------------------------------

// ListBookingsForDay returns the barber's non-cancelled bookings starting
// on date, in the shop's timezone.
func (r *BookingGormRepository) ListBookingsForDay(
	ctx context.Context,
	barberID string,
	date string,
) ([]domain.ExistingBooking, error) {

	day, err := domain.ParseDate(date, r.loc)
	if err != nil {
		return nil, httperr.Validation("invalid_date", "Invalid date.")
	}

	var rows []models.Booking
	if err := r.db.WithContext(ctx).
		Select("id", "barber_id", "start_time", "duration_min", "status").
		Where(
			"barber_id = ? AND status <> ? AND start_time >= ? AND start_time < ?",
			barberID,
			string(domain.StatusCancelled),
			day,
			day.AddDate(0, 0, 1),
		).
		Order("start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.ExistingBooking, 0, len(rows))
	for _, b := range rows {
		out = append(out, toExisting(b, r.loc))
	}
	return out, nil
}

// --------------------------------------------------
// Staff
// --------------------------------------------------

func (r *BookingGormRepository) GetBooking(
	ctx context.Context,
	id string,
) (*domain.ExistingBooking, error) {

	var b models.Booking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("booking_not_found", "Booking not found.")
		}
		return nil, err
	}

	existing := toExisting(b, r.loc)
	return &existing, nil
}

func (r *BookingGormRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.Status,
	at time.Time,
) error {

	updates := map[string]any{"status": string(status)}
	switch status {
	case domain.StatusCancelled:
		updates["cancelled_at"] = at
	case domain.StatusCompleted:
		updates["completed_at"] = at
	}

	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return httperr.NotFound("booking_not_found", "Booking not found.")
	}
	return nil
}

func toExisting(b models.Booking, loc *time.Location) domain.ExistingBooking {
	return domain.ExistingBooking{
		ID:              b.ID,
		ResourceID:      b.BarberID,
		DateTime:        b.StartTime.In(loc),
		DurationMinutes: b.DurationMin,
		Status:          domain.Status(b.Status),
	}
}

// Compile-time checks
var _ domain.BookingRepository = (*BookingGormRepository)(nil)
