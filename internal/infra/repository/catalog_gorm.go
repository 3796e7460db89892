package repository

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/models"
)

// CatalogGormRepository converts catalog rows into domain types. Rows that
// would break the engine are dropped and logged.
type CatalogGormRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCatalogGormRepository(db *gorm.DB, log *zap.Logger) *CatalogGormRepository {
	return &CatalogGormRepository{db: db, log: log}
}

var _ domain.CatalogStore = (*CatalogGormRepository)(nil)

// --------------------------------------------------
// Services
// --------------------------------------------------

func (r *CatalogGormRepository) Categories(ctx context.Context) (map[string]domain.Category, error) {
	var rows []models.Category
	if err := r.db.WithContext(ctx).
		Preload("Services", "active = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]domain.Category, len(rows))
	for _, c := range rows {
		services := make(map[string]domain.Service, len(c.Services))
		for _, s := range c.Services {
			if s.DurationMin <= 0 || s.Price < 0 {
				r.log.Warn("invalid service dropped",
					zap.String("service_id", s.ID),
					zap.Int("duration_min", s.DurationMin),
					zap.Float64("price", s.Price),
				)
				continue
			}
			services[s.ID] = domain.Service{
				ID:              s.ID,
				CategoryID:      c.ID,
				Name:            s.Name,
				DurationMinutes: s.DurationMin,
				Price:           s.Price,
			}
		}
		out[c.ID] = domain.Category{ID: c.ID, Name: c.Name, Services: services}
	}
	return out, nil
}

// --------------------------------------------------
// Barbers
// --------------------------------------------------

func (r *CatalogGormRepository) Barbers(ctx context.Context) (map[string]domain.Resource, error) {
	var rows []models.Barber
	if err := r.db.WithContext(ctx).
		Preload("WorkingDays").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]domain.Resource, len(rows))
	for _, b := range rows {
		res, ok := r.toResource(b)
		if !ok {
			continue
		}
		out[res.ID] = res
	}
	return out, nil
}

func (r *CatalogGormRepository) toResource(b models.Barber) (domain.Resource, bool) {
	days := make(map[time.Weekday]bool, len(b.WorkingDays))
	for _, d := range b.WorkingDays {
		if d.Weekday < 0 || d.Weekday > 6 {
			r.log.Warn("invalid working day ignored",
				zap.String("barber_id", b.ID),
				zap.Int("weekday", d.Weekday),
			)
			continue
		}
		if d.Active {
			days[time.Weekday(d.Weekday)] = true
		}
	}

	res := domain.Resource{
		ID:          b.ID,
		Name:        b.Name,
		Active:      b.Active,
		WorkingDays: days,
	}

	if b.WorkStart == "" && b.WorkEnd == "" {
		return res, true
	}

	wh, err := domain.ParseWorkingHours(b.WorkStart, b.WorkEnd)
	if err != nil {
		r.log.Warn("barber with invalid hours dropped",
			zap.String("barber_id", b.ID),
			zap.Error(err),
		)
		return domain.Resource{}, false
	}
	res.WorkingHoursOverride = &wh
	return res, true
}
