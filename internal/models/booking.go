package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Booking struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`

	BarberID string `gorm:"type:uuid;index:idx_booking_barber_start;not null" json:"barber_id"`
	Barber   Barber `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`

	ServiceIDs []string `gorm:"type:jsonb;serializer:json;not null" json:"service_ids"`

	CustomerName  string `gorm:"size:100;not null" json:"customer_name"`
	CustomerPhone string `gorm:"size:20;not null" json:"customer_phone"`

	StartTime time.Time `gorm:"index:idx_booking_barber_start;not null" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`
	// BusyUntil is EndTime plus the buffer the barber needs before the next client.
	BusyUntil time.Time `gorm:"not null" json:"busy_until"`

	DurationMin int     `gorm:"not null" json:"duration_min"`
	TotalPrice  float64 `gorm:"type:numeric(10,2);not null" json:"total_price"`

	Status string `gorm:"size:20;default:'pending'" json:"status"`

	CancelledAt *time.Time `json:"cancelled_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
