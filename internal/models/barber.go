package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Barber struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	Name   string `gorm:"size:100;not null" json:"name"`
	Active bool   `gorm:"default:true" json:"active"`

	// Optional per-barber hours, "HH:MM". Both empty means shop hours.
	WorkStart string `gorm:"size:5" json:"work_start"`
	WorkEnd   string `gorm:"size:5" json:"work_end"`

	WorkingDays []BarberWorkingDay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"working_days"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Barber) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// BarberWorkingDay is one entry of the static weekly profile.
type BarberWorkingDay struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	BarberID string `gorm:"type:uuid;uniqueIndex:idx_barber_weekday;not null" json:"barber_id"`

	Weekday int  `gorm:"uniqueIndex:idx_barber_weekday" json:"weekday"`
	Active  bool `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
