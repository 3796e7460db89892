package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string `gorm:"size:100;not null" json:"name"`
	SortOrder int    `gorm:"default:0" json:"sort_order"`

	Services []Service `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"services"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Service struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	CategoryID string `gorm:"type:uuid;index;not null" json:"category_id"`

	Name        string  `gorm:"size:100;not null" json:"name"`
	DurationMin int     `gorm:"not null" json:"duration_min"`
	Price       float64 `gorm:"type:numeric(10,2);not null" json:"price"`
	Active      bool    `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Service) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
