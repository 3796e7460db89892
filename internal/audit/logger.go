package audit

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/Ekka-Barber/Bookings-sub000/internal/models"
)

// Logger persists events into audit_logs.
type Logger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Logger {
	return &Logger{db: db}
}

func (l *Logger) Write(ctx context.Context, ev Event) error {
	var metaJSON string
	if ev.Metadata != nil {
		if b, err := json.Marshal(ev.Metadata); err == nil {
			metaJSON = string(b)
		}
	}

	log := models.AuditLog{
		SessionID: ev.SessionID,
		Action:    ev.Action,
		Entity:    ev.Entity,
		EntityID:  ev.EntityID,
		Metadata:  metaJSON,
		CreatedAt: ev.At,
	}

	return l.db.WithContext(ctx).Create(&log).Error
}
