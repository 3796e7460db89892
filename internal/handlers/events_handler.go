package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/dto"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
	"github.com/Ekka-Barber/Bookings-sub000/internal/middleware"
	ucBooking "github.com/Ekka-Barber/Bookings-sub000/internal/usecase/booking"
)

const eventBuffer = 32

// EventsHandler streams a session's notifications as Server-Sent Events.
type EventsHandler struct {
	registry  *ucBooking.Registry
	keepAlive time.Duration
	log       *zap.Logger
}

func NewEventsHandler(registry *ucBooking.Registry, keepAlive time.Duration, log *zap.Logger) *EventsHandler {
	return &EventsHandler{registry: registry, keepAlive: keepAlive, log: log}
}

func (h *EventsHandler) Stream(c *gin.Context) {
	id := c.GetString(middleware.ContextSessionID)
	s, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	events, stop := s.Events.Listen(eventBuffer)
	defer stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// current state first, then changes
	c.SSEvent(ucBooking.EventDraft, dto.NewDraftResponse(s.Wizard.Draft()))
	c.SSEvent(ucBooking.EventSlots, dto.NewSlots(s.Wizard.Slots()))

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	h.log.Debug("event stream opened", zap.String("session_id", id))

	c.Stream(func(io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false

		case n, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(n.Event, payload(n))
			return h.registry.Touch(id)

		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return h.registry.Touch(id)
		}
	})

	h.log.Debug("event stream closed", zap.String("session_id", id))
}

func payload(n ucBooking.Notification) any {
	switch data := n.Data.(type) {
	case domain.Draft:
		return dto.NewDraftResponse(data)
	case []domain.TimeSlot:
		return dto.NewSlots(data)
	default:
		return data
	}
}
