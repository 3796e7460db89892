package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Ekka-Barber/Bookings-sub000/internal/dto"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httpresp"
	"github.com/Ekka-Barber/Bookings-sub000/internal/middleware"
	ucBooking "github.com/Ekka-Barber/Bookings-sub000/internal/usecase/booking"
)

// ======================================================
// HANDLER
// ======================================================

type SessionHandler struct {
	registry *ucBooking.Registry
	tokens   *middleware.TokenIssuer
	log      *zap.Logger
}

func NewSessionHandler(
	registry *ucBooking.Registry,
	tokens *middleware.TokenIssuer,
	log *zap.Logger,
) *SessionHandler {
	return &SessionHandler{registry: registry, tokens: tokens, log: log}
}

// ======================================================
// REQUESTS
// ======================================================

type SetDateRequest struct {
	Date string `json:"date" binding:"required"`
}

type SetTimeRequest struct {
	Time string `json:"time" binding:"required"`
}

type SelectBarberRequest struct {
	BarberID string `json:"barber_id" binding:"required"`
}

type SetCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// ======================================================
// HELPERS
// ======================================================

func (h *SessionHandler) session(c *gin.Context) (*ucBooking.Session, bool) {
	id := c.GetString(middleware.ContextSessionID)
	s, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		httperr.FromError(c, err)
		return nil, false
	}
	return s, true
}

// mutate runs fn against the caller's wizard and answers with the
// resulting draft.
func (h *SessionHandler) mutate(c *gin.Context, fn func(w *ucBooking.Wizard) error) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := fn(s.Wizard); err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, dto.NewDraftResponse(s.Wizard.Draft()))
}

// ======================================================
// LIFECYCLE
// ======================================================

func (h *SessionHandler) Create(c *gin.Context) {
	s, err := h.registry.Create(c.Request.Context())
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	token, err := h.tokens.IssueSession(s.ID)
	if err != nil {
		h.log.Error("session token not signed", zap.Error(err))
		h.registry.Remove(s.ID)
		httperr.Internal(c, "token_error", "Could not start a booking session.")
		return
	}

	httpresp.Created(c, dto.SessionCreatedResponse{
		SessionID: s.ID,
		Token:     token,
		Draft:     dto.NewDraftResponse(s.Wizard.Draft()),
	})
}

func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	httpresp.OK(c, dto.NewDraftResponse(s.Wizard.Draft()))
}

// Cancel abandons the booking in progress; the session itself stays.
func (h *SessionHandler) Cancel(c *gin.Context) {
	h.mutate(c, func(w *ucBooking.Wizard) error {
		return w.Reset(c.Request.Context())
	})
}

// ======================================================
// READ SIDE
// ======================================================

func (h *SessionHandler) Slots(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	httpresp.List(c, dto.NewSlots(s.Wizard.Slots()))
}

func (h *SessionHandler) Barbers(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	httpresp.List(c, dto.NewBarbers(s.Wizard.AvailableBarbers()))
}

// ======================================================
// MUTATIONS
// ======================================================

func (h *SessionHandler) ToggleService(c *gin.Context) {
	serviceID := c.Param("id")
	h.mutate(c, func(w *ucBooking.Wizard) error {
		return w.ToggleService(c.Request.Context(), serviceID)
	})
}

func (h *SessionHandler) SetDate(c *gin.Context) {
	var req SetDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "date is required.")
		return
	}
	h.mutate(c, func(w *ucBooking.Wizard) error {
		return w.SetDate(c.Request.Context(), req.Date)
	})
}

func (h *SessionHandler) SetTime(c *gin.Context) {
	var req SetTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "time is required.")
		return
	}
	h.mutate(c, func(w *ucBooking.Wizard) error {
		return w.SetTime(c.Request.Context(), req.Time)
	})
}

func (h *SessionHandler) SelectBarber(c *gin.Context) {
	var req SelectBarberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "barber_id is required.")
		return
	}
	h.mutate(c, func(w *ucBooking.Wizard) error {
		return w.SelectResource(c.Request.Context(), req.BarberID)
	})
}

func (h *SessionHandler) SetCustomer(c *gin.Context) {
	var req SetCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid customer details.")
		return
	}
	h.mutate(c, func(w *ucBooking.Wizard) error {
		return w.SetCustomer(c.Request.Context(), req.Name, req.Phone)
	})
}

func (h *SessionHandler) Back(c *gin.Context) {
	h.mutate(c, func(w *ucBooking.Wizard) error {
		return w.Back(c.Request.Context())
	})
}

// Advance moves one step forward. From the confirmation step it books.
func (h *SessionHandler) Advance(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	bookingID, err := s.Wizard.Advance(c.Request.Context())
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	h.respondAfterSubmit(c, s, bookingID)
}

func (h *SessionHandler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	bookingID, err := s.Wizard.Submit(c.Request.Context())
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	h.respondAfterSubmit(c, s, bookingID)
}

func (h *SessionHandler) respondAfterSubmit(c *gin.Context, s *ucBooking.Session, bookingID string) {
	draft := dto.NewDraftResponse(s.Wizard.Draft())
	if bookingID == "" {
		c.JSON(http.StatusOK, draft)
		return
	}
	httpresp.Created(c, dto.BookingCreatedResponse{BookingID: bookingID, Draft: draft})
}
