package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ekka-Barber/Bookings-sub000/internal/dto"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httpresp"
	"github.com/Ekka-Barber/Bookings-sub000/internal/middleware"
	ucBooking "github.com/Ekka-Barber/Bookings-sub000/internal/usecase/booking"
)

// CatalogInvalidator drops cached catalog data after staff edit it.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

type StaffHandler struct {
	cancel   *ucBooking.ChangeStatus
	confirm  *ucBooking.ChangeStatus
	complete *ucBooking.ChangeStatus
	catalog  CatalogInvalidator
}

func NewStaffHandler(
	cancel *ucBooking.ChangeStatus,
	confirm *ucBooking.ChangeStatus,
	complete *ucBooking.ChangeStatus,
	catalog CatalogInvalidator,
) *StaffHandler {
	return &StaffHandler{
		cancel:   cancel,
		confirm:  confirm,
		complete: complete,
		catalog:  catalog,
	}
}

func (h *StaffHandler) CancelBooking(c *gin.Context)   { h.changeStatus(c, h.cancel) }
func (h *StaffHandler) ConfirmBooking(c *gin.Context)  { h.changeStatus(c, h.confirm) }
func (h *StaffHandler) CompleteBooking(c *gin.Context) { h.changeStatus(c, h.complete) }

func (h *StaffHandler) changeStatus(c *gin.Context, uc *ucBooking.ChangeStatus) {
	staffID := c.GetString(middleware.ContextStaffID)

	b, err := uc.Execute(c.Request.Context(), staffID, c.Param("id"))
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, dto.NewBookingStatus(*b))
}

// RefreshCatalog makes the next read of services and barbers hit the
// database.
func (h *StaffHandler) RefreshCatalog(c *gin.Context) {
	if err := h.catalog.Invalidate(c.Request.Context()); err != nil {
		httperr.FromError(c, httperr.Network("catalog_refresh_failed", err))
		return
	}
	c.Status(http.StatusNoContent)
}
