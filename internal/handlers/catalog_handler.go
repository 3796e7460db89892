package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/dto"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httpresp"
	ucBooking "github.com/Ekka-Barber/Bookings-sub000/internal/usecase/booking"
)

const defaultCalendarDays = 30

type CatalogHandler struct {
	catalog  domain.CatalogStore
	calendar *ucBooking.ListCalendar
}

func NewCatalogHandler(catalog domain.CatalogStore, calendar *ucBooking.ListCalendar) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, calendar: calendar}
}

func (h *CatalogHandler) Catalog(c *gin.Context) {
	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		httperr.FromError(c, httperr.Network("catalog_unavailable", err))
		return
	}
	httpresp.List(c, dto.NewCatalog(categories))
}

// Calendar answers GET /api/calendar?from=YYYY-MM-DD&days=N. from
// defaults to today.
func (h *CatalogHandler) Calendar(c *gin.Context) {
	from := c.DefaultQuery("from", h.calendar.Today())

	days := defaultCalendarDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httperr.BadRequest(c, "invalid_days", "days must be a number.")
			return
		}
		days = n
	}

	out, err := h.calendar.Execute(c.Request.Context(), from, days)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.List(c, out)
}
