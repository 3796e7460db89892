package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Ekka-Barber/Bookings-sub000/internal/config"
	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/handlers"
	"github.com/Ekka-Barber/Bookings-sub000/internal/middleware"
	ucBooking "github.com/Ekka-Barber/Bookings-sub000/internal/usecase/booking"
)

const sseKeepAlive = 15 * time.Second

// Deps are the long-lived singletons built in main.
type Deps struct {
	Config      *config.Config
	Log         *zap.Logger
	Registry    *ucBooking.Registry
	Catalog     domain.CatalogStore
	Calendar    *ucBooking.ListCalendar
	Cancel      *ucBooking.ChangeStatus
	Confirm     *ucBooking.ChangeStatus
	Complete    *ucBooking.ChangeStatus
	CatalogData handlers.CatalogInvalidator
	Tokens      *middleware.TokenIssuer
	RateLimiter *middleware.RateLimiter
	Health      map[string]handlers.Pinger
}

func RegisterRoutes(r *gin.Engine, d Deps) {

	// ======================================================
	// MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.CORSMiddleware(config.SplitList(d.Config.CORSOrigins)))

	// ======================================================
	// HANDLERS
	// ======================================================
	healthHandler := handlers.NewHealthHandler(d.Health)
	catalogHandler := handlers.NewCatalogHandler(d.Catalog, d.Calendar)
	sessionHandler := handlers.NewSessionHandler(d.Registry, d.Tokens, d.Log)
	eventsHandler := handlers.NewEventsHandler(d.Registry, sseKeepAlive, d.Log)
	staffHandler := handlers.NewStaffHandler(d.Cancel, d.Confirm, d.Complete, d.CatalogData)

	r.GET("/health", healthHandler.Health)

	// ======================================================
	// API (JSON)
	// ======================================================
	api := r.Group("/api")
	api.Use(d.RateLimiter.Middleware(d.Log))
	{
		// ------------------------------
		// PUBLIC
		// ------------------------------
		api.GET("/catalog", catalogHandler.Catalog)
		api.GET("/calendar", catalogHandler.Calendar)
		api.POST("/sessions", sessionHandler.Create)

		// ------------------------------
		// BOOKING SESSION
		// ------------------------------
		session := api.Group("/session")
		session.Use(middleware.SessionAuth(d.Tokens))
		{
			session.GET("", sessionHandler.Get)
			session.DELETE("", sessionHandler.Cancel)
			session.GET("/slots", sessionHandler.Slots)
			session.GET("/barbers", sessionHandler.Barbers)
			session.GET("/events", eventsHandler.Stream)

			session.POST("/services/:id/toggle", sessionHandler.ToggleService)
			session.PUT("/date", sessionHandler.SetDate)
			session.PUT("/time", sessionHandler.SetTime)
			session.PUT("/barber", sessionHandler.SelectBarber)
			session.PUT("/customer", sessionHandler.SetCustomer)

			session.POST("/advance", sessionHandler.Advance)
			session.POST("/back", sessionHandler.Back)
			session.POST("/submit", sessionHandler.Submit)
		}

		// ------------------------------
		// STAFF
		// ------------------------------
		staff := api.Group("/staff")
		staff.Use(middleware.StaffAuth(d.Tokens))
		{
			staff.PATCH("/bookings/:id/confirm", staffHandler.ConfirmBooking)
			staff.PATCH("/bookings/:id/complete", staffHandler.CompleteBooking)
			staff.PATCH("/bookings/:id/cancel", staffHandler.CancelBooking)
			staff.POST("/catalog/refresh", staffHandler.RefreshCatalog)
		}
	}
}
