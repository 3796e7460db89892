package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Ekka-Barber/Bookings-sub000/internal/audit"
	"github.com/Ekka-Barber/Bookings-sub000/internal/config"
	dbpkg "github.com/Ekka-Barber/Bookings-sub000/internal/db"
	"github.com/Ekka-Barber/Bookings-sub000/internal/handlers"
	"github.com/Ekka-Barber/Bookings-sub000/internal/infra/cache"
	"github.com/Ekka-Barber/Bookings-sub000/internal/infra/draftstore"
	"github.com/Ekka-Barber/Bookings-sub000/internal/infra/realtime"
	infraRepo "github.com/Ekka-Barber/Bookings-sub000/internal/infra/repository"
	"github.com/Ekka-Barber/Bookings-sub000/internal/logger"
	"github.com/Ekka-Barber/Bookings-sub000/internal/middleware"
	"github.com/Ekka-Barber/Bookings-sub000/internal/routes"
	"github.com/Ekka-Barber/Bookings-sub000/internal/timezone"
	ucBooking "github.com/Ekka-Barber/Bookings-sub000/internal/usecase/booking"
)

const (
	sweepEvery      = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zlog, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := dbpkg.NewDB(cfg, zlog)
	if err != nil {
		return err
	}
	rdb, err := dbpkg.NewRedis(cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	clock := timezone.NewClock(cfg.Timezone)
	loc := clock.Location()

	// ======================================================
	// AUDIT
	// ======================================================
	writers := []audit.Writer{audit.New(db)}
	if brokers := config.SplitList(cfg.KafkaBrokers); len(brokers) > 0 {
		publisher := audit.NewPublisher(brokers, cfg.KafkaTopic)
		defer publisher.Close()
		writers = append(writers, publisher)
	}
	auditDispatcher := audit.NewDispatcher(zlog.Named("audit"), writers...)
	defer auditDispatcher.Close()

	// ======================================================
	// INFRA
	// ======================================================
	bookingRepo := infraRepo.NewBookingGormRepository(db, cfg.BufferTime, loc)
	catalogRepo := infraRepo.NewCatalogGormRepository(db, zlog.Named("catalog"))
	catalog := cache.NewCatalogCache(catalogRepo, rdb, cfg.CatalogCacheTTL, zlog.Named("cache"))
	feed := realtime.NewFeed(rdb, bookingRepo, bookingRepo, zlog.Named("feed"))

	// ======================================================
	// USE CASES
	// ======================================================
	engineCfg := ucBooking.Config{
		WorkingHours:    cfg.WorkingHours,
		IntervalMinutes: cfg.SlotInterval,
		BufferMinutes:   cfg.BufferTime,
		MaxServices:     cfg.MaxServices,
		Holidays:        cfg.Holidays,
		Location:        loc,
	}
	deps := ucBooking.Deps{
		Catalog:  catalog,
		Bookings: feed,
		Clock:    clock,
		Audit:    auditDispatcher,
		Log:      zlog.Named("booking"),
	}

	registry := ucBooking.NewRegistry(engineCfg, deps, draftstore.Factory(rdb, cfg.DraftTTL), cfg.SessionIdleTTL)
	registryDone := make(chan struct{})
	go func() {
		registry.Run(ctx, sweepEvery)
		close(registryDone)
	}()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMin)
	go pruneLimiter(ctx, limiter)

	// ======================================================
	// HTTP
	// ======================================================
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	staffLog := zlog.Named("staff")
	routes.RegisterRoutes(r, routes.Deps{
		Config:      cfg,
		Log:         zlog,
		Registry:    registry,
		Catalog:     catalog,
		Calendar:    ucBooking.NewListCalendar(catalog, clock, engineCfg),
		Cancel:      ucBooking.NewCancelBooking(bookingRepo, feed, clock, auditDispatcher, staffLog),
		Confirm:     ucBooking.NewConfirmBooking(bookingRepo, feed, clock, auditDispatcher, staffLog),
		Complete:    ucBooking.NewCompleteBooking(bookingRepo, feed, clock, auditDispatcher, staffLog),
		CatalogData: catalog,
		Tokens:      middleware.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL),
		RateLimiter: limiter,
		Health: map[string]handlers.Pinger{
			"database": handlers.PingFunc(func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}),
			"redis": handlers.PingFunc(func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}),
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server running", zap.String("addr", cfg.Addr()), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stop()
		<-registryDone
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("http shutdown incomplete", zap.Error(err))
	}
	<-registryDone
	return nil
}

func pruneLimiter(ctx context.Context, l *middleware.RateLimiter) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Prune(now.Add(-10 * time.Minute))
		}
	}
}
