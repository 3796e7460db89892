package booking

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Ekka-Barber/Bookings-sub000/internal/audit"
	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

var errSubmitting = httperr.Validation("submission_in_progress", "Your booking is already being sent.")

// ======================================================
// USE CASE
// ======================================================

// Submission turns a complete draft into one create call on the store.
// At most one call is in flight; overlapping calls are rejected.
type Submission struct {
	sessionID   string
	maxServices int
	store       domain.BookingStore
	clock       domain.Clock
	audit       *audit.Dispatcher
	log         *zap.Logger

	busy atomic.Bool
}

func NewSubmission(
	sessionID string,
	maxServices int,
	store domain.BookingStore,
	clock domain.Clock,
	audit *audit.Dispatcher,
	log *zap.Logger,
) *Submission {
	return &Submission{
		sessionID:   sessionID,
		maxServices: maxServices,
		store:       store,
		clock:       clock,
		audit:       audit,
		log:         log,
	}
}

func (s *Submission) begin() bool { return s.busy.CompareAndSwap(false, true) }

func (s *Submission) end() { s.busy.Store(false) }

// ======================================================
// EXECUTE
// ======================================================

func (s *Submission) Execute(ctx context.Context, d domain.Draft) (string, error) {

	// --------------------------------------------------
	// Draft checked on its own, whatever the wizard step
	// --------------------------------------------------
	if err := domain.ValidateForSubmission(d, s.maxServices); err != nil {
		return "", err
	}

	now := s.clock.Now()
	if !d.DateTime.After(now) {
		return "", httperr.Validation("slot_in_past", "This time has already passed, please choose another.")
	}

	req := domain.NewBookingRequest(d, now)

	// --------------------------------------------------
	// Create, never retried here
	// --------------------------------------------------
	id, err := s.store.CreateBooking(ctx, req)
	if err != nil {
		err = classify("booking_create_failed", err)

		if httperr.KindOf(err) == httperr.KindConflict {
			s.log.Info("booking rejected, slot taken",
				zap.String("barber_id", req.ResourceID),
				zap.Time("start", req.DateTime),
			)
			s.audit.Dispatch(audit.Event{
				SessionID: s.sessionID,
				Action:    "booking_conflict",
				Entity:    "booking",
				Metadata: map[string]any{
					"barber_id": req.ResourceID,
					"start":     req.DateTime,
				},
			})
		} else {
			s.log.Error("booking create failed", zap.Error(err))
		}
		return "", err
	}

	// --------------------------------------------------
	// Audit
	// --------------------------------------------------
	s.audit.Dispatch(audit.Event{
		SessionID: s.sessionID,
		Action:    "booking_created",
		Entity:    "booking",
		EntityID:  id,
		Metadata: map[string]any{
			"barber_id":    req.ResourceID,
			"start":        req.DateTime,
			"service_ids":  req.ServiceIDs,
			"duration_min": req.DurationMinutes,
			"total_price":  req.TotalPrice,
		},
	})
	s.log.Info("booking created",
		zap.String("booking_id", id),
		zap.String("barber_id", req.ResourceID),
		zap.Time("start", req.DateTime),
	)

	return id, nil
}

// ======================================================
// WIZARD ENTRY POINT
// ======================================================

// Submit sends the current draft. On success the draft passes through the
// submitted step and is reset; on failure it is kept for a retry, and a
// conflict refreshes availability first.
func (w *Wizard) Submit(ctx context.Context) (string, error) {
	if !w.submission.begin() {
		return "", w.report(errSubmitting)
	}
	defer w.submission.end()

	if err := w.acquire(); err != nil {
		return "", w.report(err)
	}
	if w.draft.Step != domain.StepConfirm {
		w.mu.Unlock()
		return "", w.report(httperr.Validation("invalid_step", "Please review your booking before sending it."))
	}
	d := w.draft.Clone()
	w.busy = true
	w.mu.Unlock()

	id, err := w.submission.Execute(ctx, d)

	w.mu.Lock()
	defer w.mu.Unlock()
	if rerr := w.resumeLocked(); rerr != nil {
		if err != nil {
			return "", rerr
		}
		return id, nil
	}

	if err != nil {
		if httperr.KindOf(err) == httperr.KindConflict {
			w.refreshLocked(ctx)
		}
		return "", w.report(err)
	}

	w.draft.Step = domain.StepSubmitted
	w.notifyLocked()
	w.resetLocked(ctx)
	return id, nil
}

func (w *Wizard) refreshLocked(ctx context.Context) {
	if _, err := w.tracker.Refresh(ctx); err != nil {
		w.log.Warn("availability refresh failed", zap.Error(err))
		return
	}
	w.board.Recompute()
}
