package booking

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ekka-Barber/Bookings-sub000/internal/audit"
	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
)

// ChangeStatus is a staff action moving a stored booking to another status.
// Every armed tracker for that barber and date gets a fresh push afterwards.
type ChangeStatus struct {
	to     domain.Status
	guard  func(domain.Status) error
	action string

	repo     domain.BookingRepository
	notifier domain.ChangeNotifier
	clock    domain.Clock
	audit    *audit.Dispatcher
	log      *zap.Logger
}

func newChangeStatus(
	to domain.Status,
	guard func(domain.Status) error,
	action string,
	repo domain.BookingRepository,
	notifier domain.ChangeNotifier,
	clock domain.Clock,
	audit *audit.Dispatcher,
	log *zap.Logger,
) *ChangeStatus {
	return &ChangeStatus{
		to:       to,
		guard:    guard,
		action:   action,
		repo:     repo,
		notifier: notifier,
		clock:    clock,
		audit:    audit,
		log:      log,
	}
}

// NewCancelBooking frees the barber's time.
func NewCancelBooking(repo domain.BookingRepository, notifier domain.ChangeNotifier, clock domain.Clock, audit *audit.Dispatcher, log *zap.Logger) *ChangeStatus {
	return newChangeStatus(domain.StatusCancelled, domain.CanCancel, "booking_cancelled", repo, notifier, clock, audit, log)
}

func NewConfirmBooking(repo domain.BookingRepository, notifier domain.ChangeNotifier, clock domain.Clock, audit *audit.Dispatcher, log *zap.Logger) *ChangeStatus {
	return newChangeStatus(domain.StatusConfirmed, domain.CanConfirm, "booking_confirmed", repo, notifier, clock, audit, log)
}

func NewCompleteBooking(repo domain.BookingRepository, notifier domain.ChangeNotifier, clock domain.Clock, audit *audit.Dispatcher, log *zap.Logger) *ChangeStatus {
	return newChangeStatus(domain.StatusCompleted, domain.CanComplete, "booking_completed", repo, notifier, clock, audit, log)
}

func (uc *ChangeStatus) Execute(
	ctx context.Context,
	staffID string,
	bookingID string,
) (*domain.ExistingBooking, error) {

	b, err := uc.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := uc.guard(b.Status); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	if err := uc.repo.UpdateStatus(ctx, b.ID, uc.to, now); err != nil {
		return nil, err
	}
	from := b.Status
	b.Status = uc.to

	date := b.DateTime.Format(domain.DateLayout)
	if err := uc.notifier.NotifyChanged(ctx, b.ResourceID, date); err != nil {
		// subscribers catch up on the next change for this barber and date
		uc.log.Warn("change notification failed",
			zap.String("booking_id", b.ID),
			zap.String("barber_id", b.ResourceID),
			zap.Error(err),
		)
	}

	uc.audit.Dispatch(audit.Event{
		Action:   uc.action,
		Entity:   "booking",
		EntityID: b.ID,
		Metadata: map[string]any{
			"staff_id": staffID,
			"from":     string(from),
		},
	})
	uc.log.Info("booking status changed",
		zap.String("booking_id", b.ID),
		zap.String("from", string(from)),
		zap.String("to", string(uc.to)),
	)

	return b, nil
}
