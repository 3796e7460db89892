package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/infra/retry"
)

const seqTTL = 72 * time.Hour

type DayLister interface {
	ListBookingsForDay(ctx context.Context, resourceID string, date string) ([]domain.ExistingBooking, error)
}

type BookingWriter interface {
	CreateBooking(ctx context.Context, req domain.BookingRequest) (string, error)
}

// Feed is the booking stream: writers bump a per barber and date sequence
// in Redis and publish on a channel; subscribers refetch the day from the
// database on every message and push it tagged with that sequence.
type Feed struct {
	client *redis.Client
	lister DayLister
	writer BookingWriter
	log    *zap.Logger
}

func NewFeed(client *redis.Client, lister DayLister, writer BookingWriter, log *zap.Logger) *Feed {
	return &Feed{client: client, lister: lister, writer: writer, log: log}
}

var (
	_ domain.BookingStore   = (*Feed)(nil)
	_ domain.ChangeNotifier = (*Feed)(nil)
)

func channelName(resourceID, date string) string {
	return fmt.Sprintf("bookings:changed:%s:%s", resourceID, date)
}

func seqKey(resourceID, date string) string {
	return fmt.Sprintf("bookings:seq:%s:%s", resourceID, date)
}

// --------------------------------------------------
// Write side
// --------------------------------------------------

// CreateBooking stores the booking and then announces the change. A failed
// announcement is logged only: the booking exists either way.
func (f *Feed) CreateBooking(ctx context.Context, req domain.BookingRequest) (string, error) {
	id, err := f.writer.CreateBooking(ctx, req)
	if err != nil {
		return "", err
	}

	date := req.DateTime.Format(domain.DateLayout)
	if err := f.NotifyChanged(ctx, req.ResourceID, date); err != nil {
		f.log.Warn("booking change not published",
			zap.String("booking_id", id),
			zap.String("barber_id", req.ResourceID),
			zap.Error(err),
		)
	}
	return id, nil
}

// NotifyChanged must run after the change is committed.
func (f *Feed) NotifyChanged(ctx context.Context, resourceID, date string) error {
	key := seqKey(resourceID, date)

	seq, err := f.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if err := f.client.Expire(ctx, key, seqTTL).Err(); err != nil {
		f.log.Debug("seq expire failed", zap.String("key", key), zap.Error(err))
	}

	return f.client.Publish(ctx, channelName(resourceID, date), seq).Err()
}

// --------------------------------------------------
// Read side
// --------------------------------------------------

func (f *Feed) SubscribeToResourceBookings(
	ctx context.Context,
	resourceID string,
	date string,
	onSnapshot func(domain.ResourceBookings),
) (func(), error) {

	ps := f.client.Subscribe(ctx, channelName(resourceID, date))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	// subscribed first, so a change landing now is still announced to us
	if err := f.push(ctx, resourceID, date, onSnapshot); err != nil {
		_ = ps.Close()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(context.Background())
	messages := ps.Channel()

	go func() {
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				if err := f.push(subCtx, resourceID, date, onSnapshot); err != nil && subCtx.Err() == nil {
					f.log.Warn("availability refetch failed",
						zap.String("barber_id", resourceID),
						zap.String("date", date),
						zap.Error(err),
					)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = ps.Close()
		})
	}, nil
}

// push reads the sequence before the bookings, so the data pushed is never
// older than the sequence it carries.
func (f *Feed) push(
	ctx context.Context,
	resourceID string,
	date string,
	onSnapshot func(domain.ResourceBookings),
) error {

	seq, err := retry.Read(ctx, retry.DefaultTries, func() (uint64, error) {
		v, err := f.client.Get(ctx, seqKey(resourceID, date)).Uint64()
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return v, err
	})
	if err != nil {
		return err
	}

	bookings, err := retry.Read(ctx, retry.DefaultTries, func() ([]domain.ExistingBooking, error) {
		return f.lister.ListBookingsForDay(ctx, resourceID, date)
	})
	if err != nil {
		return err
	}

	onSnapshot(domain.ResourceBookings{
		ResourceID: resourceID,
		Date:       date,
		Seq:        seq,
		Bookings:   bookings,
	})
	return nil
}
