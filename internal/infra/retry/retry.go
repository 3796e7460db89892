package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

const DefaultTries = 3

// Read retries a read with exponential backoff. Business errors (not
// found, validation, ...) are returned at once; only unclassified errors
// are retried. Writes must never go through here.
func Read[T any](ctx context.Context, tries uint, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && httperr.KindOf(err) != httperr.KindInternal {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
}
