package booking

import (
	"context"
	"sort"
	"time"

	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

type Clock interface {
	Now() time.Time
}

// CatalogStore serves reference data already validated into domain types.
type CatalogStore interface {
	// -------- Services --------
	Categories(ctx context.Context) (map[string]Category, error)

	// -------- Barbers --------
	Barbers(ctx context.Context) (map[string]Resource, error)
}

type BookingStore interface {
	// CreateBooking fails with a conflict error when the barber is no
	// longer free and with a network error on transport failure.
	CreateBooking(ctx context.Context, req BookingRequest) (string, error)

	// SubscribeToResourceBookings pushes the full set of the resource's
	// bookings on date every time it changes, starting with the current
	// set. The returned func stops the subscription and may be called
	// more than once.
	SubscribeToResourceBookings(
		ctx context.Context,
		resourceID string,
		date string,
		onSnapshot func(ResourceBookings),
	) (func(), error)
}

// DraftStorage persists one draft under a fixed key. Load returns nil when
// nothing is stored.
type DraftStorage interface {
	Load(ctx context.Context) (*Draft, error)
	Save(ctx context.Context, d Draft) error
	Clear(ctx context.Context) error
}

// Sink receives one-way notifications. Implementations must not block and
// must not call back into the engine.
type Sink interface {
	OnSlotsChanged(slots []TimeSlot)
	OnDraftChanged(d Draft)
	OnError(kind httperr.Kind, message string)
}

// FindService looks a service id up across every category.
func FindService(categories map[string]Category, id string) (Service, bool) {
	for _, c := range categories {
		if svc, ok := c.Services[id]; ok {
			return svc, true
		}
	}
	return Service{}, false
}

// SortedResources returns the map values ordered by id.
func SortedResources(m map[string]Resource) []Resource {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Resource, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// ===============================
// Staff side
// ===============================

type BookingRepository interface {
	GetBooking(ctx context.Context, id string) (*ExistingBooking, error)

	UpdateStatus(
		ctx context.Context,
		id string,
		status Status,
		at time.Time,
	) error
}

// ChangeNotifier tells every subscriber of resourceID on date to refetch.
type ChangeNotifier interface {
	NotifyChanged(ctx context.Context, resourceID string, date string) error
}
