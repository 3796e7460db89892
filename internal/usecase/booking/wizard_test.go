package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

func slotAt(t *testing.T, slots []domain.TimeSlot, start time.Time) domain.TimeSlot {
	t.Helper()
	s, ok := domain.FindSlot(slots, start)
	require.True(t, ok, "no slot at %s", start)
	return s
}

func TestWizard_SixthServiceRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"cut", "wash", "dye", "beard", "mask"} {
		require.NoError(t, f.wizard.ToggleService(ctx, id))
	}

	err := f.wizard.ToggleService(ctx, "kids")

	require.Error(t, err)
	assert.Equal(t, httperr.KindValidation, httperr.KindOf(err))
	d := f.wizard.Draft()
	assert.Equal(t, 5, d.Services.Len())
	assert.False(t, d.Services.Has("kids"))
	assert.Contains(t, f.sink.errorKinds(), httperr.KindValidation)
}

func TestWizard_TotalsFollowServices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.wizard.ToggleService(ctx, "cut"))
	require.NoError(t, f.wizard.ToggleService(ctx, "beard"))
	require.NoError(t, f.wizard.ToggleService(ctx, "wash"))
	require.NoError(t, f.wizard.ToggleService(ctx, "beard"))

	d := f.wizard.Draft()
	assert.Equal(t, []string{"cut", "wash"}, d.Services.IDs())
	assert.Equal(t, 50, d.TotalDuration())
	assert.Equal(t, 65.0, d.TotalPrice())
}

func TestWizard_UnknownServiceIsNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.wizard.ToggleService(context.Background(), "gone")

	assert.Equal(t, httperr.KindNotFound, httperr.KindOf(err))
	assert.Equal(t, 0, f.wizard.Draft().Services.Len())
}

func TestWizard_AdvanceGuardKeepsStep(t *testing.T) {
	f := newFixture(t)

	_, err := f.wizard.Advance(context.Background())

	assert.True(t, httperr.IsBusiness(err, "services_required"))
	d := f.wizard.Draft()
	assert.Equal(t, domain.StepServices, d.Step)
	assert.NotEmpty(t, d.Error)
}

func TestWizard_ConflictScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.addBooking(domain.ExistingBooking{
		ID: "b1", ResourceID: "x", DateTime: f.at(t, testDate, "10:00"), DurationMinutes: 40, Status: domain.StatusConfirmed,
	})

	require.NoError(t, f.wizard.ToggleService(ctx, "cut"))
	_, err := f.wizard.Advance(ctx)
	require.NoError(t, err)
	require.NoError(t, f.wizard.SetDate(ctx, testDate))

	slots := f.wizard.Slots()
	assert.False(t, slotAt(t, slots, f.at(t, testDate, "10:00")).Available)
	assert.False(t, slotAt(t, slots, f.at(t, testDate, "10:30")).Available)
	assert.True(t, slotAt(t, slots, f.at(t, testDate, "11:00")).Available)
	assert.Equal(t, slots, f.sink.lastSlots())

	err = f.wizard.SetTime(ctx, "10:30")
	assert.Equal(t, httperr.KindConflict, httperr.KindOf(err))
	assert.Nil(t, f.wizard.Draft().DateTime)
}

func TestWizard_LivePushesGrowAndShrinkConflicts(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepDateTime)
	noon := f.at(t, testDate, "12:00")

	f.store.addBooking(domain.ExistingBooking{
		ID: "b2", ResourceID: "x", DateTime: noon, DurationMinutes: 30, Status: domain.StatusPending,
	})
	assert.False(t, slotAt(t, f.wizard.Slots(), noon).Available)

	// the same booking pushed again as cancelled frees the slot
	f.store.mu.Lock()
	k := key("x", testDate)
	f.store.bookings[k] = nil
	f.store.mu.Unlock()
	f.store.addBooking(domain.ExistingBooking{
		ID: "b2", ResourceID: "x", DateTime: noon, DurationMinutes: 30, Status: domain.StatusCancelled,
	})
	assert.True(t, slotAt(t, f.wizard.Slots(), noon).Available)
}

func TestWizard_DateChangeDisarmsPreviousScope(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepDateTime)
	ctx := context.Background()

	old := f.store.open()
	require.NotEmpty(t, old)

	require.NoError(t, f.wizard.SetDate(ctx, "2030-01-07"))

	for _, s := range old {
		assert.True(t, s.closed)
	}
	for _, s := range f.store.open() {
		assert.Equal(t, "2030-01-07", s.date)
	}

	d := f.wizard.Draft()
	assert.Equal(t, "2030-01-07", d.Date)
	assert.Empty(t, d.Time)
	assert.Nil(t, d.DateTime)
	assert.Empty(t, d.ResourceID)

	// a push for the old date reaching an old subscription is not applied
	before := f.wizard.Slots()
	old[0].push(domain.ResourceBookings{ResourceID: "x", Date: testDate, Seq: 100, Bookings: []domain.ExistingBooking{{
		ResourceID: "x", DateTime: f.at(t, "2030-01-07", "11:00"), DurationMinutes: 60, Status: domain.StatusPending,
	}}})
	assert.Equal(t, before, f.wizard.Slots())
}

func TestWizard_FridayDisabledWithoutBarbers(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepServices)
	ctx := context.Background()
	_, err := f.wizard.Advance(ctx)
	require.NoError(t, err)

	err = f.wizard.SetDate(ctx, friday)

	assert.True(t, httperr.IsBusiness(err, "date_disabled"))
	assert.Empty(t, f.wizard.Draft().Date)
	assert.Empty(t, f.store.open())
}

func TestWizard_BackFromDateStepDisarms(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepDateTime)
	ctx := context.Background()

	require.NoError(t, f.wizard.Back(ctx))

	assert.Equal(t, domain.StepServices, f.wizard.Draft().Step)
	assert.Empty(t, f.store.open())
	assert.Empty(t, f.wizard.Slots())

	// at step 1 back is a no-op
	require.NoError(t, f.wizard.Back(ctx))
	assert.Equal(t, domain.StepServices, f.wizard.Draft().Step)
}

func TestWizard_ReenteringDateStepRearms(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepDateTime)
	ctx := context.Background()
	require.NoError(t, f.wizard.Back(ctx))

	// the remembered 11:00 gets taken while the customer is away
	f.store.addBooking(domain.ExistingBooking{
		ID: "b3", ResourceID: "x", DateTime: f.at(t, testDate, "11:00"), DurationMinutes: 30, Status: domain.StatusPending,
	})

	_, err := f.wizard.Advance(ctx)
	require.NoError(t, err)

	d := f.wizard.Draft()
	assert.Equal(t, domain.StepDateTime, d.Step)
	assert.Equal(t, testDate, d.Date)
	assert.Nil(t, d.DateTime)
	assert.NotEmpty(t, f.store.open())
}

func TestWizard_ServiceChangeDropsTimeThatNoLongerFits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.wizard.ToggleService(ctx, "cut"))
	_, err := f.wizard.Advance(ctx)
	require.NoError(t, err)
	require.NoError(t, f.wizard.SetDate(ctx, testDate))
	require.NoError(t, f.wizard.SetTime(ctx, "23:00"))
	require.NoError(t, f.wizard.Back(ctx))

	require.NoError(t, f.wizard.ToggleService(ctx, "dye"))

	d := f.wizard.Draft()
	assert.Equal(t, testDate, d.Date)
	assert.Nil(t, d.DateTime)
	assert.Empty(t, d.Time)
}

func TestWizard_ResourceStep(t *testing.T) {
	f := newFixture(t)
	f.catalog.setBarber(domain.Resource{ID: "y", Name: "Saad", Active: true, WorkingDays: allWeekButFriday()})
	f.store.addBooking(domain.ExistingBooking{
		ID: "b4", ResourceID: "y", DateTime: f.at(t, testDate, "11:00"), DurationMinutes: 30, Status: domain.StatusPending,
	})
	f.toStep(t, domain.StepDateTime)
	ctx := context.Background()

	_, err := f.wizard.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StepResource, f.wizard.Draft().Step)

	barbers := f.wizard.AvailableBarbers()
	require.Len(t, barbers, 1)
	assert.Equal(t, "x", barbers[0].ID)

	err = f.wizard.SelectResource(ctx, "y")
	assert.True(t, httperr.IsBusiness(err, "barber_unavailable"))

	err = f.wizard.SelectResource(ctx, "nobody")
	assert.Equal(t, httperr.KindNotFound, httperr.KindOf(err))

	require.NoError(t, f.wizard.SelectResource(ctx, "x"))
	assert.Equal(t, "x", f.wizard.Draft().ResourceID)
}

func TestWizard_NoBarberLeftBlocksResourceStep(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepDateTime)
	ctx := context.Background()

	f.store.addBooking(domain.ExistingBooking{
		ID: "b5", ResourceID: "x", DateTime: f.at(t, testDate, "11:00"), DurationMinutes: 30, Status: domain.StatusPending,
	})

	_, err := f.wizard.Advance(ctx)

	assert.True(t, httperr.IsBusiness(err, "no_barber_available"))
	d := f.wizard.Draft()
	assert.Equal(t, domain.StepDateTime, d.Step)
	assert.NotEmpty(t, d.Error)
}

func TestWizard_PreloadFailureKeepsStep(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepDateTime)
	f.catalog.mu.Lock()
	f.catalog.err = errTransport
	f.catalog.mu.Unlock()

	_, err := f.wizard.Advance(context.Background())

	assert.Equal(t, httperr.KindNetwork, httperr.KindOf(err))
	d := f.wizard.Draft()
	assert.Equal(t, domain.StepDateTime, d.Step)
	assert.Equal(t, httperr.MessageOf(err), d.Error)
}

func TestWizard_CustomerGuard(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepResource)
	ctx := context.Background()
	_, err := f.wizard.Advance(ctx)
	require.NoError(t, err)

	require.NoError(t, f.wizard.SetCustomer(ctx, "Al", "0512345678"))
	_, err = f.wizard.Advance(ctx)
	assert.True(t, httperr.IsBusiness(err, "invalid_customer_name"))

	require.NoError(t, f.wizard.SetCustomer(ctx, "Ali", "5551234"))
	_, err = f.wizard.Advance(ctx)
	assert.True(t, httperr.IsBusiness(err, "invalid_customer_phone"))

	assert.Equal(t, domain.StepConfirm, f.wizard.Draft().Step)
	assert.Equal(t, 0, f.store.createdCount())
}

func TestWizard_StepOrderIsEnforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.True(t, httperr.IsBusiness(f.wizard.SetDate(ctx, testDate), "invalid_step"))
	assert.True(t, httperr.IsBusiness(f.wizard.SetTime(ctx, "10:00"), "invalid_step"))
	assert.True(t, httperr.IsBusiness(f.wizard.SelectResource(ctx, "x"), "invalid_step"))
	assert.True(t, httperr.IsBusiness(f.wizard.SetCustomer(ctx, "Ali", "0512345678"), "invalid_step"))
}

func TestWizard_DraftPersistsAndRestores(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepResource)
	want := f.wizard.Draft()
	f.wizard.Close()

	restored := NewWizard("s-1", f.cfg, f.deps, f.drafts, &recordingSink{})
	require.NoError(t, restored.Restore(context.Background()))

	got := restored.Draft()
	assert.Equal(t, want.Step, got.Step)
	assert.Equal(t, want.Services.IDs(), got.Services.IDs())
	assert.Equal(t, want.Date, got.Date)
	assert.Equal(t, want.Time, got.Time)
	require.NotNil(t, got.DateTime)
	assert.True(t, want.DateTime.Equal(*got.DateTime))
	assert.Equal(t, want.ResourceID, got.ResourceID)
	assert.Empty(t, got.Error)
	assert.NotEmpty(t, restored.Slots())
}

func TestWizard_SaveFailureKeepsMutation(t *testing.T) {
	f := newFixture(t)
	f.drafts.saveErr = errTransport

	require.NoError(t, f.wizard.ToggleService(context.Background(), "cut"))

	assert.True(t, f.wizard.Draft().Services.Has("cut"))
	assert.Contains(t, f.sink.errorKinds(), httperr.KindNetwork)
}

func TestWizard_ListenersReceiveCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var seen []domain.Draft
	unsubscribe := f.wizard.Subscribe(func(d domain.Draft) { seen = append(seen, d) })

	require.NoError(t, f.wizard.ToggleService(ctx, "cut"))
	unsubscribe()
	require.NoError(t, f.wizard.ToggleService(ctx, "wash"))

	require.Len(t, seen, 1)
	assert.Equal(t, []string{"cut"}, seen[0].Services.IDs())
}

func TestWizard_ResetClearsEverything(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepResource)

	require.NoError(t, f.wizard.Reset(context.Background()))

	d := f.wizard.Draft()
	assert.Equal(t, domain.StepServices, d.Step)
	assert.Equal(t, 0, d.Services.Len())
	assert.Empty(t, f.store.open())
	assert.Nil(t, f.drafts.stored())
}

func TestWizard_ClosedRejectsMutations(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepDateTime)

	f.wizard.Close()

	assert.Empty(t, f.store.open())
	err := f.wizard.SetTime(context.Background(), "12:00")
	assert.True(t, httperr.IsBusiness(err, "session_closed"))
}

func TestWizard_TransitionsRejectedWhilePreloading(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepDateTime)
	ctx := context.Background()
	entered, release := f.catalog.hold()

	done := make(chan error, 1)
	go func() {
		_, err := f.wizard.Advance(ctx)
		done <- err
	}()
	waitFor(t, entered, "preload")

	_, err := f.wizard.Advance(ctx)
	assert.True(t, httperr.IsBusiness(err, "busy"))
	assert.Equal(t, httperr.KindValidation, httperr.KindOf(err))
	assert.True(t, httperr.IsBusiness(f.wizard.Back(ctx), "busy"))
	assert.True(t, httperr.IsBusiness(f.wizard.SetDate(ctx, "2030-01-07"), "busy"))
	assert.Equal(t, domain.StepDateTime, f.wizard.Draft().Step)

	release()
	require.NoError(t, <-done)

	d := f.wizard.Draft()
	assert.Equal(t, domain.StepResource, d.Step)
	assert.Equal(t, testDate, d.Date)
}

func TestWizard_ServiceToggleRejectedWhileCatalogLoads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entered, release := f.catalog.hold()

	done := make(chan error, 1)
	go func() { done <- f.wizard.ToggleService(ctx, "cut") }()
	waitFor(t, entered, "catalog read")

	assert.True(t, httperr.IsBusiness(f.wizard.ToggleService(ctx, "wash"), "busy"))

	release()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"cut"}, f.wizard.Draft().Services.IDs())
}

func TestWizard_CloseDuringDateChangeLeavesNothingArmed(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepDateTime)
	ctx := context.Background()
	savesBefore := f.drafts.saves
	entered, release := f.catalog.hold()

	done := make(chan error, 1)
	go func() { done <- f.wizard.SetDate(ctx, "2030-01-07") }()
	waitFor(t, entered, "barber read")

	f.wizard.Close()
	release()
	err := <-done

	assert.True(t, httperr.IsBusiness(err, "session_closed"))
	_, armed := f.wizard.tracker.Current()
	assert.False(t, armed)
	assert.Empty(t, f.store.open())
	assert.Equal(t, savesBefore, f.drafts.saves)
}

func TestWizard_CloseDuringPreloadLeavesNothingArmed(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepDateTime)
	ctx := context.Background()
	entered, release := f.catalog.hold()

	done := make(chan error, 1)
	go func() {
		_, err := f.wizard.Advance(ctx)
		done <- err
	}()
	waitFor(t, entered, "preload")

	f.wizard.Close()
	release()

	assert.True(t, httperr.IsBusiness(<-done, "session_closed"))
	assert.Empty(t, f.store.open())
}
