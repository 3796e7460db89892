package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

func TestSubmit_SuccessResetsDraft(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepConfirm)

	id, err := f.wizard.Advance(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "bk-1", id)

	require.Equal(t, 1, f.store.createdCount())
	req := f.store.created[0]
	assert.Equal(t, []string{"cut"}, req.ServiceIDs)
	assert.Equal(t, "x", req.ResourceID)
	assert.Equal(t, 40, req.DurationMinutes)
	assert.Equal(t, 50.0, req.TotalPrice)
	assert.Equal(t, domain.StatusPending, req.Status)
	assert.True(t, req.DateTime.Equal(f.at(t, testDate, "11:00")))
	assert.Equal(t, f.clock.Now(), req.CreatedAt)

	d := f.wizard.Draft()
	assert.Equal(t, domain.StepServices, d.Step)
	assert.Equal(t, 0, d.Services.Len())
	assert.Nil(t, f.drafts.stored())
	assert.Empty(t, f.store.open())

	steps := f.sink.draftSteps()
	require.GreaterOrEqual(t, len(steps), 2)
	assert.Equal(t, []domain.Step{domain.StepSubmitted, domain.StepServices}, steps[len(steps)-2:])
}

func TestSubmit_ConflictKeepsDraftAndRefreshes(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepConfirm)
	f.store.createErr = httperr.Conflict("slot_taken", "This time was just booked.")
	before := f.wizard.Draft()
	subsBefore := len(f.store.all())

	_, err := f.wizard.Submit(context.Background())

	assert.Equal(t, httperr.KindConflict, httperr.KindOf(err))
	after := f.wizard.Draft()
	assert.Equal(t, before.Step, after.Step)
	assert.Equal(t, before.ResourceID, after.ResourceID)
	assert.Equal(t, before.Services.IDs(), after.Services.IDs())
	assert.NotNil(t, f.drafts.stored())
	assert.Greater(t, len(f.store.all()), subsBefore)
	assert.Contains(t, f.sink.errorKinds(), httperr.KindConflict)
}

func TestSubmit_NetworkFailureIsNotRetried(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepConfirm)
	f.store.createErr = errTransport

	_, err := f.wizard.Submit(context.Background())

	assert.Equal(t, httperr.KindNetwork, httperr.KindOf(err))
	assert.Equal(t, 1, f.store.createdCount())
	assert.Equal(t, domain.StepConfirm, f.wizard.Draft().Step)
}

func TestSubmit_RevalidatesDraft(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepResource)
	sub := NewSubmission("s-1", 5, f.store, f.clock, nil, zap.NewNop())

	_, err := sub.Execute(context.Background(), f.wizard.Draft())

	assert.True(t, httperr.IsBusiness(err, "invalid_customer_name"))
	assert.Equal(t, 0, f.store.createdCount())
}

func TestSubmit_OnlyFromConfirmStep(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepConfirm)
	ctx := context.Background()
	require.NoError(t, f.wizard.Back(ctx))

	id, err := f.wizard.Submit(ctx)

	assert.Empty(t, id)
	assert.True(t, httperr.IsBusiness(err, "invalid_step"))
	assert.Equal(t, 0, f.store.createdCount())
	assert.Equal(t, domain.StepResource, f.wizard.Draft().Step)
	assert.NotContains(t, f.sink.draftSteps(), domain.StepSubmitted)
}

func TestSubmit_RejectsPastSlot(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepConfirm)
	f.clock.mu.Lock()
	f.clock.now = time.Date(2030, 1, 6, 12, 0, 0, 0, riyadh)
	f.clock.mu.Unlock()

	_, err := f.wizard.Submit(context.Background())

	assert.True(t, httperr.IsBusiness(err, "slot_in_past"))
	assert.Equal(t, 0, f.store.createdCount())
}

func TestSubmit_ReentrantCallRejected(t *testing.T) {
	f := newFixture(t)
	f.toStep(t, domain.StepConfirm)
	f.store.mu.Lock()
	f.store.gate = make(chan struct{})
	f.store.entered = make(chan struct{}, 1)
	f.store.mu.Unlock()

	var wg sync.WaitGroup
	var firstID string
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstID, firstErr = f.wizard.Submit(context.Background())
	}()

	select {
	case <-f.store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("create was never called")
	}

	_, err := f.wizard.Submit(context.Background())
	assert.True(t, httperr.IsBusiness(err, "submission_in_progress"))
	assert.Equal(t, httperr.KindValidation, httperr.KindOf(err))

	// other mutations wait for the create call too
	err = f.wizard.SetCustomer(context.Background(), "Other", "0599999999")
	assert.True(t, httperr.IsBusiness(err, "busy"))

	close(f.store.gate)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, "bk-1", firstID)
	assert.Equal(t, 1, f.store.createdCount())
}
