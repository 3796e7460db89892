package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

var riyadh = time.FixedZone("AST", 3*60*60)

// --------------------------------------------------
// Clock
// --------------------------------------------------

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// --------------------------------------------------
// Catalog
// --------------------------------------------------

type fakeCatalog struct {
	mu         sync.Mutex
	categories map[string]domain.Category
	barbers    map[string]domain.Resource
	err        error
	gate       chan struct{}
	entered    chan struct{}
}

// hold makes catalog reads block until release is called. entered fires
// once a read is waiting.
func (f *fakeCatalog) hold() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	f.entered = make(chan struct{}, 1)
	return f.entered, func() { close(f.gate) }
}

func (f *fakeCatalog) wait() {
	f.mu.Lock()
	entered, gate := f.entered, f.gate
	f.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
}

func (f *fakeCatalog) Categories(context.Context) (map[string]domain.Category, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.categories, nil
}

func (f *fakeCatalog) Barbers(context.Context) (map[string]domain.Resource, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]domain.Resource, len(f.barbers))
	for id, r := range f.barbers {
		out[id] = r
	}
	return out, nil
}

func (f *fakeCatalog) setBarber(r domain.Resource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.barbers[r.ID] = r
}

// --------------------------------------------------
// Booking store with a controllable stream
// --------------------------------------------------

type subscription struct {
	resourceID string
	date       string
	push       func(domain.ResourceBookings)
	closed     bool
}

type fakeStore struct {
	mu        sync.Mutex
	subs      []*subscription
	bookings  map[string][]domain.ExistingBooking // resource|date
	seq       map[string]uint64
	subErr    error
	createErr error
	created   []domain.BookingRequest
	gate      chan struct{}
	entered   chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bookings: map[string][]domain.ExistingBooking{},
		seq:      map[string]uint64{},
	}
}

func key(resourceID, date string) string { return resourceID + "|" + date }

func (f *fakeStore) SubscribeToResourceBookings(
	_ context.Context,
	resourceID string,
	date string,
	onSnapshot func(domain.ResourceBookings),
) (func(), error) {
	f.mu.Lock()
	if f.subErr != nil {
		f.mu.Unlock()
		return nil, f.subErr
	}
	sub := &subscription{resourceID: resourceID, date: date, push: onSnapshot}
	f.subs = append(f.subs, sub)
	k := key(resourceID, date)
	f.seq[k]++
	initial := domain.ResourceBookings{
		ResourceID: resourceID,
		Date:       date,
		Seq:        f.seq[k],
		Bookings:   append([]domain.ExistingBooking(nil), f.bookings[k]...),
	}
	f.mu.Unlock()

	onSnapshot(initial)

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		sub.closed = true
	}, nil
}

// addBooking records a booking and pushes to every open subscription.
func (f *fakeStore) addBooking(b domain.ExistingBooking) {
	date := b.DateTime.Format(domain.DateLayout)
	k := key(b.ResourceID, date)

	f.mu.Lock()
	f.bookings[k] = append(f.bookings[k], b)
	f.seq[k]++
	push := domain.ResourceBookings{
		ResourceID: b.ResourceID,
		Date:       date,
		Seq:        f.seq[k],
		Bookings:   append([]domain.ExistingBooking(nil), f.bookings[k]...),
	}
	var targets []*subscription
	for _, s := range f.subs {
		if !s.closed && s.resourceID == b.ResourceID && s.date == date {
			targets = append(targets, s)
		}
	}
	f.mu.Unlock()

	for _, s := range targets {
		s.push(push)
	}
}

func (f *fakeStore) open() []*subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*subscription
	for _, s := range f.subs {
		if !s.closed {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeStore) all() []*subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*subscription(nil), f.subs...)
}

func (f *fakeStore) CreateBooking(_ context.Context, req domain.BookingRequest) (string, error) {
	f.mu.Lock()
	entered, gate := f.entered, f.gate
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return "", f.createErr
	}
	return fmt.Sprintf("bk-%d", len(f.created)), nil
}

func (f *fakeStore) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// --------------------------------------------------
// Draft storage
// --------------------------------------------------

type memoryDrafts struct {
	mu      sync.Mutex
	draft   *domain.Draft
	saves   int
	saveErr error
}

func (m *memoryDrafts) Load(context.Context) (*domain.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.draft == nil {
		return nil, nil
	}
	d := m.draft.Clone()
	return &d, nil
}

func (m *memoryDrafts) Save(_ context.Context, d domain.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := d.Clone()
	m.draft = &cp
	return nil
}

func (m *memoryDrafts) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draft = nil
	return nil
}

func (m *memoryDrafts) stored() *domain.Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft
}

// --------------------------------------------------
// Sink
// --------------------------------------------------

type recordingSink struct {
	mu     sync.Mutex
	slots  [][]domain.TimeSlot
	drafts []domain.Draft
	errors []httperr.Kind
}

func (r *recordingSink) OnSlotsChanged(s []domain.TimeSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = append(r.slots, s)
}

func (r *recordingSink) OnDraftChanged(d domain.Draft) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts = append(r.drafts, d)
}

func (r *recordingSink) OnError(kind httperr.Kind, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, kind)
}

func (r *recordingSink) lastSlots() []domain.TimeSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.slots) == 0 {
		return nil
	}
	return r.slots[len(r.slots)-1]
}

func (r *recordingSink) errorKinds() []httperr.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]httperr.Kind(nil), r.errors...)
}

func (r *recordingSink) draftSteps() []domain.Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Step, 0, len(r.drafts))
	for _, d := range r.drafts {
		out = append(out, d.Step)
	}
	return out
}

// --------------------------------------------------
// Fixture
// --------------------------------------------------

const (
	testDate = "2030-01-06" // Sunday
	friday   = "2030-01-04"
)

type fixture struct {
	clock   *fixedClock
	catalog *fakeCatalog
	store   *fakeStore
	drafts  *memoryDrafts
	sink    *recordingSink
	cfg     Config
	deps    Deps
	wizard  *Wizard
}

func workingDays(days ...time.Weekday) map[time.Weekday]bool {
	out := map[time.Weekday]bool{}
	for _, d := range days {
		out[d] = true
	}
	return out
}

func allWeekButFriday() map[time.Weekday]bool {
	return workingDays(time.Saturday, time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	wh, err := domain.ParseWorkingHours("08:00", "23:59")
	require.NoError(t, err)

	f := &fixture{
		clock: &fixedClock{now: time.Date(2030, 1, 1, 9, 0, 0, 0, riyadh)},
		catalog: &fakeCatalog{
			categories: map[string]domain.Category{
				"hair": {ID: "hair", Name: "Hair", Services: map[string]domain.Service{
					"cut":   {ID: "cut", CategoryID: "hair", Name: "Haircut", DurationMinutes: 40, Price: 50},
					"wash":  {ID: "wash", CategoryID: "hair", Name: "Wash", DurationMinutes: 10, Price: 15},
					"dye":   {ID: "dye", CategoryID: "hair", Name: "Dye", DurationMinutes: 60, Price: 120},
					"beard": {ID: "beard", CategoryID: "hair", Name: "Beard", DurationMinutes: 20, Price: 30},
					"mask":  {ID: "mask", CategoryID: "hair", Name: "Mask", DurationMinutes: 15, Price: 25},
					"kids":  {ID: "kids", CategoryID: "hair", Name: "Kids cut", DurationMinutes: 30, Price: 35},
					"long":  {ID: "long", CategoryID: "hair", Name: "Full treatment", DurationMinutes: 1000, Price: 999},
				}},
			},
			barbers: map[string]domain.Resource{
				"x": {ID: "x", Name: "Omar", Active: true, WorkingDays: allWeekButFriday()},
			},
		},
		store:  newFakeStore(),
		drafts: &memoryDrafts{},
		sink:   &recordingSink{},
	}

	f.cfg = Config{
		WorkingHours:    wh,
		IntervalMinutes: 30,
		BufferMinutes:   15,
		MaxServices:     5,
		Holidays:        map[string]bool{},
		Location:        riyadh,
	}
	f.deps = Deps{
		Catalog:  f.catalog,
		Bookings: f.store,
		Clock:    f.clock,
		Log:      zap.NewNop(),
	}
	f.wizard = NewWizard("s-1", f.cfg, f.deps, f.drafts, f.sink)
	return f
}

func (f *fixture) at(t *testing.T, date, hm string) time.Time {
	t.Helper()
	ts, err := domain.CombineDateTime(date, hm, riyadh)
	require.NoError(t, err)
	return ts
}

// toStep drives the wizard through the happy path up to step.
func (f *fixture) toStep(t *testing.T, step domain.Step) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.wizard.ToggleService(ctx, "cut"))
	if step == domain.StepServices {
		return
	}
	_, err := f.wizard.Advance(ctx)
	require.NoError(t, err)
	require.NoError(t, f.wizard.SetDate(ctx, testDate))
	require.NoError(t, f.wizard.SetTime(ctx, "11:00"))
	if step == domain.StepDateTime {
		return
	}
	_, err = f.wizard.Advance(ctx)
	require.NoError(t, err)
	require.NoError(t, f.wizard.SelectResource(ctx, "x"))
	if step == domain.StepResource {
		return
	}
	_, err = f.wizard.Advance(ctx)
	require.NoError(t, err)
	require.NoError(t, f.wizard.SetCustomer(ctx, "Khalid", "0512345678"))
}

var errTransport = errors.New("connection reset")

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s never happened", what)
	}
}
