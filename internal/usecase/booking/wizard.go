package booking

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ekka-Barber/Bookings-sub000/internal/audit"
	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
	"github.com/Ekka-Barber/Bookings-sub000/internal/httperr"
)

// ======================================================
// CONFIG
// ======================================================

type Config struct {
	WorkingHours    domain.WorkingHours
	IntervalMinutes int
	BufferMinutes   int
	MaxServices     int
	Holidays        map[string]bool
	Location        *time.Location
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Catalog  domain.CatalogStore
	Bookings domain.BookingStore
	Clock    domain.Clock
	Audit    *audit.Dispatcher
	Log      *zap.Logger
}

var (
	errBusy   = httperr.Validation("busy", "Please wait for the current action to finish.")
	errClosed = httperr.Validation("session_closed", "This booking session has ended.")
)

// ======================================================
// WIZARD
// ======================================================

// Wizard drives one customer's booking through its steps. Every mutation
// runs under mu. Actions that wait on the network (preloading a step,
// arming availability, submitting) release mu and hold the busy flag
// instead, so any other mutation attempted meanwhile is rejected.
type Wizard struct {
	sessionID string
	cfg       Config
	catalog   domain.CatalogStore
	clock     domain.Clock
	storage   domain.DraftStorage
	sink      domain.Sink
	log       *zap.Logger

	tracker    *Tracker
	board      *slotBoard
	submission *Submission

	resMu     sync.RWMutex
	resources map[string]domain.Resource

	mu           sync.Mutex
	draft        domain.Draft
	busy         bool
	closed       bool
	listeners    map[uint64]func(domain.Draft)
	nextListener uint64
}

func NewWizard(
	sessionID string,
	cfg Config,
	deps Deps,
	storage domain.DraftStorage,
	sink domain.Sink,
) *Wizard {
	log := deps.Log.With(zap.String("session_id", sessionID))
	tracker := NewTracker(deps.Bookings, cfg.BufferMinutes, log)

	return &Wizard{
		sessionID:  sessionID,
		cfg:        cfg,
		catalog:    deps.Catalog,
		clock:      deps.Clock,
		storage:    storage,
		sink:       sink,
		log:        log,
		tracker:    tracker,
		board:      newSlotBoard(tracker, sink, cfg.BufferMinutes),
		submission: NewSubmission(sessionID, cfg.MaxServices, deps.Bookings, deps.Clock, deps.Audit, log),
		resources:  map[string]domain.Resource{},
		draft:      domain.NewDraft(),
		listeners:  map[uint64]func(domain.Draft){},
	}
}

// ------------------------------------------------------
// Read side
// ------------------------------------------------------

func (w *Wizard) SessionID() string { return w.sessionID }

func (w *Wizard) Draft() domain.Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.Clone()
}

func (w *Wizard) Slots() []domain.TimeSlot {
	return w.board.Slots()
}

// AvailableBarbers lists the barbers free at the selected time.
func (w *Wizard) AvailableBarbers() []domain.Resource {
	d := w.Draft()
	if d.DateTime == nil {
		return []domain.Resource{}
	}
	slot, ok := w.board.Find(*d.DateTime)
	if !ok {
		return []domain.Resource{}
	}

	w.resMu.RLock()
	defer w.resMu.RUnlock()
	out := make([]domain.Resource, 0, len(slot.EligibleResourceIDs))
	for _, id := range slot.EligibleResourceIDs {
		if r, ok := w.resources[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Subscribe registers fn for every draft change. fn runs synchronously
// while the wizard is locked and must not call back into it.
func (w *Wizard) Subscribe(fn func(domain.Draft)) func() {
	w.mu.Lock()
	w.nextListener++
	id := w.nextListener
	w.listeners[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}

// ------------------------------------------------------
// Step 1: services
// ------------------------------------------------------

func (w *Wizard) ToggleService(ctx context.Context, serviceID string) error {
	if err := w.acquire(); err != nil {
		return w.report(err)
	}

	if w.draft.Step != domain.StepServices {
		w.mu.Unlock()
		return w.report(httperr.Validation("invalid_step", "Services can only be changed on the first step."))
	}

	w.busy = true
	w.mu.Unlock()

	categories, err := w.catalog.Categories(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if rerr := w.resumeLocked(); rerr != nil {
		return rerr
	}

	if err != nil {
		return w.report(classify("catalog_unavailable", err))
	}

	svc, ok := domain.FindService(categories, serviceID)
	if !ok {
		return w.report(httperr.NotFound("service_not_found", "This service is no longer offered."))
	}

	next, err := w.draft.Services.Toggle(svc, w.cfg.MaxServices)
	if err != nil {
		return w.report(err)
	}

	w.draft.Services = next
	w.draft.Error = ""
	w.refitTimeLocked()
	w.commitLocked(ctx)
	return nil
}

// refitTimeLocked drops the chosen time once the services no longer fit
// before closing. Availability is checked again when step 2 is entered.
func (w *Wizard) refitTimeLocked() {
	d := &w.draft
	if d.DateTime == nil {
		return
	}
	if d.Services.Len() == 0 {
		d.ClearTime()
		return
	}

	day, err := domain.ParseDate(d.Date, w.cfg.Location)
	if err != nil {
		d.ClearTime()
		return
	}

	starts := domain.GenerateSlots(day, w.cfg.WorkingHours, w.cfg.IntervalMinutes, d.TotalDuration(), w.clock.Now())
	for _, s := range starts {
		if s.Equal(*d.DateTime) {
			return
		}
	}
	d.ClearTime()
}

// ------------------------------------------------------
// Step 2: date and time
// ------------------------------------------------------

func (w *Wizard) SetDate(ctx context.Context, date string) error {
	if err := w.acquire(); err != nil {
		return w.report(err)
	}

	if w.draft.Step != domain.StepDateTime {
		w.mu.Unlock()
		return w.report(httperr.Validation("invalid_step", "Choose your services first."))
	}

	day, err := domain.ParseDate(date, w.cfg.Location)
	if err != nil {
		w.mu.Unlock()
		return w.report(httperr.Validation("invalid_date", "Date must look like 2006-01-02."))
	}

	prev := w.draft.Clone()
	w.busy = true
	w.mu.Unlock()

	err = w.switchDate(ctx, day, prev)

	w.mu.Lock()
	defer w.mu.Unlock()
	if rerr := w.resumeLocked(); rerr != nil {
		return rerr
	}

	if err != nil {
		return w.report(err)
	}

	w.draft.SetDate(day.Format(domain.DateLayout))
	w.draft.Error = ""
	w.commitLocked(ctx)
	return nil
}

// switchDate arms availability for day. On failure the previous date, if
// any, is armed again so the draft and the tracker stay in agreement.
func (w *Wizard) switchDate(ctx context.Context, day time.Time, prev domain.Draft) error {
	resources, err := w.barbers(ctx)
	if err != nil {
		return err
	}

	if domain.IsDateDisabled(day, w.rules(resources)) {
		return httperr.Validation("date_disabled", "No bookings are possible on this date.")
	}

	err = w.armDate(ctx, day, prev.TotalDuration(), resources)
	if err == nil {
		return nil
	}

	if prev.Date != "" {
		if prevDay, perr := domain.ParseDate(prev.Date, w.cfg.Location); perr == nil {
			if rerr := w.armDate(ctx, prevDay, prev.TotalDuration(), resources); rerr != nil {
				w.log.Warn("could not re-arm previous date", zap.String("date", prev.Date), zap.Error(rerr))
			}
		}
	}
	return err
}

// armDate tears down the current scope, lays out the slots for day and
// subscribes every barber working that day.
func (w *Wizard) armDate(ctx context.Context, day time.Time, durationMinutes int, resources []domain.Resource) error {
	if h, ok := w.tracker.Current(); ok {
		w.tracker.Disarm(h)
	}

	starts := domain.GenerateSlots(day, w.cfg.WorkingHours, w.cfg.IntervalMinutes, durationMinutes, w.clock.Now())
	w.board.Configure(starts, durationMinutes, resources)

	ids := domain.ActiveResourceIDs(resources, day.Weekday())
	if _, err := w.tracker.Arm(ctx, day.Format(domain.DateLayout), ids); err != nil {
		w.board.Clear()
		return err
	}

	w.board.Recompute()
	return nil
}

func (w *Wizard) SetTime(ctx context.Context, hm string) error {
	if err := w.acquire(); err != nil {
		return w.report(err)
	}
	defer w.mu.Unlock()

	if w.draft.Step != domain.StepDateTime {
		return w.report(httperr.Validation("invalid_step", "Choose your services first."))
	}
	if w.draft.Date == "" {
		return w.report(httperr.Validation("date_required", "Please choose a date first."))
	}

	at, err := domain.CombineDateTime(w.draft.Date, hm, w.cfg.Location)
	if err != nil {
		return w.report(httperr.Validation("invalid_time", "Time must look like 15:04."))
	}

	slot, ok := w.board.Find(at)
	if !ok {
		return w.report(httperr.Validation("invalid_time", "This time is not offered."))
	}
	if !slot.Available {
		return w.report(httperr.Conflict("slot_unavailable", "This time has just been taken, please choose another."))
	}

	w.draft.SetTime(at.Format(domain.TimeLayout), at)
	w.draft.Error = ""
	w.commitLocked(ctx)
	return nil
}

// ------------------------------------------------------
// Step 3: barber
// ------------------------------------------------------

func (w *Wizard) SelectResource(ctx context.Context, resourceID string) error {
	if err := w.acquire(); err != nil {
		return w.report(err)
	}
	defer w.mu.Unlock()

	if w.draft.Step != domain.StepResource {
		return w.report(httperr.Validation("invalid_step", "Choose a date and time first."))
	}

	slot, ok := w.board.Find(*w.draft.DateTime)
	if !ok {
		return w.report(httperr.Conflict("slot_unavailable", "This time is no longer offered, please go back and choose another."))
	}

	if !slot.IsEligible(resourceID) {
		if !w.knownResource(resourceID) {
			return w.report(httperr.NotFound("barber_not_found", "This barber is not available for booking."))
		}
		return w.report(httperr.Conflict("barber_unavailable", "This barber is no longer free at the chosen time."))
	}

	w.draft.ResourceID = resourceID
	w.draft.Error = ""
	w.commitLocked(ctx)
	return nil
}

// ------------------------------------------------------
// Step 4: customer
// ------------------------------------------------------

func (w *Wizard) SetCustomer(ctx context.Context, name, phone string) error {
	if err := w.acquire(); err != nil {
		return w.report(err)
	}
	defer w.mu.Unlock()

	if w.draft.Step != domain.StepConfirm {
		return w.report(httperr.Validation("invalid_step", "Choose a barber first."))
	}

	w.draft.Customer = domain.Customer{
		Name:  strings.TrimSpace(name),
		Phone: strings.TrimSpace(phone),
	}
	w.draft.Error = ""
	w.commitLocked(ctx)
	return nil
}

// ------------------------------------------------------
// Navigation
// ------------------------------------------------------

// Advance moves to the next step once its guard holds and its preload
// succeeds. From the last step it submits and returns the booking id.
func (w *Wizard) Advance(ctx context.Context) (string, error) {
	if err := w.acquire(); err != nil {
		return "", w.report(err)
	}

	d := w.draft.Clone()
	if err := domain.GuardAdvance(d, w.cfg.MaxServices); err != nil {
		w.draft.Error = httperr.MessageOf(err)
		w.commitLocked(ctx)
		w.mu.Unlock()
		return "", w.report(err)
	}

	if d.Step == domain.StepConfirm {
		w.mu.Unlock()
		return w.Submit(ctx)
	}

	w.busy = true
	w.mu.Unlock()

	apply, err := w.preload(ctx, d)

	w.mu.Lock()
	defer w.mu.Unlock()
	if rerr := w.resumeLocked(); rerr != nil {
		return "", rerr
	}

	if err != nil {
		w.draft.Error = httperr.MessageOf(err)
		w.commitLocked(ctx)
		return "", w.report(err)
	}

	apply(&w.draft)
	w.draft.Step = d.Step + 1
	w.draft.Error = ""
	w.commitLocked(ctx)

	w.log.Debug("wizard advanced", zap.Stringer("step", w.draft.Step))
	return "", nil
}

func noop(*domain.Draft) {}

func (w *Wizard) preload(ctx context.Context, d domain.Draft) (func(*domain.Draft), error) {
	switch d.Step {
	case domain.StepServices:
		return w.enterDateTime(ctx, d)
	case domain.StepDateTime:
		return w.enterResource(ctx, d)
	default:
		return noop, nil
	}
}

// enterDateTime arms availability for a date carried over from earlier
// and drops a remembered time that is no longer free.
func (w *Wizard) enterDateTime(ctx context.Context, d domain.Draft) (func(*domain.Draft), error) {
	if d.Date == "" {
		return noop, nil
	}

	resources, err := w.barbers(ctx)
	if err != nil {
		return nil, err
	}

	clearDate := func(dr *domain.Draft) {
		dr.Date = ""
		dr.ClearTime()
	}

	day, err := domain.ParseDate(d.Date, w.cfg.Location)
	if err != nil || domain.IsDateDisabled(day, w.rules(resources)) {
		return clearDate, nil
	}

	if err := w.armDate(ctx, day, d.TotalDuration(), resources); err != nil {
		return nil, err
	}

	if d.DateTime != nil {
		slot, ok := w.board.Find(*d.DateTime)
		if !ok || !slot.Available {
			return func(dr *domain.Draft) { dr.ClearTime() }, nil
		}
	}
	return noop, nil
}

// enterResource refreshes the barbers and re-arms the date so the barber
// step starts from current availability.
func (w *Wizard) enterResource(ctx context.Context, d domain.Draft) (func(*domain.Draft), error) {
	resources, err := w.barbers(ctx)
	if err != nil {
		return nil, err
	}

	day, err := domain.ParseDate(d.Date, w.cfg.Location)
	if err != nil {
		return nil, httperr.Validation("invalid_date", "Please choose the date again.")
	}

	if err := w.armDate(ctx, day, d.TotalDuration(), resources); err != nil {
		return nil, err
	}

	slot, ok := w.board.Find(*d.DateTime)
	if !ok || !slot.Available {
		return nil, httperr.Conflict("no_barber_available", "No barber is free at this time anymore, please choose another time.")
	}

	keep := d.ResourceID != "" && slot.IsEligible(d.ResourceID)
	return func(dr *domain.Draft) {
		if !keep {
			dr.ResourceID = ""
		}
	}, nil
}

// Back returns to the previous step without any checks. Leaving the date
// step tears its availability scope down.
func (w *Wizard) Back(ctx context.Context) error {
	if err := w.acquire(); err != nil {
		return w.report(err)
	}
	defer w.mu.Unlock()

	if w.draft.Step <= domain.StepServices {
		return nil
	}

	if w.draft.Step == domain.StepDateTime {
		w.disarmLocked()
	}

	w.draft.Step--
	w.draft.Error = ""
	w.commitLocked(ctx)
	return nil
}

// Reset abandons the booking: availability is torn down and the draft
// goes back to its empty form, in storage too.
func (w *Wizard) Reset(ctx context.Context) error {
	if err := w.acquire(); err != nil {
		return w.report(err)
	}
	defer w.mu.Unlock()

	w.resetLocked(ctx)
	w.log.Info("wizard reset")
	return nil
}

func (w *Wizard) resetLocked(ctx context.Context) {
	w.disarmLocked()
	w.draft = domain.NewDraft()

	if err := w.storage.Clear(ctx); err != nil {
		w.log.Warn("draft clear failed", zap.Error(err))
		w.sink.OnError(httperr.KindNetwork, "Your previous selection could not be removed.")
	}
	w.notifyLocked()
}

func (w *Wizard) disarmLocked() {
	if h, ok := w.tracker.Current(); ok {
		w.tracker.Disarm(h)
	}
	w.board.Clear()
}

// ------------------------------------------------------
// Lifecycle
// ------------------------------------------------------

// Restore loads the stored draft, drops whatever no longer holds against
// the catalog and availability, and re-arms the date when the draft is
// past the first step.
func (w *Wizard) Restore(ctx context.Context) error {
	if err := w.acquire(); err != nil {
		return err
	}
	w.busy = true
	w.mu.Unlock()

	d := w.loadDraft(ctx)

	var preloadErr error
	if d.Step >= domain.StepDateTime {
		apply, err := w.enterDateTime(ctx, d)
		if err != nil {
			preloadErr = err
		} else {
			apply(&d)
			d = w.recheckResource(d).Restored(w.cfg.MaxServices)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if rerr := w.resumeLocked(); rerr != nil {
		return rerr
	}

	w.draft = d
	if preloadErr != nil {
		w.draft.Error = httperr.MessageOf(preloadErr)
	}
	w.commitLocked(ctx)

	w.log.Info("draft restored", zap.Stringer("step", w.draft.Step), zap.Int("services", w.draft.Services.Len()))
	return preloadErr
}

func (w *Wizard) loadDraft(ctx context.Context) domain.Draft {
	stored, err := w.storage.Load(ctx)
	if err != nil {
		w.log.Warn("draft load failed", zap.Error(err))
		w.sink.OnError(httperr.KindNetwork, "Your previous selection could not be loaded.")
		return domain.NewDraft()
	}
	if stored == nil {
		return domain.NewDraft()
	}

	d := stored.Restored(w.cfg.MaxServices)

	categories, err := w.catalog.Categories(ctx)
	if err != nil {
		w.log.Warn("catalog unavailable while restoring draft", zap.Error(err))
		return d
	}

	current := make([]domain.Service, 0, d.Services.Len())
	for _, svc := range d.Services.Items() {
		if fresh, ok := domain.FindService(categories, svc.ID); ok {
			current = append(current, fresh)
		}
	}
	d.Services = domain.NewServiceSet(current...)
	return d.Restored(w.cfg.MaxServices)
}

func (w *Wizard) recheckResource(d domain.Draft) domain.Draft {
	if d.ResourceID == "" || d.DateTime == nil {
		return d
	}
	if slot, ok := w.board.Find(*d.DateTime); !ok || !slot.IsEligible(d.ResourceID) {
		d.ResourceID = ""
	}
	return d
}

// Close tears the session down. Later calls fail, and an action suspended
// at the time drops what it armed once it resumes.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	w.listeners = map[uint64]func(domain.Draft){}
	if h, ok := w.tracker.Current(); ok {
		w.tracker.Disarm(h)
	}
}

// ------------------------------------------------------
// Helpers
// ------------------------------------------------------

// acquire locks the wizard unless it is closed or suspended mid-action.
// On success the caller owns mu.
func (w *Wizard) acquire() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errClosed
	}
	if w.busy {
		w.mu.Unlock()
		return errBusy
	}
	return nil
}

// resumeLocked ends a suspension started by setting busy.
func (w *Wizard) resumeLocked() error {
	w.busy = false
	if !w.closed {
		return nil
	}
	if h, ok := w.tracker.Current(); ok {
		w.tracker.Disarm(h)
	}
	return errClosed
}

func (w *Wizard) report(err error) error {
	w.sink.OnError(httperr.KindOf(err), httperr.MessageOf(err))
	return err
}

func (w *Wizard) commitLocked(ctx context.Context) {
	if err := w.storage.Save(ctx, w.draft.Persisted()); err != nil {
		w.log.Warn("draft save failed", zap.Error(err))
		w.sink.OnError(httperr.KindNetwork, "Your selection could not be saved.")
	}
	w.notifyLocked()
}

func (w *Wizard) notifyLocked() {
	for _, fn := range w.listeners {
		fn(w.draft.Clone())
	}
	w.sink.OnDraftChanged(w.draft.Clone())
}

func (w *Wizard) barbers(ctx context.Context) ([]domain.Resource, error) {
	m, err := w.catalog.Barbers(ctx)
	if err != nil {
		return nil, classify("catalog_unavailable", err)
	}

	w.resMu.Lock()
	w.resources = m
	w.resMu.Unlock()

	return domain.SortedResources(m), nil
}

func (w *Wizard) knownResource(id string) bool {
	w.resMu.RLock()
	defer w.resMu.RUnlock()
	r, ok := w.resources[id]
	return ok && r.Active
}

func (w *Wizard) rules(resources []domain.Resource) domain.DateRules {
	return domain.DateRules{
		Holidays:  w.cfg.Holidays,
		Resources: resources,
		Now:       w.clock.Now(),
	}
}

// classify keeps business errors as they are and turns anything else into
// a network error.
func classify(code string, err error) error {
	if httperr.KindOf(err) != httperr.KindInternal {
		return err
	}
	return httperr.Network(code, err)
}
