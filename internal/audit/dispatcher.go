package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Event struct {
	SessionID string    `json:"session_id,omitempty"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id,omitempty"`
	Metadata  any       `json:"metadata,omitempty"`
	At        time.Time `json:"at"`
}

// Writer stores or forwards one event.
type Writer interface {
	Write(ctx context.Context, ev Event) error
}

type Dispatcher struct {
	log     *zap.Logger
	writers []Writer
	queue   chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewDispatcher(log *zap.Logger, writers ...Writer) *Dispatcher {
	d := &Dispatcher{
		log:     log,
		writers: writers,
		queue:   make(chan Event, 100),
		done:    make(chan struct{}),
	}

	d.wg.Add(1)
	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.queue:
			d.write(ev)
		case <-d.done:
			// drain what is already queued, then stop
			for {
				select {
				case ev := <-d.queue:
					d.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) write(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, w := range d.writers {
		if err := w.Write(ctx, ev); err != nil {
			d.log.Warn("audit write failed",
				zap.String("action", ev.Action),
				zap.String("entity_id", ev.EntityID),
				zap.Error(err),
			)
		}
	}
}

// Dispatch never blocks: with a full queue the event is dropped.
// A nil Dispatcher discards everything.
func (d *Dispatcher) Dispatch(ev Event) {
	if d == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	select {
	case <-d.done:
		return
	default:
	}

	select {
	case d.queue <- ev:
	default:
		d.log.Warn("audit queue full, dropping event", zap.String("action", ev.Action))
	}
}

// Close flushes queued events and stops the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() { close(d.done) })
	d.wg.Wait()
}
