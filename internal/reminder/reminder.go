// Package reminder periodically announces how many items are due for review.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/starford/lexa/internal/sse"
)

// DueCounter reports how many items are due now.
type DueCounter interface {
	DueCount(ctx context.Context) (int, error)
}

// Publisher receives due.updated events.
type Publisher interface {
	Publish(event sse.Event)
}

// Digest is the payload of a due.updated event.
type Digest struct {
	Count int       `json:"count"`
	At    time.Time `json:"at"`
}

// Reminder runs the due digest job on a fixed interval.
type Reminder struct {
	scheduler *gocron.Scheduler
	due       DueCounter
	events    Publisher
	logger    *slog.Logger
	interval  time.Duration
	clock     func() time.Time
}

// New creates a Reminder. The first digest is published as soon as Start is called.
func New(due DueCounter, events Publisher, interval time.Duration, loc *time.Location, logger *slog.Logger) *Reminder {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	return &Reminder{
		scheduler: s,
		due:       due,
		events:    events,
		logger:    logger,
		interval:  interval,
		clock:     func() time.Time { return time.Now().In(loc) },
	}
}

// Start schedules the digest job without blocking. The job stops with ctx or Stop.
func (r *Reminder) Start(ctx context.Context) error {
	if _, err := r.scheduler.Every(r.interval).Do(func() { r.Tick(ctx) }); err != nil {
		return fmt.Errorf("reminder: schedule: %w", err)
	}
	r.scheduler.StartAsync()
	r.logger.Info("reminders started", slog.Duration("interval", r.interval))
	return nil
}

// Stop halts the scheduler.
func (r *Reminder) Stop() {
	r.scheduler.Stop()
}

// Tick computes the due count once and publishes it.
func (r *Reminder) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := r.due.DueCount(ctx)
	if err != nil {
		r.logger.Warn("reminder: due count failed", slog.String("error", err.Error()))
		return
	}
	d := Digest{Count: n, At: r.clock()}
	r.logger.Info("items due", slog.Int("count", n))
	r.events.Publish(sse.Event{Type: sse.TypeDueUpdated, Data: d})
}
