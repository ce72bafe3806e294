package drillservice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/starford/lexa/internal/sse"
)

const persistQueueSize = 256

// drainTimeout bounds how long Run keeps writing queued jobs after shutdown.
const drainTimeout = 5 * time.Second

var errQueueFull = errors.New("drillservice: persist queue full")

type persistJob struct {
	kind      string
	sessionID string
	write     func(ctx context.Context) error
	done      func()
}

// PersistFailure is the payload of a persist.failed event.
type PersistFailure struct {
	Kind      string `json:"kind"`
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

// Run writes queued changes to the store until ctx is cancelled, then drains what is left.
func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return nil
		case job := <-s.jobs:
			s.execute(ctx, job)
		}
	}
}

func (s *Service) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case job := <-s.jobs:
			s.execute(ctx, job)
		default:
			return
		}
	}
}

func (s *Service) execute(ctx context.Context, job persistJob) {
	if err := job.write(ctx); err != nil {
		s.persistFailed(job, err)
		return
	}
	if job.done != nil {
		job.done()
	}
	s.logger.Debug("persist: written", slog.String("kind", job.kind), slog.String("session_id", job.sessionID))
}

// enqueue hands a job to the worker. It never blocks the caller; a full queue is
// reported like any other persistence failure.
func (s *Service) enqueue(job persistJob) {
	select {
	case s.jobs <- job:
	default:
		s.persistFailed(job, errQueueFull)
	}
}

func (s *Service) persistFailed(job persistJob, err error) {
	s.logger.Error("persist: write failed",
		slog.String("kind", job.kind),
		slog.String("session_id", job.sessionID),
		slog.String("error", err.Error()))
	s.publish(sse.TypePersistFailed, PersistFailure{Kind: job.kind, SessionID: job.sessionID, Error: err.Error()})
}
