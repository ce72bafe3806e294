package drill

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/starford/lexa/internal/queue"
)

// Engine starts, grades and completes sessions.
type Engine struct {
	rnd   queue.RandomSource
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRandomSource sets the source of queue reinsertion jitter.
func WithRandomSource(rnd queue.RandomSource) Option {
	return func(e *Engine) {
		if rnd != nil {
			e.rnd = rnd
		}
	}
}

// WithSeed seeds a private math/rand source. A zero seed keeps the default time-seeded one.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		if seed != 0 {
			e.rnd = rand.New(rand.NewSource(seed))
		}
	}
}

// WithIDGenerator overrides session ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine returns an Engine with a time-seeded random source and UUID session IDs.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
