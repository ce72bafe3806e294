// Package drillservice hosts drill sessions on top of the store.
//
// The service keeps the learner's groups and profile in memory as the source of truth for
// running sessions and writes changes behind to the store through a background worker.
// Items changed in memory but not yet persisted are overlaid on every read, so a new session
// never sees levels older than the last completion even while writes are pending.
package drillservice

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/starford/lexa/internal/drill"
	"github.com/starford/lexa/internal/models"
	"github.com/starford/lexa/internal/sse"
	"github.com/starford/lexa/internal/storage"
	"github.com/starford/lexa/internal/store"
)

// DefaultGoal is the session size used when neither the request nor the config sets one.
const DefaultGoal = 20

// MaxGoal caps the session size a caller may request.
const MaxGoal = 200

// Publisher receives domain events.
type Publisher interface {
	Publish(event sse.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(sse.Event) {}

// Service coordinates the drill engine, the store and event publishing.
type Service struct {
	repo   store.Repository
	files  storage.Provider
	engine *drill.Engine
	events Publisher
	logger *slog.Logger
	clock  func() time.Time
	loc    *time.Location
	goal   int

	sessMu   sync.Mutex
	sessions map[string]*activeSession

	// stateMu guards ledger and pending.
	stateMu sync.Mutex
	ledger  *drill.Ledger
	pending map[string]pendingItem

	jobs chan persistJob
}

type activeSession struct {
	mu   sync.Mutex
	sess *drill.Session
}

type pendingItem struct {
	item    *models.VocabularyItem
	version uint64
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where domain events go.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.clock = fn
		}
	}
}

// WithLocation sets the time zone calendar days are counted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithGoal sets the default session size.
func WithGoal(goal int) Option {
	return func(s *Service) {
		if goal > 0 {
			s.goal = goal
		}
	}
}

// WithFiles enables writing uploaded decks into the library.
func WithFiles(files storage.Provider) Option {
	return func(s *Service) {
		s.files = files
	}
}

// New creates a Service. Call Run to start persisting changes.
func New(repo store.Repository, engine *drill.Engine, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		engine:   engine,
		events:   nopPublisher{},
		logger:   slog.Default(),
		clock:    time.Now,
		loc:      time.UTC,
		goal:     DefaultGoal,
		sessions: make(map[string]*activeSession),
		pending:  make(map[string]pendingItem),
		jobs:     make(chan persistJob, persistQueueSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock().In(s.loc)
}

// loadLedger returns the in-memory ledger, reading it from the store on first use.
// Callers hold stateMu.
func (s *Service) loadLedger(ctx context.Context) (*drill.Ledger, error) {
	if s.ledger != nil {
		return s.ledger, nil
	}
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.repo.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	s.ledger = &drill.Ledger{Groups: groups, Profile: profile}
	return s.ledger, nil
}

// refreshGroups merges groups from the store into the ledger after an import.
// Progress counters already held in memory win over the store's copy.
func (s *Service) refreshGroups(ctx context.Context) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.ledger == nil {
		_, err := s.loadLedger(ctx)
		return err
	}
	fresh, err := s.repo.ListGroups(ctx)
	if err != nil {
		return err
	}
	byID := lo.KeyBy(s.ledger.Groups, func(g *models.Group) string { return g.ID })
	for _, g := range fresh {
		cur, ok := byID[g.ID]
		if !ok {
			s.ledger.Groups = append(s.ledger.Groups, g)
			continue
		}
		cur.Name = g.Name
		cur.Sequence = g.Sequence
		cur.SourcePath = g.SourcePath
		cur.Checksum = g.Checksum
		cur.Unlocked = cur.Unlocked || g.Unlocked
	}
	return nil
}

// groupsSnapshot returns copies of the ledger groups ordered by sequence.
func (s *Service) groupsSnapshot(ctx context.Context) ([]*models.Group, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	book, err := s.loadLedger(ctx)
	if err != nil {
		return nil, err
	}
	out := lo.Map(book.Groups, func(g *models.Group, _ int) *models.Group {
		cp := *g
		return &cp
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// overlay replaces items that have unpersisted in-memory changes with clones of those
// changes. Callers hold stateMu.
func (s *Service) overlay(items []*models.VocabularyItem) []*models.VocabularyItem {
	for i, it := range items {
		if p, ok := s.pending[it.ID]; ok {
			muted := it.Muted
			items[i] = p.item.Clone()
			// Mute state is written synchronously, so the store copy is current.
			items[i].Muted = muted
		}
	}
	return items
}

// markPending records in-memory item state not yet persisted and returns its version.
// Callers hold stateMu.
func (s *Service) markPending(items ...*models.VocabularyItem) map[string]uint64 {
	versions := make(map[string]uint64, len(items))
	for _, it := range items {
		v := s.pending[it.ID].version + 1
		s.pending[it.ID] = pendingItem{item: it.Clone(), version: v}
		versions[it.ID] = v
	}
	return versions
}

// clearPending drops overlay entries that a persisted write has caught up with.
func (s *Service) clearPending(versions map[string]uint64) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	for id, v := range versions {
		if p, ok := s.pending[id]; ok && p.version == v {
			delete(s.pending, id)
		}
	}
}

func (s *Service) publish(kind string, data any) {
	s.events.Publish(sse.Event{Type: kind, Data: data})
}
