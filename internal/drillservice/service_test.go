package drillservice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/starford/lexa/internal/apperr"
	"github.com/starford/lexa/internal/drill"
	"github.com/starford/lexa/internal/sse"
	"github.com/starford/lexa/internal/store"
	"github.com/starford/lexa/internal/testutil"
)

var t0 = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

type fixedRand int

func (f fixedRand) Intn(n int) int { return min(int(f), n-1) }

type recorder struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recorder) Publish(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == kind {
			n++
		}
	}
	return n
}

// failingRepo rejects completions to exercise persistence failures.
type failingRepo struct {
	store.Repository
}

func (failingRepo) SaveCompletion(context.Context, store.CompletionRecord) error {
	return errors.New("disk on fire")
}

type env struct {
	svc    *Service
	db     *store.DB
	events *recorder
	clock  *time.Time
}

func newEnv(t *testing.T, wrap func(store.Repository) store.Repository) *env {
	t.Helper()
	db := testutil.TestDB(t)
	var repo store.Repository = db
	if wrap != nil {
		repo = wrap(db)
	}
	now := t0
	e := &env{db: db, events: &recorder{}, clock: &now}
	e.svc = New(repo, drill.NewEngine(drill.WithRandomSource(fixedRand(0))),
		WithPublisher(e.events),
		WithLogger(testutil.Logger()),
		WithClock(func() time.Time { return *e.clock }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = e.svc.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

func (e *env) importDecks(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := e.svc.ImportDeck(ctx, "01-basics.md", []byte("cat :: gato\ndog :: perro\n")); err != nil {
		t.Fatalf("import basics: %v", err)
	}
	if _, err := e.svc.ImportDeck(ctx, "02-more.md", []byte("sun :: sol\n")); err != nil {
		t.Fatalf("import more: %v", err)
	}
}

// drillAll answers every prompt correctly until the queue drains.
func (e *env) drillAll(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		v, err := e.svc.Current(ctx, id)
		if err != nil {
			t.Fatalf("Current: %v", err)
		}
		if v.Current == nil {
			return
		}
		it, err := e.db.GetItem(ctx, v.Current.ItemID)
		if err != nil {
			t.Fatalf("GetItem: %v", err)
		}
		if _, err := e.svc.SubmitAnswer(ctx, id, it.ID, it.Translation); err != nil {
			t.Fatalf("SubmitAnswer: %v", err)
		}
	}
	t.Fatal("queue never drained")
}

func TestSessionFlow_UnlocksNextGroupAndPersists(t *testing.T) {
	e := newEnv(t, nil)
	e.importDecks(t)
	ctx := context.Background()

	groups, _ := e.svc.Groups(ctx)
	if len(groups) != 2 || !groups[0].Unlocked || groups[1].Unlocked {
		t.Fatalf("groups = %+v", groups)
	}

	for round := 1; round <= 2; round++ {
		v, err := e.svc.StartSession(ctx, StartRequest{GroupID: "01-basics"})
		if err != nil {
			t.Fatalf("round %d start: %v", round, err)
		}
		if v.Size != 2 || v.Current == nil {
			t.Fatalf("round %d view = %+v", round, v)
		}
		e.drillAll(t, v.ID)
		comp, err := e.svc.CompleteSession(ctx, v.ID)
		if err != nil {
			t.Fatalf("round %d complete: %v", round, err)
		}
		if comp.Accuracy != 100 || comp.Total != 8 {
			t.Errorf("round %d completion = %+v", round, comp)
		}
		_, unlocked := comp.UnlockedGroupID()
		if unlocked != (round == 2) {
			t.Errorf("round %d unlocked = %v", round, unlocked)
		}
	}

	groups, _ = e.svc.Groups(ctx)
	if !groups[1].Unlocked || groups[0].CompletedSessions != 2 {
		t.Errorf("groups after sessions = %+v %+v", groups[0], groups[1])
	}
	profile, _ := e.svc.Profile(ctx)
	if profile.DailyStreak != 1 {
		t.Errorf("streak = %d, want 1", profile.DailyStreak)
	}

	testutil.Eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		g, err := e.db.GetGroup(ctx, "02-more")
		return err == nil && g.Unlocked
	}, "unlock not persisted")
	testutil.Eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		rows, err := e.db.ListSessions(ctx, 10)
		return err == nil && len(rows) == 2
	}, "sessions not persisted")

	cat, _ := e.db.GetItem(ctx, e.mustItemID(t, "01-basics", "cat"))
	if cat.Level != 2 || cat.TotalAttempts != 8 {
		t.Errorf("cat = %+v", cat)
	}
	if e.events.count(sse.TypeGroupUnlocked) != 1 || e.events.count(sse.TypeSessionCompleted) != 2 {
		t.Errorf("unlocked events = %d, completed events = %d", e.events.count(sse.TypeGroupUnlocked), e.events.count(sse.TypeSessionCompleted))
	}
}

func (e *env) mustItemID(t *testing.T, groupID, term string) string {
	t.Helper()
	items, err := e.db.ListItems(context.Background(), groupID)
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		if it.Term == term {
			return it.ID
		}
	}
	t.Fatalf("no item %s in %s", term, groupID)
	return ""
}

func TestStartSession_Errors(t *testing.T) {
	e := newEnv(t, nil)
	e.importDecks(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  StartRequest
		want error
	}{
		{"locked group", StartRequest{GroupID: "02-more"}, apperr.ErrLocked},
		{"unknown group", StartRequest{GroupID: "nope"}, apperr.ErrNotFound},
		{"goal too large", StartRequest{Goal: MaxGoal + 1}, apperr.ErrInvalidInput},
		{"negative goal", StartRequest{Goal: -1}, apperr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.svc.StartSession(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStartSession_EmptyLibrary(t *testing.T) {
	e := newEnv(t, nil)
	if _, err := e.svc.StartSession(context.Background(), StartRequest{}); !errors.Is(err, apperr.ErrPrecondition) {
		t.Errorf("err = %v, want ErrPrecondition", err)
	}
}

func TestUnknownSession(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	if _, err := e.svc.Current(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Current err = %v", err)
	}
	if _, err := e.svc.SubmitAnswer(ctx, "nope", "x", "y"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("SubmitAnswer err = %v", err)
	}
	if _, err := e.svc.CompleteSession(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("CompleteSession err = %v", err)
	}
	if err := e.svc.DiscardSession(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("DiscardSession err = %v", err)
	}
}

func TestPersistFailureKeepsEngineState(t *testing.T) {
	e := newEnv(t, func(r store.Repository) store.Repository { return failingRepo{r} })
	e.importDecks(t)
	ctx := context.Background()

	v, err := e.svc.StartSession(ctx, StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	e.drillAll(t, v.ID)
	if _, err := e.svc.CompleteSession(ctx, v.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	testutil.Eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return e.events.count(sse.TypePersistFailed) == 1
	}, "expected persist.failed event")

	profile, _ := e.svc.Profile(ctx)
	if profile.DailyStreak != 1 || profile.LastSessionAt == nil {
		t.Errorf("profile rolled back: %+v", profile)
	}
	items, err := e.svc.Items(ctx, "01-basics")
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		if it.Level != 1 {
			t.Errorf("%s level = %d, want in-memory level 1", it.Term, it.Level)
		}
	}
	stored, _ := e.db.GetItem(ctx, items[0].ID)
	if stored.Level != 0 {
		t.Errorf("stored level = %d, completion should not have been written", stored.Level)
	}
}

func TestDiscardKeepsCounters(t *testing.T) {
	e := newEnv(t, nil)
	e.importDecks(t)
	ctx := context.Background()

	v, _ := e.svc.StartSession(ctx, StartRequest{})
	itemID := v.Current.ItemID
	res, err := e.svc.SubmitAnswer(ctx, v.ID, itemID, "wrong")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if res.Correct {
		t.Fatal("expected wrong answer")
	}
	if err := e.svc.DiscardSession(ctx, v.ID); err != nil {
		t.Fatalf("DiscardSession: %v", err)
	}
	if e.svc.ActiveSessions() != 0 {
		t.Error("session still active")
	}
	testutil.Eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		it, err := e.db.GetItem(ctx, itemID)
		return err == nil && it.TotalAttempts == 1 && it.TotalWrong == 1 && it.Level == 0
	}, "counters not persisted after discard")
}

func TestDueItemsAndMute(t *testing.T) {
	e := newEnv(t, nil)
	e.importDecks(t)
	ctx := context.Background()

	due, err := e.svc.DueItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 2 {
		t.Fatalf("due = %d, want 2 (locked group excluded)", len(due))
	}
	it, err := e.svc.SetMuted(ctx, due[0].ID, true)
	if err != nil || !it.Muted {
		t.Fatalf("SetMuted = %+v, %v", it, err)
	}
	if n, _ := e.svc.DueCount(ctx); n != 1 {
		t.Errorf("due count = %d, want 1", n)
	}
}

func TestImportDeck_Rejects(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	if _, err := e.svc.ImportDeck(ctx, "notes.txt", []byte("a :: b")); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("txt err = %v", err)
	}
	if _, err := e.svc.ImportDeck(ctx, "empty.md", []byte("# nothing")); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty err = %v", err)
	}
	groups, _ := e.svc.Groups(ctx)
	if len(groups) != 0 {
		t.Errorf("groups = %+v", groups)
	}
}

func TestImportDeck_WritesLibraryFile(t *testing.T) {
	db := testutil.TestDB(t)
	_, files := testutil.TestLibrary(t)
	svc := New(db, drill.NewEngine(), WithFiles(files), WithLogger(testutil.Logger()))

	if _, err := svc.ImportDeck(context.Background(), "../../escape/03-x.md", []byte("a :: b\n")); err != nil {
		t.Fatalf("ImportDeck: %v", err)
	}
	data, err := files.Read("03-x.md")
	if err != nil || string(data) != "a :: b\n" {
		t.Errorf("library file = %q, %v", data, err)
	}
}

func TestSubmitAnswer_ConcurrentCallsSerialize(t *testing.T) {
	e := newEnv(t, nil)
	e.importDecks(t)
	ctx := context.Background()
	v, _ := e.svc.StartSession(ctx, StartRequest{})
	head := v.Current.ItemID

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.svc.SubmitAnswer(ctx, v.ID, head, "nope"); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else if !errors.Is(err, apperr.ErrPrecondition) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	cur, _ := e.svc.Current(ctx, v.ID)
	if cur.Answered != ok {
		t.Errorf("answered = %d, successful calls = %d", cur.Answered, ok)
	}
}
