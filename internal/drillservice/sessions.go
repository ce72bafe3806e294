package drillservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/starford/lexa/internal/apperr"
	"github.com/starford/lexa/internal/drill"
	"github.com/starford/lexa/internal/models"
	"github.com/starford/lexa/internal/sse"
	"github.com/starford/lexa/internal/store"
)

// StartRequest selects what a new session drills.
type StartRequest struct {
	// GroupID limits the session to one unlocked group. Empty means every unlocked group.
	GroupID string
	// Goal is the session size; zero uses the configured default.
	Goal int
}

// CurrentItem is the prompt for the head of a session queue. The translation is withheld.
type CurrentItem struct {
	ItemID string        `json:"item_id"`
	Term   string        `json:"term"`
	Level  int           `json:"level"`
	Status models.Status `json:"status"`
	Streak int           `json:"streak"`
}

// SessionView is the externally visible state of a session.
type SessionView struct {
	ID          string       `json:"id"`
	GroupID     string       `json:"group_id,omitempty"`
	State       drill.State  `json:"state"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Size        int          `json:"size"`
	Remaining   int          `json:"remaining"`
	Answered    int          `json:"answered"`
	Correct     int          `json:"correct"`
	Accuracy    int          `json:"accuracy"`
	Current     *CurrentItem `json:"current,omitempty"`
}

func (s *Service) view(sess *drill.Session) *SessionView {
	total, correct := sess.Tally()
	v := &SessionView{
		ID:          sess.ID,
		GroupID:     sess.GroupID,
		State:       sess.State(),
		StartedAt:   sess.StartedAt,
		CompletedAt: sess.CompletedAt,
		Size:        len(sess.Items()),
		Remaining:   sess.Remaining(),
		Answered:    total,
		Correct:     correct,
		Accuracy:    sess.Accuracy(),
	}
	if head, ok := s.engine.CurrentEntry(sess); ok {
		v.Current = &CurrentItem{
			ItemID: head.Item.ID,
			Term:   head.Item.Term,
			Level:  head.Item.Level,
			Status: head.Item.Status(),
			Streak: head.Streak,
		}
	}
	return v
}

// StartSession opens a session over the due items of the requested groups.
func (s *Service) StartSession(ctx context.Context, req StartRequest) (*SessionView, error) {
	goal := req.Goal
	if goal == 0 {
		goal = s.goal
	}
	if goal < 0 || goal > MaxGoal {
		return nil, fmt.Errorf("%w: goal must be between 1 and %d", apperr.ErrInvalidInput, MaxGoal)
	}

	candidates, err := s.candidates(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	sess, err := s.engine.Start(candidates, goal, req.GroupID, s.now())
	if err != nil {
		return nil, err
	}

	s.sessMu.Lock()
	s.sessions[sess.ID] = &activeSession{sess: sess}
	s.sessMu.Unlock()

	v := s.view(sess)
	s.logger.Info("session started", slog.String("session_id", sess.ID), slog.Int("size", v.Size))
	s.publish(sse.TypeSessionStarted, map[string]any{"id": sess.ID, "group_id": sess.GroupID, "size": v.Size})
	return v, nil
}

// candidates loads the items a session may drill, with pending in-memory changes applied.
func (s *Service) candidates(ctx context.Context, groupID string) ([]*models.VocabularyItem, error) {
	groups, err := s.groupsSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	unlocked := make(map[string]bool, len(groups))
	found := false
	for _, g := range groups {
		unlocked[g.ID] = g.Unlocked
		if g.ID == groupID {
			found = true
		}
	}
	if groupID != "" {
		if !found {
			return nil, fmt.Errorf("%w: group %s", apperr.ErrNotFound, groupID)
		}
		if !unlocked[groupID] {
			return nil, fmt.Errorf("%w: group %s is locked", apperr.ErrLocked, groupID)
		}
	}

	items, err := s.repo.ListItems(ctx, groupID)
	if err != nil {
		return nil, err
	}
	items = lo.Filter(items, func(it *models.VocabularyItem, _ int) bool { return unlocked[it.GroupID] })

	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.overlay(items), nil
}

func (s *Service) lookup(id string) (*activeSession, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	as, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", apperr.ErrNotFound, id)
	}
	return as, nil
}

// Current returns the state of an active session.
func (s *Service) Current(_ context.Context, sessionID string) (*SessionView, error) {
	as, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	as.mu.Lock()
	defer as.mu.Unlock()
	return s.view(as.sess), nil
}

// SubmitAnswer grades an answer for the current item of a session.
func (s *Service) SubmitAnswer(_ context.Context, sessionID, itemID, raw string) (drill.AnswerResult, error) {
	as, err := s.lookup(sessionID)
	if err != nil {
		return drill.AnswerResult{}, err
	}
	as.mu.Lock()
	res, err := s.engine.SubmitAnswer(as.sess, itemID, raw, s.now())
	if err != nil {
		as.mu.Unlock()
		return res, err
	}
	item, _ := as.sess.Item(itemID)
	snapshot := item.Clone()
	as.mu.Unlock()

	s.stateMu.Lock()
	versions := s.markPending(snapshot)
	s.stateMu.Unlock()

	s.enqueue(persistJob{
		kind:      "answer",
		sessionID: sessionID,
		write: func(ctx context.Context) error {
			return s.repo.SaveItemProgress(ctx, []*models.VocabularyItem{snapshot})
		},
		done: func() { s.clearPending(versions) },
	})

	s.publish(sse.TypeAnswerSubmitted, map[string]any{
		"session_id": sessionID,
		"item_id":    itemID,
		"correct":    res.Correct,
		"near_match": res.NearMatch,
		"mastered":   res.MasteredThisAnswer,
		"remaining":  res.Remaining,
	})
	return res, nil
}

// CompleteSession finalizes a session and queues its results for persistence.
func (s *Service) CompleteSession(ctx context.Context, sessionID string) (*drill.Completion, error) {
	as, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	as.mu.Lock()
	defer as.mu.Unlock()

	s.stateMu.Lock()
	book, err := s.loadLedger(ctx)
	if err != nil {
		s.stateMu.Unlock()
		return nil, err
	}
	now := s.now()
	comp, err := s.engine.Complete(as.sess, book, now)
	if err != nil {
		s.stateMu.Unlock()
		return nil, err
	}
	rec := completionRecord(as.sess, comp, book.Profile)
	versions := s.markPending(rec.Items...)
	s.stateMu.Unlock()

	s.sessMu.Lock()
	delete(s.sessions, sessionID)
	s.sessMu.Unlock()

	s.enqueue(persistJob{
		kind:      "completion",
		sessionID: sessionID,
		write:     func(ctx context.Context) error { return s.repo.SaveCompletion(ctx, rec) },
		done:      func() { s.clearPending(versions) },
	})

	s.logger.Info("session completed",
		slog.String("session_id", sessionID),
		slog.Int("accuracy", comp.Accuracy),
		slog.Int("daily_streak", comp.DailyStreak))
	s.publish(sse.TypeSessionCompleted, comp)
	for _, id := range comp.UnlockedGroupIDs {
		s.publish(sse.TypeGroupUnlocked, map[string]string{"group_id": id})
	}
	return comp, nil
}

// completionRecord snapshots everything a completion changed. Callers hold stateMu.
func completionRecord(sess *drill.Session, comp *drill.Completion, profile *models.LearnerProfile) store.CompletionRecord {
	answers := sess.Answers()
	rec := store.CompletionRecord{
		Session: store.SessionRow{
			ID:          sess.ID,
			GroupID:     sess.GroupID,
			StartedAt:   sess.StartedAt,
			CompletedAt: *sess.CompletedAt,
			Total:       comp.Total,
			Correct:     comp.Correct,
			Accuracy:    comp.Accuracy,
			DailyStreak: comp.DailyStreak,
		},
		Answers: lo.Map(answers, func(a drill.AnswerRecord, i int) store.AnswerRow {
			return store.AnswerRow{
				SessionID:  sess.ID,
				Seq:        i,
				ItemID:     a.ItemID,
				Raw:        a.Raw,
				Expected:   a.Expected,
				Correct:    a.Correct,
				NearMatch:  a.NearMatch,
				AnsweredAt: a.At,
			}
		}),
		Items: lo.Map(comp.Items, func(it *models.VocabularyItem, _ int) *models.VocabularyItem { return it.Clone() }),
		Groups: lo.Map(comp.Groups, func(g *models.Group, _ int) *models.Group {
			cp := *g
			return &cp
		}),
		Profile: *profile,
	}
	if profile.LastSessionAt != nil {
		t := *profile.LastSessionAt
		rec.Profile.LastSessionAt = &t
	}
	return rec
}

// DiscardSession drops an active session without grading it. Answer counters already
// recorded are kept.
func (s *Service) DiscardSession(_ context.Context, sessionID string) error {
	s.sessMu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.sessMu.Unlock()
	if !ok {
		return fmt.Errorf("%w: session %s", apperr.ErrNotFound, sessionID)
	}
	s.logger.Info("session discarded", slog.String("session_id", sessionID))
	s.publish(sse.TypeSessionDiscarded, map[string]string{"id": sessionID})
	return nil
}

// ActiveSessions returns the number of sessions in progress.
func (s *Service) ActiveSessions() int {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	return len(s.sessions)
}
