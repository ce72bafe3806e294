package drill

import (
	"fmt"
	"sort"
	"time"

	"github.com/starford/lexa/internal/apperr"
	"github.com/starford/lexa/internal/models"
	"github.com/starford/lexa/internal/queue"
	"github.com/starford/lexa/internal/schedule"
)

// UnlockAccuracy is the lifetime group accuracy, in percent, needed to unlock the next group.
const UnlockAccuracy = 80

// UnlockSessions is the number of completed sessions a group needs before it can unlock the next.
const UnlockSessions = 2

// Ledger is the state a completion writes back to: every known group and the learner profile.
type Ledger struct {
	Groups  []*models.Group
	Profile *models.LearnerProfile
}

// LevelChange records an item's level before and after completion.
type LevelChange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Completion summarizes a completed session.
type Completion struct {
	SessionID        string                 `json:"session_id"`
	Accuracy         int                    `json:"accuracy"`
	Total            int                    `json:"total"`
	Correct          int                    `json:"correct"`
	LevelChanges     map[string]LevelChange `json:"level_changes"`
	UnlockedGroupIDs []string               `json:"unlocked_group_ids"`
	DailyStreak      int                    `json:"daily_streak"`

	// Items and Groups are the records changed by the completion, for persistence.
	Items  []*models.VocabularyItem `json:"-"`
	Groups []*models.Group          `json:"-"`
}

// UnlockedGroupID returns the first group unlocked by the completion.
func (c *Completion) UnlockedGroupID() (string, bool) {
	if len(c.UnlockedGroupIDs) == 0 {
		return "", false
	}
	return c.UnlockedGroupIDs[0], true
}

// Start opens a session over the due candidates. When nothing is due it falls back to every
// non-muted candidate, weakest first, so the learner can practice ahead of schedule.
func (e *Engine) Start(candidates []*models.VocabularyItem, goal int, groupID string, now time.Time) (*Session, error) {
	if goal <= 0 {
		return nil, fmt.Errorf("%w: session goal must be positive, got %d", apperr.ErrInvalidInput, goal)
	}

	picked := schedule.SelectDue(candidates, now)
	if len(picked) == 0 {
		for _, it := range candidates {
			if it != nil && !it.Muted {
				picked = append(picked, it)
			}
		}
		schedule.SortByLevel(picked)
	}
	if len(picked) == 0 {
		return nil, fmt.Errorf("%w: no items to drill", apperr.ErrPrecondition)
	}

	q, err := queue.Build(picked, goal, e.rnd)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:         e.newID(),
		GroupID:    groupID,
		StartedAt:  now,
		queue:      q,
		candidates: make(map[string]*models.VocabularyItem, q.Len()),
		mastered:   make(map[string]bool),
	}
	for _, entry := range q.Entries() {
		sess.candidates[entry.Item.ID] = entry.Item
		sess.order = append(sess.order, entry.Item.ID)
	}
	return sess, nil
}

// CurrentEntry returns the entry to drill next, or false when the queue has drained.
func (e *Engine) CurrentEntry(sess *Session) (*queue.Entry, bool) {
	if sess.State() == StateCompleted {
		return nil, false
	}
	head, ok := sess.queue.Head()
	if !ok {
		return nil, false
	}
	cp := *head
	return &cp, true
}

// Complete grades the session into item levels, group progress and the daily streak.
// All changes are planned on copies and applied only once every check has passed.
func (e *Engine) Complete(sess *Session, book *Ledger, now time.Time) (*Completion, error) {
	if sess.State() == StateCompleted {
		return nil, fmt.Errorf("%w: session %s is already completed", apperr.ErrPrecondition, sess.ID)
	}
	if book == nil || book.Profile == nil {
		return nil, fmt.Errorf("%w: ledger with a learner profile is required", apperr.ErrPrecondition)
	}

	total, correct := sess.Tally()
	comp := &Completion{
		SessionID:    sess.ID,
		Accuracy:     percent(correct, total),
		Total:        total,
		Correct:      correct,
		LevelChanges: make(map[string]LevelChange),
	}

	// Items.
	wrong := make(map[string]bool)
	touched := make(map[string]bool)
	for _, a := range sess.answers {
		touched[a.ItemID] = true
		if !a.Correct {
			wrong[a.ItemID] = true
		}
	}
	var itemPlan []*models.VocabularyItem
	for _, id := range sess.order {
		if !touched[id] {
			continue
		}
		orig := sess.candidates[id]
		next := orig.Clone()
		switch {
		case sess.mastered[id]:
			next.Level = schedule.Advance(orig.Level)
		case wrong[id]:
			next.Level = schedule.Drop(orig.Level)
		}
		reviewed := now
		next.LastReviewAt = &reviewed
		next.NextReviewAt = schedule.NextReviewDate(next.Level, now)
		next.UpdatedAt = now
		itemPlan = append(itemPlan, next)
		comp.LevelChanges[id] = LevelChange{From: orig.Level, To: next.Level}
	}

	// Groups.
	groupPlan, unlocked, err := planGroups(sess, book.Groups, now)
	if err != nil {
		return nil, err
	}
	comp.UnlockedGroupIDs = unlocked

	// Streak.
	profile := *book.Profile
	profile.DailyStreak = nextStreak(book.Profile, now)
	last := now
	profile.LastSessionAt = &last
	comp.DailyStreak = profile.DailyStreak

	// Commit.
	for _, next := range itemPlan {
		orig := sess.candidates[next.ID]
		*orig = *next
		comp.Items = append(comp.Items, orig)
	}
	for _, g := range book.Groups {
		if next, ok := groupPlan[g.ID]; ok {
			*g = *next
			comp.Groups = append(comp.Groups, g)
		}
	}
	*book.Profile = profile
	done := now
	sess.CompletedAt = &done

	return comp, nil
}

// planGroups returns updated copies of the groups the session counts towards, keyed by ID,
// and the IDs of groups the completion unlocks.
func planGroups(sess *Session, groups []*models.Group, now time.Time) (map[string]*models.Group, []string, error) {
	byID := make(map[string]*models.Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	attempts := make(map[string]int)
	corrects := make(map[string]int)
	var evaluated []string
	seen := make(map[string]bool)
	addGroup := func(id string) {
		if !seen[id] {
			seen[id] = true
			evaluated = append(evaluated, id)
		}
	}
	if sess.GroupID != "" {
		addGroup(sess.GroupID)
	}
	for _, a := range sess.answers {
		gid := sess.candidates[a.ItemID].GroupID
		if sess.GroupID == "" {
			addGroup(gid)
		} else if gid != sess.GroupID {
			continue
		}
		attempts[gid]++
		if a.Correct {
			corrects[gid]++
		}
	}

	ordered := make([]*models.Group, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	plan := make(map[string]*models.Group)
	var unlocked []string
	for _, id := range evaluated {
		orig, ok := byID[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: group %s is not in the ledger", apperr.ErrNotFound, id)
		}
		g := planned(plan, orig)
		g.CompletedSessions++
		g.TotalAttempts += attempts[id]
		g.TotalCorrect += corrects[id]
		g.Accuracy = percent(g.TotalCorrect, g.TotalAttempts)
		g.UpdatedAt = now

		if !unlockReady(g) {
			continue
		}
		nextGroup := nextInSequence(ordered, g)
		if nextGroup == nil {
			continue
		}
		ng := planned(plan, nextGroup)
		if ng.Unlocked {
			continue
		}
		ng.Unlocked = true
		ng.UpdatedAt = now
		unlocked = append(unlocked, ng.ID)
	}
	return plan, unlocked, nil
}

func planned(plan map[string]*models.Group, g *models.Group) *models.Group {
	if p, ok := plan[g.ID]; ok {
		return p
	}
	cp := *g
	plan[g.ID] = &cp
	return &cp
}

func unlockReady(g *models.Group) bool {
	return g.TotalAttempts > 0 &&
		100*g.TotalCorrect >= UnlockAccuracy*g.TotalAttempts &&
		g.CompletedSessions >= UnlockSessions
}

// nextInSequence returns the group with the smallest Sequence above g's.
func nextInSequence(ordered []*models.Group, g *models.Group) *models.Group {
	for _, cand := range ordered {
		if cand.Sequence > g.Sequence {
			return cand
		}
	}
	return nil
}

func nextStreak(p *models.LearnerProfile, now time.Time) int {
	if p.LastSessionAt == nil {
		return 1
	}
	switch schedule.DaysBetween(*p.LastSessionAt, now) {
	case 0:
		return p.DailyStreak
	case 1:
		return p.DailyStreak + 1
	default:
		return 1
	}
}
