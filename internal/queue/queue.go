// Package queue orders the items drilled within one sitting.
//
// A Queue starts from an interleaved mix of new and review items. Each answer pops the head
// entry and either retires it (four correct answers in a row) or reinserts it further back,
// with the distance growing as the streak grows.
package queue

import (
	"fmt"

	"github.com/starford/lexa/internal/apperr"
	"github.com/starford/lexa/internal/models"
)

const (
	// MasteryStreak is the number of consecutive correct answers that retires an entry.
	MasteryStreak = 4
	// MaxNewRun caps consecutive new entries while review entries are still waiting.
	MaxNewRun = 5
)

// RandomSource supplies reinsertion jitter. *math/rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// Entry is one item's place in the session queue.
type Entry struct {
	Item   *models.VocabularyItem
	Streak int
}

// Outcome describes what Transition did with the popped entry.
type Outcome struct {
	Entry    *Entry
	Mastered bool
	// Position is the reinsertion index, or -1 when the entry was retired.
	Position int
}

// Queue is the ordered list of entries still to drill. It is not safe for concurrent use.
type Queue struct {
	entries []*Entry
	rnd     RandomSource
}

// Build creates the initial queue from candidates, keeping at most goal of them.
// Duplicate item IDs collapse onto their first occurrence.
func Build(candidates []*models.VocabularyItem, goal int, rnd RandomSource) (*Queue, error) {
	if goal <= 0 {
		return nil, fmt.Errorf("%w: session goal must be positive, got %d", apperr.ErrInvalidInput, goal)
	}
	if rnd == nil {
		return nil, fmt.Errorf("%w: random source is required", apperr.ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(candidates))
	capped := make([]*models.VocabularyItem, 0, min(goal, len(candidates)))
	for _, it := range candidates {
		if len(capped) == goal {
			break
		}
		if it == nil {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		capped = append(capped, it)
	}

	return &Queue{entries: interleave(capped), rnd: rnd}, nil
}

// interleave merges new and review items in their original order, but never lets more than
// MaxNewRun new entries run together while a review entry is still unplaced.
func interleave(items []*models.VocabularyItem) []*Entry {
	type ranked struct {
		pos  int
		item *models.VocabularyItem
	}
	var fresh, review []ranked
	for i, it := range items {
		if it.IsNew() {
			fresh = append(fresh, ranked{i, it})
		} else {
			review = append(review, ranked{i, it})
		}
	}

	out := make([]*Entry, 0, len(items))
	run := 0
	for len(fresh) > 0 && len(review) > 0 {
		takeNew := fresh[0].pos < review[0].pos && run < MaxNewRun
		if takeNew {
			out = append(out, &Entry{Item: fresh[0].item})
			fresh = fresh[1:]
			run++
			continue
		}
		out = append(out, &Entry{Item: review[0].item})
		review = review[1:]
		run = 0
	}
	for _, r := range fresh {
		out = append(out, &Entry{Item: r.item})
	}
	for _, r := range review {
		out = append(out, &Entry{Item: r.item})
	}
	return out
}

// Head returns the entry being drilled.
func (q *Queue) Head() (*Entry, bool) {
	if len(q.entries) == 0 {
		return nil, false
	}
	return q.entries[0], true
}

// Len returns the number of entries left.
func (q *Queue) Len() int { return len(q.entries) }

// Entries returns a copy of the current order.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	for i, e := range q.entries {
		out[i] = *e
	}
	return out
}

// Contains reports whether an entry for itemID is still queued.
func (q *Queue) Contains(itemID string) bool {
	for _, e := range q.entries {
		if e.Item.ID == itemID {
			return true
		}
	}
	return false
}

// Transition pops the head and applies the answer to it.
func (q *Queue) Transition(correct bool) (Outcome, error) {
	if len(q.entries) == 0 {
		return Outcome{}, fmt.Errorf("%w: queue is empty", apperr.ErrPrecondition)
	}
	head := q.entries[0]
	rest := q.entries[1:]

	if !correct {
		head.Streak = 0
		pos := q.insert(rest, head, 2+q.rnd.Intn(2))
		return Outcome{Entry: head, Position: pos}, nil
	}

	head.Streak++
	if head.Streak >= MasteryStreak {
		q.entries = rest
		return Outcome{Entry: head, Mastered: true, Position: -1}, nil
	}

	var offset int
	switch head.Streak {
	case 1:
		offset = 5 + q.rnd.Intn(2)
	case 2:
		offset = 10 + q.rnd.Intn(3)
	default:
		offset = 20
	}
	pos := q.insert(rest, head, offset)
	return Outcome{Entry: head, Position: pos}, nil
}

// insert places e at offset within rest, clamped to len(rest), and returns the final index.
func (q *Queue) insert(rest []*Entry, e *Entry, offset int) int {
	pos := min(offset, len(rest))
	next := make([]*Entry, 0, len(rest)+1)
	next = append(next, rest[:pos]...)
	next = append(next, e)
	next = append(next, rest[pos:]...)
	q.entries = next
	return pos
}
