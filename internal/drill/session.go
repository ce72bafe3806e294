// Package drill runs review sessions: it starts them from due items, grades answers against
// the session queue and folds the results back into item levels, group unlocks and the
// learner's daily streak when a session completes.
//
// The engine is synchronous and holds no session state of its own; a Session is owned by a
// single caller at a time.
package drill

import (
	"math"
	"time"

	"github.com/starford/lexa/internal/models"
	"github.com/starford/lexa/internal/queue"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateActive State = iota
	StateCompleted
)

func (s State) String() string {
	if s == StateCompleted {
		return "completed"
	}
	return "active"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AnswerRecord is one graded answer. Records are never changed once appended.
type AnswerRecord struct {
	ItemID    string    `json:"item_id"`
	Raw       string    `json:"raw"`
	Expected  string    `json:"expected"`
	Correct   bool      `json:"correct"`
	NearMatch bool      `json:"near_match"`
	At        time.Time `json:"at"`
}

// Session is one sitting of drilling.
type Session struct {
	ID          string
	GroupID     string
	StartedAt   time.Time
	CompletedAt *time.Time

	answers    []AnswerRecord
	queue      *queue.Queue
	candidates map[string]*models.VocabularyItem
	order      []string
	mastered   map[string]bool
}

// State reports whether the session still accepts answers.
func (s *Session) State() State {
	if s.CompletedAt != nil {
		return StateCompleted
	}
	return StateActive
}

// Answers returns a copy of the answer log in submission order.
func (s *Session) Answers() []AnswerRecord {
	out := make([]AnswerRecord, len(s.answers))
	copy(out, s.answers)
	return out
}

// Remaining is the number of queue entries left.
func (s *Session) Remaining() int { return s.queue.Len() }

// Queue returns a snapshot of the queue order.
func (s *Session) Queue() []queue.Entry { return s.queue.Entries() }

// Items returns the session's candidate items in queue-build order.
func (s *Session) Items() []*models.VocabularyItem {
	out := make([]*models.VocabularyItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.candidates[id])
	}
	return out
}

// Item looks up a candidate item by ID.
func (s *Session) Item(id string) (*models.VocabularyItem, bool) {
	it, ok := s.candidates[id]
	return it, ok
}

// Mastered reports whether itemID reached the mastery streak in this session.
func (s *Session) Mastered(itemID string) bool { return s.mastered[itemID] }

// Tally returns the number of answers and how many were correct.
func (s *Session) Tally() (total, correct int) {
	for _, a := range s.answers {
		total++
		if a.Correct {
			correct++
		}
	}
	return total, correct
}

// Accuracy is the rounded percentage of correct answers, 0 when nothing was answered.
func (s *Session) Accuracy() int {
	total, correct := s.Tally()
	return percent(correct, total)
}

func percent(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}
