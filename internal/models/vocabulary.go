// Package models defines the domain types for lexa.
package models

import (
	"encoding"
	"fmt"
	"time"
)

// LearnedLevel is the first level at which an item counts as learned.
const LearnedLevel = 6

// VocabularyItem is a single term/translation pair with its review progress.
type VocabularyItem struct {
	ID            string     `json:"id" db:"id"`
	GroupID       string     `json:"group_id" db:"group_id"`
	Term          string     `json:"term" db:"term"`
	Translation   string     `json:"translation" db:"translation"`
	Level         int        `json:"level" db:"level"`
	LastReviewAt  *time.Time `json:"last_review_at,omitempty" db:"last_review_at"`
	NextReviewAt  time.Time  `json:"next_review_at" db:"next_review_at"`
	TotalAttempts int        `json:"total_attempts" db:"total_attempts"`
	TotalCorrect  int        `json:"total_correct" db:"total_correct"`
	TotalWrong    int        `json:"total_wrong" db:"total_wrong"`
	Muted         bool       `json:"muted" db:"muted"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Status derives the item's learning status.
func (v *VocabularyItem) Status() Status {
	return StatusOf(v.Level, v.TotalAttempts)
}

// IsNew reports whether the item has never been answered.
func (v *VocabularyItem) IsNew() bool {
	return v.TotalAttempts == 0
}

// Clone returns a copy that shares no pointers with v.
func (v *VocabularyItem) Clone() *VocabularyItem {
	out := *v
	if v.LastReviewAt != nil {
		t := *v.LastReviewAt
		out.LastReviewAt = &t
	}
	return &out
}

// Status is the derived learning status of an item.
type Status int

const (
	StatusNew Status = iota + 1
	StatusLearning
	StatusLearned
)

var statusNames = [...]string{StatusNew: "new", StatusLearning: "learning", StatusLearned: "learned"}

var (
	_ fmt.Stringer             = Status(0)
	_ encoding.TextMarshaler   = Status(0)
	_ encoding.TextUnmarshaler = (*Status)(nil)
)

// StatusOf is the single source of truth for an item's status.
// Level wins over attempts: a learned level is never reported as new.
func StatusOf(level, totalAttempts int) Status {
	switch {
	case level >= LearnedLevel:
		return StatusLearned
	case totalAttempts == 0:
		return StatusNew
	default:
		return StatusLearning
	}
}

func (s Status) String() string {
	if s >= StatusNew && s <= StatusLearned {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if s < StatusNew || s > StatusLearned {
		return nil, fmt.Errorf("models: invalid status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name != "" && name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("models: invalid status %q", text)
}
