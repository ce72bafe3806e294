package models

import "time"

// Group is an ordered collection of items unlocked one after another.
type Group struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Sequence          int       `json:"sequence" db:"sequence"`
	Unlocked          bool      `json:"unlocked" db:"unlocked"`
	CompletedSessions int       `json:"completed_sessions" db:"completed_sessions"`
	TotalAttempts     int       `json:"total_attempts" db:"total_attempts"`
	TotalCorrect      int       `json:"total_correct" db:"total_correct"`
	Accuracy          int       `json:"accuracy" db:"accuracy"`
	SourcePath        string    `json:"source_path" db:"source_path"`
	Checksum          string    `json:"checksum" db:"checksum"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// LearnerProfile holds the single learner's practice-day streak.
type LearnerProfile struct {
	DailyStreak   int        `json:"daily_streak" db:"daily_streak"`
	LastSessionAt *time.Time `json:"last_session_at,omitempty" db:"last_session_at"`
}
