package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/starford/lexa/internal/apperr"
	"github.com/starford/lexa/internal/models"
)

const groupColumns = `id, name, sequence, unlocked, completed_sessions, total_attempts,
	total_correct, accuracy, source_path, checksum, updated_at`

const itemColumns = `i.id, i.group_id, i.term, i.translation, i.level, i.last_review_at,
	i.next_review_at, i.total_attempts, i.total_correct, i.total_wrong, i.muted,
	i.created_at, i.updated_at`

// SessionRow is a completed session summary.
type SessionRow struct {
	ID          string    `json:"id" db:"id"`
	GroupID     string    `json:"group_id" db:"group_id"`
	StartedAt   time.Time `json:"started_at" db:"started_at"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
	Total       int       `json:"total" db:"total"`
	Correct     int       `json:"correct" db:"correct"`
	Accuracy    int       `json:"accuracy" db:"accuracy"`
	DailyStreak int       `json:"daily_streak" db:"daily_streak"`
}

// AnswerRow is one logged answer of a completed session.
type AnswerRow struct {
	SessionID  string    `json:"session_id" db:"session_id"`
	Seq        int       `json:"seq" db:"seq"`
	ItemID     string    `json:"item_id" db:"item_id"`
	Raw        string    `json:"raw" db:"raw"`
	Expected   string    `json:"expected" db:"expected"`
	Correct    bool      `json:"correct" db:"correct"`
	NearMatch  bool      `json:"near_match" db:"near_match"`
	AnsweredAt time.Time `json:"answered_at" db:"answered_at"`
}

// CompletionRecord is everything a session completion changes.
type CompletionRecord struct {
	Session SessionRow
	Answers []AnswerRow
	Items   []*models.VocabularyItem
	Groups  []*models.Group
	Profile models.LearnerProfile
}

// UpsertResult reports what UpsertDeck changed.
type UpsertResult struct {
	Added    int
	Updated  int
	Unlocked bool
}

// UpsertDeck stores a group and its items in one transaction.
// New items are inserted as given; existing items only get their term and translation
// refreshed so review progress survives a re-import. If no group is unlocked yet, the
// lowest-sequence group is unlocked.
func (db *DB) UpsertDeck(ctx context.Context, g *models.Group, items []*models.VocabularyItem) (UpsertResult, error) {
	var res UpsertResult
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, db.q(`
		INSERT INTO word_groups (id, name, sequence, unlocked, source_path, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name        = excluded.name,
			sequence    = excluded.sequence,
			source_path = excluded.source_path,
			checksum    = excluded.checksum,
			updated_at  = excluded.updated_at
	`), g.ID, g.Name, g.Sequence, g.Unlocked, g.SourcePath, g.Checksum, g.UpdatedAt)
	if err != nil {
		return res, fmt.Errorf("store: upsert group: %w", err)
	}

	for _, it := range items {
		var exists int
		err := tx.GetContext(ctx, &exists, db.q(`SELECT COUNT(*) FROM items WHERE id = ?`), it.ID)
		if err != nil {
			return res, fmt.Errorf("store: check item: %w", err)
		}
		if exists > 0 {
			_, err = tx.ExecContext(ctx, db.q(`
				UPDATE items SET term = ?, translation = ?, updated_at = ? WHERE id = ?
			`), it.Term, it.Translation, it.UpdatedAt, it.ID)
			res.Updated++
		} else {
			_, err = tx.NamedExecContext(ctx, `
				INSERT INTO items (id, group_id, term, translation, level, last_review_at,
					next_review_at, total_attempts, total_correct, total_wrong, muted,
					created_at, updated_at)
				VALUES (:id, :group_id, :term, :translation, :level, :last_review_at,
					:next_review_at, :total_attempts, :total_correct, :total_wrong, :muted,
					:created_at, :updated_at)
			`, it)
			res.Added++
		}
		if err != nil {
			return res, fmt.Errorf("store: upsert item %s: %w", it.ID, err)
		}
		if err := ftsUpsert(ctx, tx, db.driver, it); err != nil {
			return res, err
		}
	}

	var unlocked int
	if err := tx.GetContext(ctx, &unlocked, db.q(`SELECT COUNT(*) FROM word_groups WHERE unlocked = ?`), true); err != nil {
		return res, fmt.Errorf("store: count unlocked: %w", err)
	}
	if unlocked == 0 {
		var first string
		err := tx.GetContext(ctx, &first, `SELECT id FROM word_groups ORDER BY sequence, id LIMIT 1`)
		if err != nil {
			return res, fmt.Errorf("store: first group: %w", err)
		}
		if _, err := tx.ExecContext(ctx, db.q(`UPDATE word_groups SET unlocked = ? WHERE id = ?`), true, first); err != nil {
			return res, fmt.Errorf("store: unlock first group: %w", err)
		}
		res.Unlocked = first == g.ID
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("store: commit: %w", err)
	}
	return res, nil
}

// ListGroups returns every group ordered by sequence.
func (db *DB) ListGroups(ctx context.Context) ([]*models.Group, error) {
	var out []*models.Group
	err := db.conn.SelectContext(ctx, &out, `SELECT `+groupColumns+` FROM word_groups ORDER BY sequence, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list groups: %w", err)
	}
	return out, nil
}

// GetGroup returns one group.
func (db *DB) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	var g models.Group
	err := db.conn.GetContext(ctx, &g, db.q(`SELECT `+groupColumns+` FROM word_groups WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: group %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get group: %w", err)
	}
	return &g, nil
}

// ListItems returns the items of a group, or of every group when groupID is empty.
func (db *DB) ListItems(ctx context.Context, groupID string) ([]*models.VocabularyItem, error) {
	var out []*models.VocabularyItem
	var err error
	if groupID == "" {
		err = db.conn.SelectContext(ctx, &out, `SELECT `+itemColumns+` FROM items i ORDER BY i.created_at, i.id`)
	} else {
		err = db.conn.SelectContext(ctx, &out, db.q(`SELECT `+itemColumns+` FROM items i WHERE i.group_id = ? ORDER BY i.created_at, i.id`), groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: list items: %w", err)
	}
	return out, nil
}

// GetItem returns one item.
func (db *DB) GetItem(ctx context.Context, id string) (*models.VocabularyItem, error) {
	var it models.VocabularyItem
	err := db.conn.GetContext(ctx, &it, db.q(`SELECT `+itemColumns+` FROM items i WHERE i.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: item %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get item: %w", err)
	}
	return &it, nil
}

// SetMuted excludes or re-includes an item from due selection.
func (db *DB) SetMuted(ctx context.Context, id string, muted bool) error {
	res, err := db.conn.ExecContext(ctx, db.q(`UPDATE items SET muted = ?, updated_at = ? WHERE id = ?`),
		muted, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: set muted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: item %s", apperr.ErrNotFound, id)
	}
	return nil
}

// GetProfile returns the learner profile, zero-valued before the first session.
func (db *DB) GetProfile(ctx context.Context) (*models.LearnerProfile, error) {
	var p models.LearnerProfile
	err := db.conn.GetContext(ctx, &p, `SELECT daily_streak, last_session_at FROM learner WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return &p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get profile: %w", err)
	}
	return &p, nil
}

// SaveCompletion writes a completed session and everything it changed in one transaction.
func (db *DB) SaveCompletion(ctx context.Context, rec CompletionRecord) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO sessions (id, group_id, started_at, completed_at, total, correct, accuracy, daily_streak)
		VALUES (:id, :group_id, :started_at, :completed_at, :total, :correct, :accuracy, :daily_streak)
	`, rec.Session)
	if err != nil {
		return fmt.Errorf("store: insert session: %w", err)
	}

	for _, a := range rec.Answers {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO answers (session_id, seq, item_id, raw, expected, correct, near_match, answered_at)
			VALUES (:session_id, :seq, :item_id, :raw, :expected, :correct, :near_match, :answered_at)
		`, a)
		if err != nil {
			return fmt.Errorf("store: insert answer: %w", err)
		}
	}

	for _, it := range rec.Items {
		_, err := tx.NamedExecContext(ctx, `
			UPDATE items SET level = :level, last_review_at = :last_review_at,
				next_review_at = :next_review_at, total_attempts = :total_attempts,
				total_correct = :total_correct, total_wrong = :total_wrong, updated_at = :updated_at
			WHERE id = :id
		`, it)
		if err != nil {
			return fmt.Errorf("store: update item %s: %w", it.ID, err)
		}
	}

	for _, g := range rec.Groups {
		_, err := tx.NamedExecContext(ctx, `
			UPDATE word_groups SET unlocked = :unlocked, completed_sessions = :completed_sessions,
				total_attempts = :total_attempts, total_correct = :total_correct,
				accuracy = :accuracy, updated_at = :updated_at
			WHERE id = :id
		`, g)
		if err != nil {
			return fmt.Errorf("store: update group %s: %w", g.ID, err)
		}
	}

	if err := saveProfile(ctx, tx, rec.Profile); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func saveProfile(ctx context.Context, tx *sqlx.Tx, p models.LearnerProfile) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO learner (id, daily_streak, last_session_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			daily_streak    = excluded.daily_streak,
			last_session_at = excluded.last_session_at
	`), p.DailyStreak, p.LastSessionAt)
	if err != nil {
		return fmt.Errorf("store: save profile: %w", err)
	}
	return nil
}

// SaveItemProgress writes the review state of items outside a completion, such as the
// counters of items drilled in a session that is still open.
func (db *DB) SaveItemProgress(ctx context.Context, items []*models.VocabularyItem) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, it := range items {
		_, err := tx.NamedExecContext(ctx, `
			UPDATE items SET level = :level, last_review_at = :last_review_at,
				next_review_at = :next_review_at, total_attempts = :total_attempts,
				total_correct = :total_correct, total_wrong = :total_wrong
			WHERE id = :id
		`, it)
		if err != nil {
			return fmt.Errorf("store: update progress %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

// DeckChecksums maps each group's source path to its stored checksum.
func (db *DB) DeckChecksums(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		SourcePath string `db:"source_path"`
		Checksum   string `db:"checksum"`
	}
	if err := db.conn.SelectContext(ctx, &rows, `SELECT source_path, checksum FROM word_groups`); err != nil {
		return nil, fmt.Errorf("store: deck checksums: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.SourcePath] = r.Checksum
	}
	return out, nil
}

// ListSessions returns the most recent completed sessions, newest first.
func (db *DB) ListSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []SessionRow
	err := db.conn.SelectContext(ctx, &out, db.q(`
		SELECT id, group_id, started_at, completed_at, total, correct, accuracy, daily_streak
		FROM sessions ORDER BY completed_at DESC LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	return out, nil
}
