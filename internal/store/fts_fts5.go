//go:build sqlite_fts5

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/starford/lexa/internal/models"
)

func initFTS(conn *sqlx.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
			item_id UNINDEXED,
			term,
			translation,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sqlx.Tx, driver string, it *models.VocabularyItem) error {
	if driver != DriverSQLite {
		return nil
	}
	_, _ = tx.ExecContext(ctx, `DELETE FROM items_fts WHERE item_id = ?`, it.ID)
	_, err := tx.ExecContext(ctx, `INSERT INTO items_fts (item_id, term, translation) VALUES (?, ?, ?)`,
		it.ID, it.Term, it.Translation)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

// SearchItems runs an FTS5 prefix query over terms and translations, ignoring diacritics.
// Postgres falls back to LIKE.
func (db *DB) SearchItems(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if db.driver != DriverSQLite {
		return db.searchLike(ctx, query, limit)
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	var out []SearchHit
	err := db.conn.SelectContext(ctx, &out, `
		SELECT i.id AS item_id, i.group_id, i.term, i.translation
		FROM items_fts f JOIN items i ON i.id = f.item_id
		WHERE items_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return out, nil
}

// ftsQuery quotes each word and turns it into a prefix match.
func ftsQuery(q string) string {
	var parts []string
	for _, w := range strings.Fields(q) {
		w = strings.ReplaceAll(w, `"`, `""`)
		parts = append(parts, `"`+w+`"*`)
	}
	return strings.Join(parts, " ")
}
