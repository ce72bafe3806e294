//go:build !sqlite_fts5

package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/starford/lexa/internal/models"
)

func initFTS(_ *sqlx.DB) error {
	// FTS5 not compiled in; search falls back to LIKE on the items table.
	return nil
}

func ftsUpsert(_ context.Context, _ *sqlx.Tx, _ string, _ *models.VocabularyItem) error {
	return nil
}

// SearchItems finds items whose term or translation contains query.
func (db *DB) SearchItems(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return db.searchLike(ctx, query, limit)
}
