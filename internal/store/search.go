package store

import (
	"context"
	"fmt"
	"strings"
)

// SearchHit is one item matching a search query.
type SearchHit struct {
	ItemID      string `json:"item_id" db:"item_id"`
	GroupID     string `json:"group_id" db:"group_id"`
	Term        string `json:"term" db:"term"`
	Translation string `json:"translation" db:"translation"`
}

const defaultSearchLimit = 20

// searchLike matches term or translation case-insensitively with LIKE.
func (db *DB) searchLike(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	like := "%" + strings.ToLower(query) + "%"
	var out []SearchHit
	err := db.conn.SelectContext(ctx, &out, db.q(`
		SELECT id AS item_id, group_id, term, translation
		FROM items
		WHERE LOWER(term) LIKE ? OR LOWER(translation) LIKE ?
		ORDER BY term
		LIMIT ?
	`), like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return out, nil
}
