package store

import (
	"context"

	"github.com/starford/lexa/internal/models"
)

// Repository is the persistence surface used by the application layer.
type Repository interface {
	UpsertDeck(ctx context.Context, g *models.Group, items []*models.VocabularyItem) (UpsertResult, error)
	ListGroups(ctx context.Context) ([]*models.Group, error)
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	ListItems(ctx context.Context, groupID string) ([]*models.VocabularyItem, error)
	GetItem(ctx context.Context, id string) (*models.VocabularyItem, error)
	SetMuted(ctx context.Context, id string, muted bool) error
	GetProfile(ctx context.Context) (*models.LearnerProfile, error)
	SaveCompletion(ctx context.Context, rec CompletionRecord) error
	SaveItemProgress(ctx context.Context, items []*models.VocabularyItem) error
	DeckChecksums(ctx context.Context) (map[string]string, error)
	ListSessions(ctx context.Context, limit int) ([]SessionRow, error)
	SearchItems(ctx context.Context, query string, limit int) ([]SearchHit, error)
	Ping() error
	Close() error
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)
