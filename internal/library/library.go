// Package library keeps the store in step with the deck files on disk.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/lexa/internal/checksum"
	"github.com/starford/lexa/internal/deck"
	"github.com/starford/lexa/internal/models"
	"github.com/starford/lexa/internal/storage"
	"github.com/starford/lexa/internal/store"
)

// DeckStore is the subset of the store the library writes to.
type DeckStore interface {
	UpsertDeck(ctx context.Context, g *models.Group, items []*models.VocabularyItem) (store.UpsertResult, error)
	DeckChecksums(ctx context.Context) (map[string]string, error)
}

// Imported describes one deck import.
type Imported struct {
	Path     string `json:"path"`
	GroupID  string `json:"group_id"`
	Title    string `json:"title"`
	Pairs    int    `json:"pairs"`
	Added    int    `json:"added"`
	Updated  int    `json:"updated"`
	Unlocked bool   `json:"unlocked"`
}

// Import parses data as the deck at path and upserts it.
func Import(ctx context.Context, st DeckStore, path string, data []byte) (*Imported, error) {
	d, err := deck.Parse(path, data)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	res, err := st.UpsertDeck(ctx, d.Group(path, checksum.Sum(data), now), d.Items(now))
	if err != nil {
		return nil, fmt.Errorf("library: import %s: %w", path, err)
	}
	return &Imported{
		Path:     path,
		GroupID:  d.GroupID,
		Title:    d.Title,
		Pairs:    len(d.Pairs),
		Added:    res.Added,
		Updated:  res.Updated,
		Unlocked: res.Unlocked,
	}, nil
}

// Report summarizes a Sync pass.
type Report struct {
	Imported []*Imported
	Removed  []string
	Failed   []string
}

// Sync imports every new or changed deck in the library. Decks that disappeared from disk
// are reported but their groups and progress stay in the store.
func Sync(ctx context.Context, st DeckStore, files storage.Provider, logger *slog.Logger) (*Report, error) {
	list, err := files.List("")
	if err != nil {
		return nil, err
	}
	known, err := st.DeckChecksums(ctx)
	if err != nil {
		return nil, err
	}

	rep := &Report{}
	disk := make(map[string]struct{}, len(list))
	for _, f := range list {
		disk[f.Path] = struct{}{}
		if known[f.Path] == f.Checksum {
			continue
		}
		data, err := files.Read(f.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			rep.Failed = append(rep.Failed, f.Path)
			continue
		}
		imp, err := Import(ctx, st, f.Path, data)
		if err != nil {
			logger.Warn("sync: import failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			rep.Failed = append(rep.Failed, f.Path)
			continue
		}
		logger.Debug("sync: imported", slog.String("path", f.Path), slog.Int("added", imp.Added))
		rep.Imported = append(rep.Imported, imp)
	}

	for p := range known {
		if _, ok := disk[p]; !ok && p != "" {
			logger.Info("sync: deck missing from library, progress kept", slog.String("path", p))
			rep.Removed = append(rep.Removed, p)
		}
	}
	return rep, nil
}
