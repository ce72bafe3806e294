package drillservice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/samber/lo"

	"github.com/starford/lexa/internal/apperr"
	"github.com/starford/lexa/internal/deck"
	"github.com/starford/lexa/internal/library"
	"github.com/starford/lexa/internal/models"
	"github.com/starford/lexa/internal/schedule"
	"github.com/starford/lexa/internal/sse"
	"github.com/starford/lexa/internal/storage"
	"github.com/starford/lexa/internal/store"
)

// Groups returns every group ordered by sequence.
func (s *Service) Groups(ctx context.Context) ([]*models.Group, error) {
	return s.groupsSnapshot(ctx)
}

// Items returns the items of a group, or of all groups when groupID is empty.
func (s *Service) Items(ctx context.Context, groupID string) ([]*models.VocabularyItem, error) {
	items, err := s.repo.ListItems(ctx, groupID)
	if err != nil {
		return nil, err
	}
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.overlay(items), nil
}

// DueItems returns the due, non-muted items of unlocked groups, weakest first.
func (s *Service) DueItems(ctx context.Context) ([]*models.VocabularyItem, error) {
	items, err := s.candidates(ctx, "")
	if err != nil {
		return nil, err
	}
	return schedule.SelectDue(items, s.now()), nil
}

// DueCount returns how many items are due now.
func (s *Service) DueCount(ctx context.Context) (int, error) {
	due, err := s.DueItems(ctx)
	if err != nil {
		return 0, err
	}
	return len(due), nil
}

// Profile returns a copy of the learner profile.
func (s *Service) Profile(ctx context.Context) (*models.LearnerProfile, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	book, err := s.loadLedger(ctx)
	if err != nil {
		return nil, err
	}
	cp := *book.Profile
	return &cp, nil
}

// SetMuted excludes an item from, or returns it to, due selection.
func (s *Service) SetMuted(ctx context.Context, itemID string, muted bool) (*models.VocabularyItem, error) {
	if err := s.repo.SetMuted(ctx, itemID, muted); err != nil {
		return nil, err
	}
	it, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.overlay([]*models.VocabularyItem{it})[0], nil
}

// Search finds items by term or translation.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]store.SearchHit, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", apperr.ErrInvalidInput)
	}
	hits, err := s.repo.SearchItems(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return lo.Ternary(hits == nil, []store.SearchHit{}, hits), nil
}

// History returns the most recent completed sessions.
func (s *Service) History(ctx context.Context, limit int) ([]store.SessionRow, error) {
	return s.repo.ListSessions(ctx, limit)
}

// ImportDeck validates and imports an uploaded deck. When a library is configured the file
// is also written there, so the deck survives a rebuild of the store.
func (s *Service) ImportDeck(ctx context.Context, name string, data []byte) (*library.Imported, error) {
	name = filepath.Base(filepath.Clean(name))
	if !deck.Supported(name) {
		return nil, fmt.Errorf("%w: deck must be a .md or .xlsx file", apperr.ErrInvalidInput)
	}
	if _, err := deck.Parse(name, data); err != nil {
		return nil, err
	}

	if s.files != nil {
		if err := s.files.Write(name, data); err != nil {
			return nil, err
		}
	}
	imp, err := library.Import(ctx, s.repo, name, data)
	if err != nil {
		return nil, err
	}
	if err := s.refreshGroups(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("deck imported", slog.String("path", name), slog.Int("added", imp.Added))
	s.publish(sse.TypeDeckImported, imp)
	return imp, nil
}

// RemoveDeck deletes a deck file from the library. The group and its review progress stay in
// the store, so re-adding the file later resumes where the learner left off.
func (s *Service) RemoveDeck(_ context.Context, name string) error {
	if s.files == nil {
		return fmt.Errorf("%w: no deck library configured", apperr.ErrPrecondition)
	}
	if !storage.IsDeckFile(name) {
		return fmt.Errorf("%w: %s is not a deck file", apperr.ErrInvalidInput, name)
	}
	if err := s.files.Delete(name); err != nil {
		return err
	}
	s.logger.Info("deck removed", slog.String("path", name))
	s.publish(sse.TypeDeckRemoved, map[string]string{"path": name})
	return nil
}

// LibraryChanged reloads group metadata after the library changed on disk.
func (s *Service) LibraryChanged(ctx context.Context) {
	if err := s.refreshGroups(ctx); err != nil {
		s.logger.Warn("refresh groups failed", slog.String("error", err.Error()))
	}
}
