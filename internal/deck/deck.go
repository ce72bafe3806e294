// Package deck parses vocabulary deck files into groups and items.
//
// Two formats are supported: Markdown decks with optional YAML frontmatter and one
// "term :: translation" pair per line, and .xlsx spreadsheets with terms in column A and
// translations in column B.
package deck

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/lexa/internal/apperr"
	"github.com/starford/lexa/internal/checksum"
	"github.com/starford/lexa/internal/models"
	"github.com/starford/lexa/internal/textnorm"
)

// ErrEmptyDeck is returned when a deck holds no term/translation pairs.
var ErrEmptyDeck = fmt.Errorf("%w: deck has no pairs", apperr.ErrInvalidInput)

var (
	leadingDigitsRe = regexp.MustCompile(`^(\d+)`)
	slugStripRe     = regexp.MustCompile(`[^a-z0-9]+`)
)

// Pair is one term/translation line of a deck.
type Pair struct {
	Term        string `json:"term"`
	Translation string `json:"translation"`
	Line        int    `json:"line"`
}

// Deck is a parsed deck file.
type Deck struct {
	GroupID  string `json:"group_id"`
	Title    string `json:"title"`
	Sequence int    `json:"sequence"`
	Pairs    []Pair `json:"pairs"`
}

// Supported reports whether path has a deck extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".xlsx":
		return true
	}
	return false
}

// Parse parses a deck by its file extension. path is only used for naming defaults.
func Parse(path string, data []byte) (*Deck, error) {
	var (
		d   *Deck
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		d, err = parseMarkdown(data)
	case ".xlsx":
		d, err = parseXLSX(data)
	default:
		return nil, fmt.Errorf("%w: unsupported deck file %s", apperr.ErrInvalidInput, path)
	}
	if err != nil {
		return nil, fmt.Errorf("deck: %s: %w", path, err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if d.GroupID == "" {
		d.GroupID = Slug(stem)
	}
	if d.Title == "" {
		d.Title = stem
	}
	if d.Sequence == 0 {
		if m := leadingDigitsRe.FindString(stem); m != "" {
			d.Sequence, _ = strconv.Atoi(m)
		}
	}
	d.Pairs = dedupe(d.Pairs)
	if len(d.Pairs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDeck, path)
	}
	return d, nil
}

// Slug lowercases s and joins its alphanumeric runs with dashes.
func Slug(s string) string {
	s = slugStripRe.ReplaceAllString(strings.ToLower(textnorm.StripDiacritics(s)), "-")
	return strings.Trim(s, "-")
}

// ItemID derives the stable item ID for term within a group.
func ItemID(groupID, term string) string {
	return checksum.ID(groupID, textnorm.Fold(term))
}

// dedupe keeps the first pair for each folded term.
func dedupe(pairs []Pair) []Pair {
	seen := make(map[string]struct{}, len(pairs))
	out := pairs[:0]
	for _, p := range pairs {
		key := textnorm.Fold(p.Term)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Group builds the group record for the deck.
func (d *Deck) Group(sourcePath, sum string, now time.Time) *models.Group {
	return &models.Group{
		ID:         d.GroupID,
		Name:       d.Title,
		Sequence:   d.Sequence,
		SourcePath: sourcePath,
		Checksum:   sum,
		UpdatedAt:  now,
	}
}

// Items builds fresh level-0 items for every pair, due immediately.
func (d *Deck) Items(now time.Time) []*models.VocabularyItem {
	out := make([]*models.VocabularyItem, 0, len(d.Pairs))
	for i, p := range d.Pairs {
		// Offset creation times to keep file order stable in listings.
		created := now.Add(time.Duration(i) * time.Millisecond)
		out = append(out, &models.VocabularyItem{
			ID:          ItemID(d.GroupID, p.Term),
			GroupID:     d.GroupID,
			Term:        p.Term,
			Translation: p.Translation,
			CreatedAt:   created,
			UpdatedAt:   now,
		})
	}
	return out
}
