// Package schedule maps mastery levels to review intervals and selects due items.
//
// Levels run from 0 to MaxLevel. Each level below MaxLevel has a fixed interval in days;
// MaxLevel is terminal and pushes the next review far into the future so due selection
// needs no special case.
package schedule

import (
	"sort"
	"time"

	"github.com/starford/lexa/internal/models"
)

// MaxLevel is the terminal "mastered" level.
const MaxLevel = 8

// masteredHorizonYears is how far a MaxLevel item is pushed out.
const masteredHorizonYears = 10

// Intervals holds the review interval in days for levels 0 through MaxLevel-1.
var Intervals = [MaxLevel]int{0, 1, 3, 7, 14, 30, 60, 120}

// ClampLevel forces level into [0, MaxLevel].
func ClampLevel(level int) int {
	return min(max(level, 0), MaxLevel)
}

// NextReviewDate returns when an item at level should next be reviewed, counted from from.
func NextReviewDate(level int, from time.Time) time.Time {
	level = ClampLevel(level)
	if level == MaxLevel {
		return from.AddDate(masteredHorizonYears, 0, 0)
	}
	return from.AddDate(0, 0, Intervals[level])
}

// Advance moves one level up, saturating at MaxLevel.
func Advance(level int) int {
	return min(ClampLevel(level)+1, MaxLevel)
}

// Drop moves two levels down, saturating at 0.
// Forgetting costs twice what remembering earns.
func Drop(level int) int {
	return max(ClampLevel(level)-2, 0)
}

// CalendarDay truncates t to midnight in its own location.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days from a to b, evaluated in b's location.
// Same day is 0, b the day after a is 1.
func DaysBetween(a, b time.Time) int {
	da := CalendarDay(a.In(b.Location()))
	db := CalendarDay(b)
	// Build both dates in UTC to step over DST shifts.
	ua := time.Date(da.Year(), da.Month(), da.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(db.Year(), db.Month(), db.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// IsDue reports whether item's review date has arrived by asOf.
// Time of day is ignored on both sides; a zero NextReviewAt is always due.
func IsDue(item *models.VocabularyItem, asOf time.Time) bool {
	if item.NextReviewAt.IsZero() {
		return true
	}
	return DaysBetween(item.NextReviewAt, asOf) >= 0
}

// SelectDue returns the non-muted due items, weakest level first.
// Items with equal level keep their input order.
func SelectDue(items []*models.VocabularyItem, asOf time.Time) []*models.VocabularyItem {
	due := make([]*models.VocabularyItem, 0, len(items))
	for _, it := range items {
		if it == nil || it.Muted || !IsDue(it, asOf) {
			continue
		}
		due = append(due, it)
	}
	SortByLevel(due)
	return due
}

// SortByLevel stable-sorts items ascending by level in place.
func SortByLevel(items []*models.VocabularyItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Level < items[j].Level
	})
}
