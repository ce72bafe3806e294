package schedule

import (
	"testing"
	"time"

	"github.com/starford/lexa/internal/models"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestNextReviewDate_Table(t *testing.T) {
	want := []int{0, 1, 3, 7, 14, 30, 60, 120}
	for level, days := range want {
		got := NextReviewDate(level, t0)
		if !got.Equal(t0.AddDate(0, 0, days)) {
			t.Errorf("level %d: got %v, want +%d days", level, got, days)
		}
	}
	if got := NextReviewDate(0, t0); !got.Equal(t0) {
		t.Errorf("level 0 should be due immediately, got %v", got)
	}
}

func TestNextReviewDate_Mastered(t *testing.T) {
	got := NextReviewDate(MaxLevel, t0)
	if !got.Equal(t0.AddDate(10, 0, 0)) {
		t.Errorf("level 8: got %v, want +10 years", got)
	}
}

func TestNextReviewDate_ClampsOutOfRange(t *testing.T) {
	if got := NextReviewDate(-3, t0); !got.Equal(t0) {
		t.Errorf("negative level: got %v", got)
	}
	if got := NextReviewDate(42, t0); !got.Equal(t0.AddDate(10, 0, 0)) {
		t.Errorf("level above max: got %v", got)
	}
}

func TestAdvanceAndDrop(t *testing.T) {
	tests := []struct {
		name string
		fn   func(int) int
		in   int
		want int
	}{
		{"advance 3", Advance, 3, 4},
		{"advance 7", Advance, 7, 8},
		{"advance 8 saturates", Advance, 8, 8},
		{"drop 3", Drop, 3, 1},
		{"drop 1", Drop, 1, 0},
		{"drop 0 saturates", Drop, 0, 0},
		{"drop 5", Drop, 5, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsDue_IgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2025, 6, 15, 7, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC)

	item := &models.VocabularyItem{NextReviewAt: evening}
	if !IsDue(item, morning) {
		t.Error("item scheduled later the same day should be due")
	}
	item.NextReviewAt = evening.AddDate(0, 0, 1)
	if IsDue(item, evening) {
		t.Error("item scheduled tomorrow should not be due")
	}
	item.NextReviewAt = time.Time{}
	if !IsDue(item, morning) {
		t.Error("never-scheduled item should be due")
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)
	b := time.Date(2025, 3, 2, 0, 15, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 1 {
		t.Errorf("DaysBetween = %d, want 1", got)
	}
	if got := DaysBetween(b, a); got != -1 {
		t.Errorf("DaysBetween reversed = %d, want -1", got)
	}
	if got := DaysBetween(a, a.Add(10*time.Minute)); got != 0 {
		t.Errorf("same day = %d, want 0", got)
	}
}

func TestSelectDue_FiltersAndSorts(t *testing.T) {
	past := t0.AddDate(0, 0, -2)
	future := t0.AddDate(0, 0, 3)
	items := []*models.VocabularyItem{
		{ID: "a", Level: 3, NextReviewAt: past},
		{ID: "b", Level: 1, NextReviewAt: past},
		{ID: "c", Level: 0, NextReviewAt: future},
		{ID: "d", Level: 1, NextReviewAt: past, Muted: true},
		{ID: "e", Level: 1, NextReviewAt: t0},
		{ID: "f", Level: 0},
	}

	got := SelectDue(items, t0)
	var ids []string
	for _, it := range got {
		ids = append(ids, it.ID)
	}
	want := []string{"f", "b", "e", "a"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestSelectDue_Deterministic(t *testing.T) {
	var items []*models.VocabularyItem
	for i := 0; i < 50; i++ {
		items = append(items, &models.VocabularyItem{
			ID:    string(rune('A' + i%26)) + string(rune('a'+i/26)),
			Level: i % 4,
		})
	}
	first := SelectDue(items, t0)
	for run := 0; run < 5; run++ {
		again := SelectDue(items, t0)
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("run %d: order differs at %d", run, i)
			}
		}
	}
}

func TestSelectDue_DoesNotReorderInput(t *testing.T) {
	items := []*models.VocabularyItem{{ID: "x", Level: 5}, {ID: "y", Level: 0}}
	_ = SelectDue(items, t0)
	if items[0].ID != "x" {
		t.Error("SelectDue must not reorder the caller's slice")
	}
}
