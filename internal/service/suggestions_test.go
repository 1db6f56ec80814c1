package service

import (
	"testing"
	"time"

	"github.com/pmcopilot/backend/internal/models"
)

func TestScoreSuggestionsWeightedScore(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-24 * time.Hour)
	stale := now.Add(-30 * 24 * time.Hour)

	tickets := map[int64]models.Ticket{}
	theme := Theme{Label: 0, Type: models.TypeIssue, Size: 10}
	for i := int64(1); i <= 10; i++ {
		theme.Tickets = append(theme.Tickets, ThemeTicket{ID: i, Type: models.TypeIssue})
		ts := stale
		if i <= 5 {
			ts = recent
		}
		tk := models.Ticket{ID: i, SourceUpdatedAt: &ts}
		if i <= 2 {
			tk.Priority = "P1 - urgent"
		}
		tickets[i] = tk
	}

	got := ScoreSuggestions([]Theme{theme}, tickets, nil, now, 5)
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	// 0.6*(10/10) + 0.3*(5/10) + 0.1*(2/10) = 0.77
	if got[0].Score != 0.77 {
		t.Fatalf("expected score 0.77, got %v", got[0].Score)
	}
	if got[0].Recent7d != 5 || got[0].HighPriority != 2 {
		t.Fatalf("expected 5 recent and 2 high priority, got %+v", got[0])
	}
	if len(got[0].Samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got[0].Samples))
	}
}

func TestScoreSuggestionsSortAndTruncate(t *testing.T) {
	now := time.Now().UTC()
	tickets := map[int64]models.Ticket{
		1: {ID: 1}, 2: {ID: 2}, 3: {ID: 3}, 4: {ID: 4},
	}
	themes := []Theme{
		{Label: 0, Size: 1, Tickets: []ThemeTicket{{ID: 1}}},
		{Label: 1, Size: 2, Tickets: []ThemeTicket{{ID: 2}, {ID: 3}}},
		{Label: 2, Size: 1, Tickets: []ThemeTicket{{ID: 4}}},
	}

	got := ScoreSuggestions(themes, tickets, nil, now, 2)
	if len(got) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(got))
	}
	if got[0].Label != 1 {
		t.Fatalf("expected largest theme to score highest, got label %d", got[0].Label)
	}
	// Equal scores break ties by label.
	if got[1].Label != 0 {
		t.Fatalf("expected label order on tie, got label %d", got[1].Label)
	}
}

func TestScoreSuggestionsActionsByType(t *testing.T) {
	now := time.Now().UTC()
	tickets := map[int64]models.Ticket{1: {ID: 1}, 2: {ID: 2}}
	themes := []Theme{
		{Label: 0, Type: models.TypeIssue, Size: 1, Tickets: []ThemeTicket{{ID: 1}}},
		{Label: 1, Type: models.TypeFeatureRequest, Size: 1, Tickets: []ThemeTicket{{ID: 2}}},
	}

	got := ScoreSuggestions(themes, tickets, nil, now, 5)
	byLabel := map[int]Suggestion{}
	for _, s := range got {
		byLabel[s.Label] = s
	}
	if byLabel[0].SuggestedAction == byLabel[1].SuggestedAction {
		t.Fatalf("expected distinct actions per theme type")
	}
}

func TestScoreSuggestionsTopVertical(t *testing.T) {
	now := time.Now().UTC()
	tickets := map[int64]models.Ticket{1: {ID: 1}, 2: {ID: 2}, 3: {ID: 3}}
	verticals := map[int64]models.VerticalAssignment{
		1: {Slug: "fx-service"},
		2: {Slug: "fx-service"},
		3: {Slug: "swift-connect"},
	}
	themes := []Theme{
		{Label: 0, Size: 3, Tickets: []ThemeTicket{{ID: 1}, {ID: 2}, {ID: 3}}},
	}

	got := ScoreSuggestions(themes, tickets, verticals, now, 5)
	if got[0].TopVertical != "fx-service" {
		t.Fatalf("expected fx-service as top vertical, got %q", got[0].TopVertical)
	}
}

func TestIsHighPriority(t *testing.T) {
	cases := map[string]bool{
		"P0":           true,
		"p1":           true,
		"Blocker":      true,
		"critical":     true,
		"High":         true,
		"sev1-urgent":  false,
		"normal":       false,
		"":             false,
	}
	for in, want := range cases {
		if got := isHighPriority(in); got != want {
			t.Fatalf("isHighPriority(%q) = %v, want %v", in, got, want)
		}
	}
}
