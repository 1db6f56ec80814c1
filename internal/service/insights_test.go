package service

import (
	"testing"

	"github.com/pmcopilot/backend/internal/models"
)

func TestGroupThemesMajorityVote(t *testing.T) {
	tickets := []models.Ticket{
		{ID: 1, Title: "a", Type: models.TypeIssue},
		{ID: 2, Title: "b", Type: models.TypeIssue},
		{ID: 3, Title: "c", Type: models.TypeFeatureRequest},
		{ID: 4, Title: "d", Type: models.TypeFeatureRequest},
		{ID: 5, Title: "e", Type: models.TypeFeatureRequest},
	}
	labels := []int{0, 0, 0, 1, 1}
	hints := map[int]string{0: "login | crash", 1: "export | csv"}

	themes := GroupThemes(tickets, labels, hints)
	if len(themes) != 2 {
		t.Fatalf("expected 2 themes, got %d", len(themes))
	}
	// Size-descending order puts cluster 0 (3 tickets) first.
	if themes[0].Label != 0 || themes[0].Size != 3 {
		t.Fatalf("expected cluster 0 of size 3 first, got %+v", themes[0])
	}
	if themes[0].Type != models.TypeIssue {
		t.Fatalf("expected issue majority in cluster 0, got %s", themes[0].Type)
	}
	if themes[1].Type != models.TypeFeatureRequest {
		t.Fatalf("expected feature majority in cluster 1, got %s", themes[1].Type)
	}
	if themes[0].Hint != "login | crash" {
		t.Fatalf("expected hint carried over, got %q", themes[0].Hint)
	}
}

func TestGroupThemesTieGoesToIssue(t *testing.T) {
	tickets := []models.Ticket{
		{ID: 1, Type: models.TypeIssue},
		{ID: 2, Type: models.TypeFeatureRequest},
	}
	themes := GroupThemes(tickets, []int{0, 0}, map[int]string{})
	if themes[0].Type != models.TypeIssue {
		t.Fatalf("expected tie to resolve to issue, got %s", themes[0].Type)
	}
}

func TestPickTopCapsAndFiltersByType(t *testing.T) {
	themes := []Theme{
		{Label: 0, Tickets: []ThemeTicket{
			{ID: 1, Type: models.TypeIssue},
			{ID: 2, Type: models.TypeFeatureRequest},
			{ID: 3, Type: models.TypeIssue},
		}},
		{Label: 1, Tickets: []ThemeTicket{
			{ID: 4, Type: models.TypeIssue},
		}},
	}
	top := PickTop(themes, models.TypeIssue, 2)
	if len(top) != 2 {
		t.Fatalf("expected cap at 2, got %d", len(top))
	}
	if top[0].ID != 1 || top[1].ID != 3 {
		t.Fatalf("expected scan order within themes, got %+v", top)
	}
}

func TestFilterThemesBySourceAndKind(t *testing.T) {
	themes := []Theme{
		{Label: 0, Size: 3, Tickets: []ThemeTicket{
			{ID: 1, Source: "jira", Type: models.TypeIssue},
			{ID: 2, Source: "zendesk", Type: models.TypeIssue},
			{ID: 3, Source: "jira", Type: models.TypeFeatureRequest},
		}},
		{Label: 1, Size: 1, Tickets: []ThemeTicket{
			{ID: 4, Source: "zendesk", Type: models.TypeFeatureRequest},
		}},
	}

	got := FilterThemes(themes, InsightFilter{Source: "jira", Kind: "issue"}, nil)
	if len(got) != 1 {
		t.Fatalf("expected emptied theme dropped, got %d themes", len(got))
	}
	if got[0].Size != 1 || got[0].Tickets[0].ID != 1 {
		t.Fatalf("expected only ticket 1 to survive, got %+v", got[0])
	}
}

func TestFilterThemesAllMatchesEverything(t *testing.T) {
	themes := []Theme{
		{Label: 0, Size: 1, Tickets: []ThemeTicket{{ID: 1, Source: "jira", Type: models.TypeIssue}}},
	}
	got := FilterThemes(themes, InsightFilter{Source: "all", Kind: "ALL"}, nil)
	if len(got) != 1 || got[0].Size != 1 {
		t.Fatalf(`expected "all" filter to match everything, got %+v`, got)
	}
}

func TestFilterThemesByVertical(t *testing.T) {
	themes := []Theme{
		{Label: 0, Size: 2, Tickets: []ThemeTicket{
			{ID: 1, Source: "jira", Type: models.TypeIssue},
			{ID: 2, Source: "jira", Type: models.TypeIssue},
		}},
	}
	verticalByTicket := map[int64]models.VerticalAssignment{
		1: {TicketID: 1, Slug: "fx-service", Name: "FX Service"},
	}

	got := FilterThemes(themes, InsightFilter{Vertical: "FX Service"}, verticalByTicket)
	if len(got) != 1 || got[0].Size != 1 || got[0].Tickets[0].ID != 1 {
		t.Fatalf("expected name match on assigned ticket only, got %+v", got)
	}

	got = FilterThemes(themes, InsightFilter{Vertical: "swift-connect"}, verticalByTicket)
	if len(got) != 0 {
		t.Fatalf("expected no survivors for unmatched vertical, got %+v", got)
	}
}
