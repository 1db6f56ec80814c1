package verticals

import (
	"context"
	"testing"

	"github.com/pmcopilot/backend/internal/embed"
)

func TestRuleBasedVerticalJiraProject(t *testing.T) {
	a := RuleBasedVertical("jira", "", "FX")
	if a == nil {
		t.Fatal("expected an assignment")
	}
	if a.Slug != "fx-service" || a.Confidence != 0.95 {
		t.Fatalf("expected fx-service at 0.95, got %s at %v", a.Slug, a.Confidence)
	}
	if a.Explanation.Rule != "jira_project" {
		t.Fatalf("expected jira_project rule, got %s", a.Explanation.Rule)
	}
}

func TestRuleBasedVerticalProjectBeatsLabel(t *testing.T) {
	// Project match (0.95) on one vertical, label match (0.90) on another.
	a := RuleBasedVertical("jira", "wire", "FX")
	if a == nil || a.Slug != "fx-service" {
		t.Fatalf("expected project match to win, got %+v", a)
	}
}

func TestRuleBasedVerticalZendeskTag(t *testing.T) {
	a := RuleBasedVertical("zendesk", "swift", "")
	if a == nil {
		t.Fatal("expected an assignment")
	}
	if a.Slug != "swift-connect" || a.Confidence != 0.90 {
		t.Fatalf("expected swift-connect at 0.90, got %s at %v", a.Slug, a.Confidence)
	}
	if a.Explanation.Rule != "zendesk_tag" {
		t.Fatalf("expected zendesk_tag rule, got %s", a.Explanation.Rule)
	}
}

func TestRuleBasedVerticalTieDeprioritizesHorizontal(t *testing.T) {
	// Both tags match at 0.90; data-reporting is horizontal and should lose
	// even though it precedes platform-issuing in the catalog.
	a := RuleBasedVertical("zendesk", "export,issuing", "")
	if a == nil || a.Slug != "platform-issuing" {
		t.Fatalf("expected platform-issuing to win the tie, got %+v", a)
	}
}

func TestRuleBasedVerticalJiraRulesIgnoredForZendesk(t *testing.T) {
	if a := RuleBasedVertical("zendesk", "", "FX"); a != nil {
		t.Fatalf("expected no assignment for zendesk project key, got %+v", a)
	}
}

func TestRuleBasedVerticalNoSignal(t *testing.T) {
	if a := RuleBasedVertical("jira", "unrelated-label", ""); a != nil {
		t.Fatalf("expected nil for unmatched labels, got %+v", a)
	}
}

func TestClassifyRuleStageShortCircuits(t *testing.T) {
	c := NewClassifier(embed.Mock{ModelName: "mock", Dimension: 32}, DefaultEnsembleConfig())
	a, err := c.Classify(context.Background(), TicketInput{Source: "jira", Project: "SWIFT"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if a == nil || a.Slug != "swift-connect" || a.Confidence != 0.95 {
		t.Fatalf("expected rule assignment, got %+v", a)
	}
}

func TestClassifyEnsembleKeywordSignal(t *testing.T) {
	c := NewClassifier(embed.Mock{ModelName: "mock", Dimension: 256}, DefaultEnsembleConfig())
	a, err := c.Classify(context.Background(), TicketInput{
		Source:  "email",
		Title:   "swift mt103 stuck",
		Content: "gpi tracker shows the mt103 pending at the intermediary",
	})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if a == nil {
		t.Fatal("expected an ensemble assignment")
	}
	if a.Slug != "swift-connect" {
		t.Fatalf("expected swift-connect from keyword hits, got %s", a.Slug)
	}
	if a.Confidence < 0.50 || a.Confidence > 0.95 {
		t.Fatalf("expected confidence within clamp bounds, got %v", a.Confidence)
	}
	if len(a.Explanation.MatchedKeywords) == 0 {
		t.Fatalf("expected matched keywords in explanation, got %+v", a.Explanation)
	}
	if len(a.Explanation.EmbedTop) != 3 {
		t.Fatalf("expected top-3 similarities, got %d", len(a.Explanation.EmbedTop))
	}
}

func TestClassifyDeterministicWithMockProvider(t *testing.T) {
	in := TicketInput{Source: "email", Title: "fee surcharge on invoice", Content: "pricing looks off"}
	c1 := NewClassifier(embed.Mock{ModelName: "mock", Dimension: 64}, DefaultEnsembleConfig())
	c2 := NewClassifier(embed.Mock{ModelName: "mock", Dimension: 64}, DefaultEnsembleConfig())
	a1, err := c1.Classify(context.Background(), in)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	a2, err := c2.Classify(context.Background(), in)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if a1.Slug != a2.Slug || a1.Confidence != a2.Confidence {
		t.Fatalf("expected deterministic classification, got %+v vs %+v", a1, a2)
	}
}

func TestBySlugOrName(t *testing.T) {
	if v := BySlugOrName("fx-service", ""); v == nil || v.Slug != "fx-service" {
		t.Fatalf("expected slug lookup to resolve, got %+v", v)
	}
	if v := BySlugOrName("", "global WIRES"); v == nil || v.Slug != "global-wires" {
		t.Fatalf("expected case-insensitive name lookup, got %+v", v)
	}
	if v := BySlugOrName("nope", "nope"); v != nil {
		t.Fatalf("expected nil for unknown vertical, got %+v", v)
	}
}
