package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pmcopilot/backend/internal/models"
)

const (
	weightSize         = 0.6
	weightRecency      = 0.3
	weightHighPriority = 0.1

	recencyWindow = 7 * 24 * time.Hour
	maxSamples    = 3
)

// Priorities counted as high regardless of source conventions.
var highPriorityTerms = []string{"p0", "p1", "blocker", "critical", "high"}

// Suggestion is one prioritized theme for PM triage.
type Suggestion struct {
	Label           int           `json:"label"`
	Type            string        `json:"type"`
	Hint            string        `json:"hint"`
	Size            int           `json:"size"`
	Score           float64       `json:"score"`
	Recent7d        int           `json:"recent_7d"`
	HighPriority    int           `json:"high_priority"`
	TopVertical     string        `json:"top_vertical"`
	SuggestedAction string        `json:"suggested_action"`
	Rationale       string        `json:"rationale"`
	Samples         []ThemeTicket `json:"samples"`
}

// SuggestionResult carries the run the suggestions were derived from.
type SuggestionResult struct {
	RunID       string       `json:"run_id"`
	Suggestions []Suggestion `json:"suggestions"`
}

// SuggestionService scores the themes of an insight build for triage.
type SuggestionService struct {
	Insights *InsightService
}

func (s *SuggestionService) Suggest(ctx context.Context, days, k, topN int, includeInternal bool, f InsightFilter) (SuggestionResult, error) {
	result, err := s.Insights.BuildThemesFiltered(ctx, days, k, includeInternal, f)
	if err != nil {
		return SuggestionResult{Suggestions: []Suggestion{}}, err
	}
	if len(result.Themes) == 0 {
		return SuggestionResult{RunID: result.RunID, Suggestions: []Suggestion{}}, nil
	}

	ids := make([]int64, 0)
	for _, th := range result.Themes {
		for _, t := range th.Tickets {
			ids = append(ids, t.ID)
		}
	}
	themed, err := s.Insights.Store.TicketsByIDs(ctx, ids)
	if err != nil {
		return SuggestionResult{Suggestions: []Suggestion{}}, err
	}
	ticketsByID := make(map[int64]models.Ticket, len(themed))
	for _, t := range themed {
		ticketsByID[t.ID] = t
	}
	verticalByTicket, err := s.Insights.Store.VerticalsFor(ctx, ids)
	if err != nil {
		return SuggestionResult{Suggestions: []Suggestion{}}, err
	}

	suggestions := ScoreSuggestions(result.Themes, ticketsByID, verticalByTicket, time.Now().UTC(), topN)
	return SuggestionResult{RunID: result.RunID, Suggestions: suggestions}, nil
}

// ScoreSuggestions computes a priority score per theme:
// 0.6*normalized_size + 0.3*recency_ratio + 0.1*high_priority_ratio,
// rounded to 4 decimals, then sorts descending and truncates to topN.
func ScoreSuggestions(themes []Theme, ticketsByID map[int64]models.Ticket, verticalByTicket map[int64]models.VerticalAssignment, now time.Time, topN int) []Suggestion {
	maxSize := 0
	for _, th := range themes {
		if th.Size > maxSize {
			maxSize = th.Size
		}
	}
	if maxSize == 0 {
		return []Suggestion{}
	}

	out := make([]Suggestion, 0, len(themes))
	for _, th := range themes {
		recent := 0
		highPrio := 0
		verticalCounts := map[string]int{}
		for _, tt := range th.Tickets {
			t, ok := ticketsByID[tt.ID]
			if !ok {
				continue
			}
			if updated := ticketUpdatedAt(t); updated != nil && now.Sub(*updated) <= recencyWindow {
				recent++
			}
			if isHighPriority(t.Priority) {
				highPrio++
			}
			if a, ok := verticalByTicket[tt.ID]; ok {
				verticalCounts[a.Slug]++
			}
		}

		size := float64(th.Size)
		score := weightSize*(size/float64(maxSize)) +
			weightRecency*(float64(recent)/size) +
			weightHighPriority*(float64(highPrio)/size)
		score = math.Round(score*10000) / 10000

		samples := th.Tickets
		if len(samples) > maxSamples {
			samples = samples[:maxSamples]
		}

		out = append(out, Suggestion{
			Label:           th.Label,
			Type:            th.Type,
			Hint:            th.Hint,
			Size:            th.Size,
			Score:           score,
			Recent7d:        recent,
			HighPriority:    highPrio,
			TopVertical:     topVertical(verticalCounts),
			SuggestedAction: suggestedAction(th.Type),
			Rationale: fmt.Sprintf("%d tickets, %d updated in the last 7 days, %d high priority",
				th.Size, recent, highPrio),
			Samples: samples,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Label < out[j].Label
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

func ticketUpdatedAt(t models.Ticket) *time.Time {
	if t.SourceUpdatedAt != nil {
		return t.SourceUpdatedAt
	}
	if !t.UpdatedAt.IsZero() {
		u := t.UpdatedAt
		return &u
	}
	return nil
}

func isHighPriority(priority string) bool {
	p := strings.ToLower(priority)
	if p == "" {
		return false
	}
	for _, term := range highPriorityTerms {
		if strings.Contains(p, term) {
			return true
		}
	}
	return false
}

func topVertical(counts map[string]int) string {
	best, bestCount := "", 0
	for slug, c := range counts {
		if c > bestCount || (c == bestCount && slug < best) {
			best, bestCount = slug, c
		}
	}
	return best
}

func suggestedAction(themeType string) string {
	switch themeType {
	case models.TypeIssue:
		return "Schedule a bugfix sprint for this cluster and assign an owner for the recurring failures."
	case models.TypeFeatureRequest:
		return "Draft an epic/RFC consolidating these requests and validate demand with the top requesters."
	default:
		return "Triage this cluster: split issues from requests and route to the owning teams."
	}
}
