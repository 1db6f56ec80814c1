package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/pmcopilot/backend/internal/db"
	"github.com/pmcopilot/backend/internal/models"
	"github.com/pmcopilot/backend/internal/nlp"
	"github.com/pmcopilot/backend/internal/verticals"
)

const topListSize = 10

// ThemeTicket is the ticket projection attached to themes and top lists.
type ThemeTicket struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url"`
	Type   string `json:"type"`
}

// Theme is one cluster of one build run.
type Theme struct {
	Label   int           `json:"label"`
	Hint    string        `json:"hint"`
	Type    string        `json:"type"`
	Size    int           `json:"size"`
	Tickets []ThemeTicket `json:"tickets"`
}

// InsightResult is the full insight payload for one run.
type InsightResult struct {
	RunID       string        `json:"run_id"`
	Themes      []Theme       `json:"themes"`
	TopIssues   []ThemeTicket `json:"top_issues"`
	TopFeatures []ThemeTicket `json:"top_features"`
}

// InsightFilter is the post-hoc filter applied to a built run.
type InsightFilter struct {
	Source   string // "" or "all" matches everything
	Kind     string // issue | feature_request | unknown
	Vertical string // slug or display name
}

// InsightService builds thematic insight over the recent ticket window:
// type refresh, vertical refresh, embeddings, clustering, theme grouping
// and top-10 derivation.
type InsightService struct {
	Store            *db.Store
	Embeddings       *EmbeddingCache
	Classifier       *verticals.Classifier
	PersistThreshold float64
	Logger           zerolog.Logger
}

// BuildThemes runs the full pipeline for the window. A fresh run id is
// minted per invocation; theme rows are persisted as report artifacts only.
func (s *InsightService) BuildThemes(ctx context.Context, days, k int, includeInternal bool) (InsightResult, error) {
	empty := InsightResult{Themes: []Theme{}, TopIssues: []ThemeTicket{}, TopFeatures: []ThemeTicket{}}

	tickets, err := s.Store.TicketsSince(ctx, days, includeInternal)
	if err != nil {
		return empty, err
	}
	if len(tickets) == 0 {
		return empty, nil
	}

	if err := s.refreshTypes(ctx, tickets); err != nil {
		return empty, err
	}
	if _, err := s.refreshVerticals(ctx, tickets); err != nil {
		return empty, err
	}

	vectors, ordered, err := s.Embeddings.Ensure(ctx, tickets)
	if err != nil {
		return empty, err
	}
	if len(ordered) == 0 {
		return empty, nil
	}

	texts := make([]string, len(ordered))
	for i, t := range ordered {
		texts[i] = EmbedText(t)
	}

	labels := nlp.KMeans(vectors, k, nlp.DefaultSeed)
	hints := nlp.ClusterHints(texts, labels)

	themes := GroupThemes(ordered, labels, hints)

	runID := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	rows := make([]models.ThemeRow, 0, len(themes))
	for _, th := range themes {
		rows = append(rows, models.ThemeRow{RunID: runID, Label: th.Label, Hint: th.Hint, Type: th.Type, Size: th.Size})
	}
	if err := s.Store.InsertThemes(ctx, rows); err != nil {
		s.Logger.Warn().Err(err).Str("run_id", runID).Msg("theme row write failed")
	}

	return InsightResult{
		RunID:       runID,
		Themes:      themes,
		TopIssues:   PickTop(themes, models.TypeIssue, topListSize),
		TopFeatures: PickTop(themes, models.TypeFeatureRequest, topListSize),
	}, nil
}

// BuildThemesFiltered builds a run and then narrows it: tickets are dropped
// per filter, theme sizes and the top lists are recomputed, emptied themes
// disappear.
func (s *InsightService) BuildThemesFiltered(ctx context.Context, days, k int, includeInternal bool, f InsightFilter) (InsightResult, error) {
	result, err := s.BuildThemes(ctx, days, k, includeInternal)
	if err != nil || len(result.Themes) == 0 {
		return result, err
	}

	var verticalByTicket map[int64]models.VerticalAssignment
	if filterActive(f.Vertical) {
		ids := make([]int64, 0)
		for _, th := range result.Themes {
			for _, t := range th.Tickets {
				ids = append(ids, t.ID)
			}
		}
		verticalByTicket, err = s.Store.VerticalsFor(ctx, ids)
		if err != nil {
			return result, err
		}
	}

	result.Themes = FilterThemes(result.Themes, f, verticalByTicket)
	result.TopIssues = PickTop(result.Themes, models.TypeIssue, topListSize)
	result.TopFeatures = PickTop(result.Themes, models.TypeFeatureRequest, topListSize)
	return result, nil
}

// refreshTypes reclassifies each ticket's type and persists the result in
// one transaction. Classification itself is pure; the write is explicit.
func (s *InsightService) refreshTypes(ctx context.Context, tickets []models.Ticket) error {
	return s.Store.WithTx(ctx, func(tx pgx.Tx) error {
		for i := range tickets {
			t := &tickets[i]
			next := nlp.ClassifyTicket(t.Source, t.Title, t.Content, t.Labels, t.Status)
			if next == t.Type {
				continue
			}
			if err := s.Store.UpdateTicketType(ctx, tx, t.ID, next); err != nil {
				return err
			}
			t.Type = next
		}
		return nil
	})
}

// refreshVerticals classifies every ticket and persists only assignments
// whose confidence clears the threshold; low-confidence guesses are computed
// but never stored. Returns the number of persisted assignments.
func (s *InsightService) refreshVerticals(ctx context.Context, tickets []models.Ticket) (int, error) {
	var toPersist []models.VerticalAssignment
	for _, t := range tickets {
		a, err := s.Classifier.Classify(ctx, verticals.TicketInput{
			Source:    t.Source,
			Title:     t.Title,
			Content:   t.Content,
			LabelsCSV: t.Labels,
			Project:   t.Project,
		})
		if err != nil {
			return 0, err
		}
		if a == nil || a.Confidence < s.PersistThreshold {
			continue
		}
		exp, err := json.Marshal(a.Explanation)
		if err != nil {
			return 0, err
		}
		toPersist = append(toPersist, models.VerticalAssignment{
			TicketID:    t.ID,
			Slug:        a.Slug,
			Name:        a.Name,
			Confidence:  a.Confidence,
			Explanation: exp,
		})
	}
	if len(toPersist) == 0 {
		return 0, nil
	}
	err := s.Store.WithTx(ctx, func(tx pgx.Tx) error {
		for _, a := range toPersist {
			if err := s.Store.UpsertVertical(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(toPersist), nil
}

// BackfillVerticals classifies and persists verticals for the stored window
// without running the rest of the pipeline.
func (s *InsightService) BackfillVerticals(ctx context.Context, days int) (scanned, labeled int, err error) {
	tickets, err := s.Store.TicketsSince(ctx, days, true)
	if err != nil {
		return 0, 0, err
	}
	labeled, err = s.refreshVerticals(ctx, tickets)
	if err != nil {
		return 0, 0, err
	}
	return len(tickets), labeled, nil
}

// GroupThemes buckets tickets by cluster label. Theme type is the majority
// vote between issue and feature_request counts; ties go to issue. Themes
// come back sorted by descending size, then label for stability.
func GroupThemes(tickets []models.Ticket, labels []int, hints map[int]string) []Theme {
	buckets := map[int]*Theme{}
	counts := map[int]map[string]int{}
	for i, t := range tickets {
		lab := labels[i]
		th, ok := buckets[lab]
		if !ok {
			th = &Theme{Label: lab, Hint: hints[lab]}
			buckets[lab] = th
			counts[lab] = map[string]int{}
		}
		th.Tickets = append(th.Tickets, ThemeTicket{
			ID:     t.ID,
			Title:  t.Title,
			Source: t.Source,
			URL:    t.URL,
			Type:   t.Type,
		})
		counts[lab][t.Type]++
	}

	out := make([]Theme, 0, len(buckets))
	for lab, th := range buckets {
		th.Size = len(th.Tickets)
		if counts[lab][models.TypeIssue] >= counts[lab][models.TypeFeatureRequest] {
			th.Type = models.TypeIssue
		} else {
			th.Type = models.TypeFeatureRequest
		}
		out = append(out, *th)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// PickTop scans themes in their sorted order and collects up to n tickets of
// the requested type. No dedup beyond natural theme ordering.
func PickTop(themes []Theme, kind string, n int) []ThemeTicket {
	out := []ThemeTicket{}
	for _, th := range themes {
		for _, t := range th.Tickets {
			if t.Type == kind {
				out = append(out, t)
				if len(out) == n {
					return out
				}
			}
		}
	}
	return out
}

// FilterThemes drops tickets not matching the filter, recomputes sizes and
// removes emptied themes, preserving size-descending order.
func FilterThemes(themes []Theme, f InsightFilter, verticalByTicket map[int64]models.VerticalAssignment) []Theme {
	out := []Theme{}
	for _, th := range themes {
		var kept []ThemeTicket
		for _, t := range th.Tickets {
			if filterActive(f.Source) && !strings.EqualFold(t.Source, f.Source) {
				continue
			}
			if filterActive(f.Kind) && !strings.EqualFold(orUnknown(t.Type), f.Kind) {
				continue
			}
			if filterActive(f.Vertical) {
				a, ok := verticalByTicket[t.ID]
				if !ok {
					continue
				}
				if !strings.EqualFold(a.Slug, f.Vertical) && !strings.EqualFold(a.Name, f.Vertical) {
					continue
				}
			}
			kept = append(kept, t)
		}
		if len(kept) == 0 {
			continue
		}
		th.Tickets = kept
		th.Size = len(kept)
		out = append(out, th)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func filterActive(v string) bool {
	return v != "" && !strings.EqualFold(v, "all")
}

func orUnknown(t string) string {
	if t == "" {
		return models.TypeUnknown
	}
	return t
}
