package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/pmcopilot/backend/internal/db"
	"github.com/pmcopilot/backend/internal/embed"
	"github.com/pmcopilot/backend/internal/models"
	"github.com/pmcopilot/backend/internal/nlp"
)

// QueryHit is one semantic search match.
type QueryHit struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	URL        string  `json:"url"`
	Similarity float64 `json:"similarity"`
	Type       string  `json:"type"`
}

// QueryResult is the answer payload for one question.
type QueryResult struct {
	Answer string     `json:"answer"`
	Hits   []QueryHit `json:"hits"`
}

// QueryService answers free-text questions by cosine similarity over the
// cached ticket embeddings. Vectors are unit length, so a dot product is
// the cosine.
type QueryService struct {
	Store      *db.Store
	Embeddings *EmbeddingCache
	Provider   embed.Provider
}

func (s *QueryService) Answer(ctx context.Context, question string, days, topK int, includeInternal bool, f InsightFilter) (QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return QueryResult{Answer: "Please provide a question.", Hits: []QueryHit{}}, nil
	}
	if topK <= 0 {
		topK = 5
	}

	tickets, err := s.Store.TicketsSince(ctx, days, includeInternal)
	if err != nil {
		return QueryResult{Hits: []QueryHit{}}, err
	}
	if len(tickets) == 0 {
		return QueryResult{Answer: "No tickets available to search.", Hits: []QueryHit{}}, nil
	}

	tickets, err = s.applyFilter(ctx, tickets, f)
	if err != nil {
		return QueryResult{Hits: []QueryHit{}}, err
	}
	if len(tickets) == 0 {
		return QueryResult{Answer: "No tickets matched the selected filters.", Hits: []QueryHit{}}, nil
	}

	vectors, ordered, err := s.Embeddings.Ensure(ctx, tickets)
	if err != nil {
		return QueryResult{Hits: []QueryHit{}}, err
	}
	if len(ordered) == 0 {
		return QueryResult{Answer: "No embeddings available to search.", Hits: []QueryHit{}}, nil
	}

	qvecs, err := s.Provider.Embed(ctx, []string{nlp.CleanText(question)})
	if err != nil {
		return QueryResult{Hits: []QueryHit{}}, err
	}

	hits := RankBySimilarity(ordered, vectors, qvecs[0], topK)

	titles := make([]string, 0, len(hits))
	for _, h := range hits {
		titles = append(titles, h.Title)
	}
	answer := fmt.Sprintf("I found %d relevant items. Top matches: %s. Use the links for details.",
		len(hits), strings.Join(titles, "; "))
	return QueryResult{Answer: answer, Hits: hits}, nil
}

func (s *QueryService) applyFilter(ctx context.Context, tickets []models.Ticket, f InsightFilter) ([]models.Ticket, error) {
	var verticalByTicket map[int64]models.VerticalAssignment
	if filterActive(f.Vertical) {
		ids := make([]int64, 0, len(tickets))
		for _, t := range tickets {
			ids = append(ids, t.ID)
		}
		var err error
		verticalByTicket, err = s.Store.VerticalsFor(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	out := tickets[:0:0]
	for _, t := range tickets {
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
		out = append(out, t)
	}
	return out, nil
}

// RankBySimilarity scores each ticket vector against the query vector and
// returns the topK hits in descending similarity order, ties broken by id.
func RankBySimilarity(tickets []models.Ticket, vectors [][]float64, query []float64, topK int) []QueryHit {
	hits := make([]QueryHit, 0, len(tickets))
	for i, t := range tickets {
		sim := floats.Dot(vectors[i], query)
		hits = append(hits, QueryHit{
			ID:         t.ID,
			Title:      t.Title,
			Source:     t.Source,
			URL:        t.URL,
			Similarity: math.Round(sim*10000) / 10000,
			Type:       orUnknown(t.Type),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
