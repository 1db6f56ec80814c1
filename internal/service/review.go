package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pmcopilot/backend/internal/db"
	"github.com/pmcopilot/backend/internal/models"
	"github.com/pmcopilot/backend/internal/verticals"
)

// ConfidenceBin is a half-open confidence interval [Low, High).
type ConfidenceBin struct {
	Low  float64
	High float64
}

// DefaultBins covers the uncertain-to-confident range; the top bin reaches
// past 1.0 so exact 1.0 confidences land in it.
func DefaultBins() []ConfidenceBin {
	return []ConfidenceBin{
		{0.6, 0.7},
		{0.7, 0.8},
		{0.8, 0.9},
		{0.9, 1.01},
	}
}

// ParseBins reads a "0.6-0.7,0.7-0.8" style spec, falling back to the
// defaults when the input is empty or malformed.
func ParseBins(s string) []ConfidenceBin {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultBins()
	}
	var bins []ConfidenceBin
	for _, part := range strings.Split(s, ",") {
		bounds := strings.SplitN(strings.TrimSpace(part), "-", 2)
		if len(bounds) != 2 {
			return DefaultBins()
		}
		low, err1 := strconv.ParseFloat(strings.TrimSpace(bounds[0]), 64)
		high, err2 := strconv.ParseFloat(strings.TrimSpace(bounds[1]), 64)
		if err1 != nil || err2 != nil || high <= low {
			return DefaultBins()
		}
		bins = append(bins, ConfidenceBin{Low: low, High: high})
	}
	return bins
}

// ReviewItem is one sampled prediction awaiting human judgment. The gold
// columns exist for the reviewer to fill in; exports leave them empty.
type ReviewItem struct {
	TicketID   int64   `json:"ticket_id"`
	Source     string  `json:"source"`
	ExternalID string  `json:"external_id"`
	URL        string  `json:"url"`
	Title      string  `json:"title"`
	PredSlug   string  `json:"pred_vertical_slug"`
	PredName   string  `json:"pred_vertical_name"`
	Confidence float64 `json:"confidence"`
	GoldSlug   string  `json:"gold_vertical_slug"`
	GoldName   string  `json:"gold_vertical_name"`
}

// LabelSubmission is one reviewer verdict. Vertical accepts slug or name.
type LabelSubmission struct {
	TicketID int64  `json:"ticket_id" binding:"required"`
	Vertical string `json:"vertical" binding:"required"`
	Reviewer string `json:"reviewer"`
	Note     string `json:"note"`
}

// ReviewService samples classifier output for human review and folds the
// verdicts back in as gold labels.
type ReviewService struct {
	Store      *db.Store
	Classifier *verticals.Classifier
}

// Sample classifies every in-window ticket on the fly and draws up to perBin
// predictions per confidence bin. Running the classifier here rather than
// reading stored assignments is deliberate: persistence is threshold-gated,
// and the low-confidence bins are exactly the predictions that never get
// stored. The draw is seeded so a reviewer can regenerate the same sheet.
func (s *ReviewService) Sample(ctx context.Context, days, perBin int, seed int64, bins []ConfidenceBin) ([]ReviewItem, error) {
	if perBin <= 0 {
		perBin = 10
	}
	if len(bins) == 0 {
		bins = DefaultBins()
	}

	tickets, err := s.Store.TicketsSince(ctx, days, true)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return []ReviewItem{}, nil
	}

	items, err := BuildReviewItems(ctx, s.Classifier, tickets)
	if err != nil {
		return nil, err
	}
	return StratifySample(items, bins, perBin, seed), nil
}

// BuildReviewItems runs the classifier over the tickets and keeps every
// prediction regardless of confidence. Tickets with no signal are skipped.
func BuildReviewItems(ctx context.Context, c *verticals.Classifier, tickets []models.Ticket) ([]ReviewItem, error) {
	items := make([]ReviewItem, 0, len(tickets))
	for _, t := range tickets {
		a, err := c.Classify(ctx, verticals.TicketInput{
			Source:    t.Source,
			Title:     t.Title,
			Content:   t.Content,
			LabelsCSV: t.Labels,
			Project:   t.Project,
		})
		if err != nil {
			return nil, err
		}
		if a == nil {
			continue
		}
		items = append(items, ReviewItem{
			TicketID:   t.ID,
			Source:     t.Source,
			ExternalID: t.ExternalID,
			URL:        t.URL,
			Title:      t.Title,
			PredSlug:   a.Slug,
			PredName:   a.Name,
			Confidence: math.Round(a.Confidence*10000) / 10000,
		})
	}
	return items, nil
}

// StratifySample shuffles each bin with the seed and caps it at perBin.
// Output order follows the bin order, then ticket id within a bin.
func StratifySample(items []ReviewItem, bins []ConfidenceBin, perBin int, seed int64) []ReviewItem {
	rng := rand.New(rand.NewSource(seed))
	out := []ReviewItem{}
	for _, bin := range bins {
		var bucket []ReviewItem
		for _, it := range items {
			if it.Confidence >= bin.Low && it.Confidence < bin.High {
				bucket = append(bucket, it)
			}
		}
		rng.Shuffle(len(bucket), func(i, j int) {
			bucket[i], bucket[j] = bucket[j], bucket[i]
		})
		if len(bucket) > perBin {
			bucket = bucket[:perBin]
		}
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].TicketID < bucket[j].TicketID })
		out = append(out, bucket...)
	}
	return out
}

var reviewCSVHeader = []string{
	"ticket_id", "source", "external_id", "url", "title",
	"pred_vertical_slug", "pred_vertical_name", "confidence",
	"gold_vertical_slug", "gold_vertical_name",
}

// WriteCSV renders a review sheet. The gold columns are emitted empty for
// the reviewer to fill in.
func WriteCSV(w io.Writer, items []ReviewItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reviewCSVHeader); err != nil {
		return err
	}
	for _, it := range items {
		row := []string{
			strconv.FormatInt(it.TicketID, 10),
			it.Source,
			it.ExternalID,
			it.URL,
			it.Title,
			it.PredSlug,
			it.PredName,
			strconv.FormatFloat(it.Confidence, 'f', 4, 64),
			it.GoldSlug,
			it.GoldName,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ResolveSubmission turns one reviewer verdict into the gold label and the
// assignment override it implies. The override always carries confidence
// exactly 1.0 and a manual-source explanation. Returns ok=false when the
// named vertical is not in the catalog.
func ResolveSubmission(e LabelSubmission, fallbackReviewer string) (models.GoldLabel, models.VerticalAssignment, bool) {
	v := verticals.BySlugOrName(e.Vertical, e.Vertical)
	if v == nil {
		return models.GoldLabel{}, models.VerticalAssignment{}, false
	}
	who := e.Reviewer
	if who == "" {
		who = fallbackReviewer
	}
	gl := models.GoldLabel{
		TicketID: e.TicketID,
		Slug:     v.Slug,
		Name:     v.Name,
		Reviewer: who,
		Note:     e.Note,
	}
	a := models.VerticalAssignment{
		TicketID:    e.TicketID,
		Slug:        v.Slug,
		Name:        v.Name,
		Confidence:  1.0,
		Explanation: []byte(fmt.Sprintf(`{"source":"manual","reviewer":%q}`, who)),
	}
	return gl, a, true
}

// SubmitLabels stores reviewer verdicts as gold labels and overrides the
// stored assignment at confidence 1.0. Entries naming an unknown vertical
// or a missing ticket are skipped, not fatal.
func (s *ReviewService) SubmitLabels(ctx context.Context, entries []LabelSubmission, reviewer string) (int, error) {
	updated := 0
	err := s.Store.WithTx(ctx, func(tx pgx.Tx) error {
		for _, e := range entries {
			gl, a, ok := ResolveSubmission(e, reviewer)
			if !ok {
				continue
			}
			exists, err := s.Store.TicketExists(ctx, e.TicketID)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}
			if err := s.Store.UpsertGoldLabel(ctx, tx, gl); err != nil {
				return err
			}
			if err := s.Store.UpsertVertical(ctx, tx, a); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}
