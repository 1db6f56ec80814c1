package service

import (
	"context"
	"math"

	"github.com/pmcopilot/backend/internal/db"
	"github.com/pmcopilot/backend/internal/verticals"
)

// Ground truth comes exclusively from the structured rule stage; ensemble
// output is never trusted as truth, which keeps the measurement
// non-circular.

// Prediction pairs a rule-derived gold slug with the full classifier's
// output for the same ticket.
type Prediction struct {
	TicketID   int64   `json:"ticket_id"`
	Source     string  `json:"source"`
	GoldSlug   string  `json:"gt_slug"`
	PredSlug   string  `json:"pred_slug"`
	Confidence float64 `json:"conf"`
}

// ThresholdMetric reports precision/coverage at one confidence threshold.
// Precision is nil (JSON null) when nothing was assigned at the threshold.
type ThresholdMetric struct {
	Threshold       float64  `json:"threshold"`
	Precision       *float64 `json:"precision"`
	Coverage        float64  `json:"coverage"`
	NAssigned       int      `json:"n_assigned"`
	CorrectAssigned int      `json:"correct_assigned"`
	TotalLabeled    int      `json:"total_labeled"`
}

// CalibrationResult is the threshold-sweep payload.
type CalibrationResult struct {
	TotalLabeled int               `json:"total_labeled"`
	ByThreshold  []ThresholdMetric `json:"by_threshold"`
	LabelDist    map[string]int    `json:"label_dist"`
	Sources      []string          `json:"sources"`
	Days         int               `json:"days"`
	Note         string            `json:"note,omitempty"`
}

// VerticalMetric reports per-vertical quality at one fixed threshold.
type VerticalMetric struct {
	Label           string   `json:"label"`
	GoldCount       int      `json:"gt_count"`
	AssignedCount   int      `json:"assigned_count"`
	CorrectAssigned int      `json:"correct_assigned"`
	Precision       *float64 `json:"precision"`
	RecallOnLabeled *float64 `json:"recall_on_labeled"`
}

// VerticalCalibrationResult is the per-vertical payload.
type VerticalCalibrationResult struct {
	TotalLabeled int                       `json:"total_labeled"`
	Threshold    float64                   `json:"threshold"`
	ByVertical   map[string]VerticalMetric `json:"by_vertical"`
	Sources      []string                  `json:"sources"`
	Days         int                       `json:"days"`
	Note         string                    `json:"note,omitempty"`
}

// CalibrationService measures the classifier against rule-derived labels.
type CalibrationService struct {
	Store      *db.Store
	Classifier *verticals.Classifier
}

const emptyGroundTruthNote = "No rule-labeled examples found. Add jira_labels/zendesk_tags to the vertical catalog or ensure labels/tags exist in the data."

// SweepThresholds is the default calibration grid.
func SweepThresholds() []float64 {
	out := make([]float64, 0, 10)
	for th := 0.50; th <= 0.951; th += 0.05 {
		out = append(out, math.Round(th*100)/100)
	}
	return out
}

func (s *CalibrationService) collectPredictions(ctx context.Context, days int, sources []string) ([]Prediction, error) {
	var preds []Prediction
	for _, source := range sources {
		tickets, err := s.Store.TicketsBySource(ctx, source, days, true)
		if err != nil {
			return nil, err
		}
		for _, t := range tickets {
			gold := verticals.RuleBasedVertical(t.Source, t.Labels, t.Project)
			if gold == nil {
				continue
			}
			pred, err := s.Classifier.Classify(ctx, verticals.TicketInput{
				Source:    t.Source,
				Title:     t.Title,
				Content:   t.Content,
				LabelsCSV: t.Labels,
				Project:   t.Project,
			})
			if err != nil {
				return nil, err
			}
			p := Prediction{TicketID: t.ID, Source: t.Source, GoldSlug: gold.Slug}
			if pred != nil {
				p.PredSlug = pred.Slug
				p.Confidence = pred.Confidence
			}
			preds = append(preds, p)
		}
	}
	return preds, nil
}

// PrecisionCoverage sweeps the threshold grid over the ground-truth set.
func (s *CalibrationService) PrecisionCoverage(ctx context.Context, days int, sources []string) (CalibrationResult, error) {
	if len(sources) == 0 {
		sources = []string{"jira", "zendesk"}
	}
	preds, err := s.collectPredictions(ctx, days, sources)
	if err != nil {
		return CalibrationResult{}, err
	}
	if len(preds) == 0 {
		return CalibrationResult{
			ByThreshold: []ThresholdMetric{},
			LabelDist:   map[string]int{},
			Sources:     sources,
			Days:        days,
			Note:        emptyGroundTruthNote,
		}, nil
	}

	labelDist := map[string]int{}
	for _, p := range preds {
		labelDist[p.GoldSlug]++
	}

	return CalibrationResult{
		TotalLabeled: len(preds),
		ByThreshold:  ComputeThresholdMetrics(preds, SweepThresholds()),
		LabelDist:    labelDist,
		Sources:      sources,
		Days:         days,
	}, nil
}

// ComputeThresholdMetrics evaluates precision and coverage for each
// threshold. A prediction counts as assigned when it has a slug and its
// confidence meets the threshold.
func ComputeThresholdMetrics(preds []Prediction, thresholds []float64) []ThresholdMetric {
	total := len(preds)
	out := make([]ThresholdMetric, 0, len(thresholds))
	for _, th := range thresholds {
		assigned, correct := 0, 0
		for _, p := range preds {
			if p.PredSlug == "" || p.Confidence < th {
				continue
			}
			assigned++
			if p.PredSlug == p.GoldSlug {
				correct++
			}
		}
		m := ThresholdMetric{
			Threshold:       th,
			NAssigned:       assigned,
			CorrectAssigned: correct,
			TotalLabeled:    total,
		}
		if assigned > 0 {
			precision := float64(correct) / float64(assigned)
			m.Precision = &precision
		}
		if total > 0 {
			m.Coverage = float64(assigned) / float64(total)
		}
		out = append(out, m)
	}
	return out
}

// ByVertical reports precision and recall-on-labeled-set per vertical at a
// single fixed threshold. Assignment counts key on the predicted slug, gold
// counts on the gold slug, so a misprediction shows up in both places.
func (s *CalibrationService) ByVertical(ctx context.Context, days int, sources []string, threshold float64) (VerticalCalibrationResult, error) {
	if len(sources) == 0 {
		sources = []string{"jira", "zendesk"}
	}
	preds, err := s.collectPredictions(ctx, days, sources)
	if err != nil {
		return VerticalCalibrationResult{}, err
	}
	if len(preds) == 0 {
		return VerticalCalibrationResult{
			Threshold:  threshold,
			ByVertical: map[string]VerticalMetric{},
			Sources:    sources,
			Days:       days,
			Note:       emptyGroundTruthNote,
		}, nil
	}

	return VerticalCalibrationResult{
		TotalLabeled: len(preds),
		Threshold:    threshold,
		ByVertical:   ComputeVerticalMetrics(preds, threshold),
		Sources:      sources,
		Days:         days,
	}, nil
}

// ComputeVerticalMetrics is the pure per-vertical aggregation.
func ComputeVerticalMetrics(preds []Prediction, threshold float64) map[string]VerticalMetric {
	perVertical := map[string]VerticalMetric{}
	for _, p := range preds {
		gv := perVertical[p.GoldSlug]
		gv.Label = p.GoldSlug
		gv.GoldCount++
		perVertical[p.GoldSlug] = gv

		if p.PredSlug == "" || p.Confidence < threshold {
			continue
		}
		pv := perVertical[p.PredSlug]
		pv.Label = p.PredSlug
		pv.AssignedCount++
		if p.PredSlug == p.GoldSlug {
			pv.CorrectAssigned++
		}
		perVertical[p.PredSlug] = pv
	}

	for slug, v := range perVertical {
		if v.AssignedCount > 0 {
			precision := float64(v.CorrectAssigned) / float64(v.AssignedCount)
			v.Precision = &precision
		}
		if v.GoldCount > 0 {
			recall := float64(v.CorrectAssigned) / float64(v.GoldCount)
			v.RecallOnLabeled = &recall
		}
		perVertical[slug] = v
	}
	return perVertical
}
