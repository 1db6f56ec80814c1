package verticals

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/pmcopilot/backend/internal/embed"
	"github.com/pmcopilot/backend/internal/nlp"
)

// EnsembleConfig carries the tunable constants of the ensemble stage. The
// defaults reproduce the shipped behavior; treat them as heuristics pending
// empirical tuning, not load-bearing correctness constraints.
type EnsembleConfig struct {
	SimWeight       float64
	KeywordWeight   float64
	ConfidenceBase  float64
	ConfidenceScale float64
	ConfidenceMin   float64
	ConfidenceMax   float64
}

func DefaultEnsembleConfig() EnsembleConfig {
	return EnsembleConfig{
		SimWeight:       0.65,
		KeywordWeight:   0.35,
		ConfidenceBase:  0.55,
		ConfidenceScale: 0.40,
		ConfidenceMin:   0.50,
		ConfidenceMax:   0.95,
	}
}

// SimilarityEntry is one prototype similarity in an explanation.
type SimilarityEntry struct {
	Slug string  `json:"slug"`
	Sim  float64 `json:"sim"`
}

// Explanation records why a vertical was assigned, for auditability.
type Explanation struct {
	Rule            string             `json:"rule,omitempty"`
	Project         string             `json:"project,omitempty"`
	Matched         []string           `json:"matched,omitempty"`
	MatchedKeywords []string           `json:"matched_keywords,omitempty"`
	KeywordCounts   map[string]int     `json:"kw_counts,omitempty"`
	EmbedTop        []SimilarityEntry  `json:"embed_top,omitempty"`
	Combined        map[string]float64 `json:"combined,omitempty"`
	Source          string             `json:"source,omitempty"`
}

// Assignment is a classification outcome. A nil *Assignment means the
// classifier had no signal, which is a valid result, not an error.
type Assignment struct {
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Confidence  float64     `json:"confidence"`
	Explanation Explanation `json:"explanation"`
}

// TicketInput is the classifier's view of one ticket.
type TicketInput struct {
	Source    string
	Title     string
	Content   string
	LabelsCSV string
	Project   string
}

// Classifier assigns a product vertical in two stages: structured rules
// first, then a keyword + prototype-embedding ensemble. Stages run in order
// and the first confident opinion short-circuits the chain.
type Classifier struct {
	Provider embed.Provider
	Config   EnsembleConfig

	protoOnce sync.Once
	protoVecs [][]float64
	protoErr  error
}

func NewClassifier(provider embed.Provider, cfg EnsembleConfig) *Classifier {
	return &Classifier{Provider: provider, Config: cfg}
}

// Classify runs the stage chain. The returned assignment is not persisted
// here; callers apply their own confidence threshold before writing.
func (c *Classifier) Classify(ctx context.Context, in TicketInput) (*Assignment, error) {
	stages := []func(context.Context, TicketInput) (*Assignment, error){
		func(_ context.Context, in TicketInput) (*Assignment, error) {
			return RuleBasedVertical(in.Source, in.LabelsCSV, in.Project), nil
		},
		c.ensembleStage,
	}
	for _, stage := range stages {
		a, err := stage(ctx, in)
		if err != nil {
			return nil, err
		}
		if a != nil {
			return a, nil
		}
	}
	return nil, nil
}

// RuleBasedVertical applies only the structured rules: jira project keys
// (confidence 0.95), jira labels and zendesk tags (0.90). Ties prefer the
// higher confidence, then domain-specific verticals over horizontal ones.
func RuleBasedVertical(source, labelsCSV, project string) *Assignment {
	labels := splitLabels(labelsCSV)
	projectKey := strings.ToUpper(strings.TrimSpace(project))

	var candidates []Assignment
	for i := range Catalog {
		v := &Catalog[i]
		if source == "jira" && projectKey != "" && containsFold(v.JiraProjects, projectKey) {
			candidates = append(candidates, Assignment{
				Slug:        v.Slug,
				Name:        v.Name,
				Confidence:  0.95,
				Explanation: Explanation{Rule: "jira_project", Project: projectKey},
			})
			continue
		}
		if source == "jira" && len(labels) > 0 {
			if matched := intersectLower(labels, v.JiraLabels); len(matched) > 0 {
				candidates = append(candidates, Assignment{
					Slug:        v.Slug,
					Name:        v.Name,
					Confidence:  0.90,
					Explanation: Explanation{Rule: "jira_label", Matched: matched},
				})
			}
		}
		if source == "zendesk" && len(labels) > 0 {
			if matched := intersectLower(labels, v.ZendeskTags); len(matched) > 0 {
				candidates = append(candidates, Assignment{
					Slug:        v.Slug,
					Name:        v.Name,
					Confidence:  0.90,
					Explanation: Explanation{Rule: "zendesk_tag", Matched: matched},
				})
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return !horizontalSlugs[candidates[i].Slug] && horizontalSlugs[candidates[j].Slug]
	})
	best := candidates[0]
	return &best
}

func (c *Classifier) ensembleStage(ctx context.Context, in TicketInput) (*Assignment, error) {
	text := in.Title + " \n " + in.Content + " \n " + in.LabelsCSV + " \n " + in.Project + " \n " + in.Source
	textLC := strings.ToLower(text)

	kwCounts := map[string]int{}
	hits := map[string][]string{}
	for i := range Catalog {
		v := &Catalog[i]
		count := 0
		var matched []string
		for _, kw := range v.Keywords {
			if kw != "" && strings.Contains(textLC, strings.ToLower(kw)) {
				count++
				matched = append(matched, kw)
			}
		}
		if count > 0 {
			kwCounts[v.Slug] = count
			hits[v.Slug] = matched
		}
	}

	if err := c.ensurePrototypes(ctx); err != nil {
		return nil, err
	}
	if len(c.protoVecs) == 0 {
		return nil, nil
	}

	qvecs, err := c.Provider.Embed(ctx, []string{nlp.CleanText(text)})
	if err != nil {
		return nil, err
	}
	qvec := qvecs[0]

	// Prototype vectors and the query are unit length, so the dot product is
	// the cosine similarity.
	sims := make([]float64, len(c.protoVecs))
	combined := make(map[string]float64, len(Catalog))
	simMap := make(map[string]float64, len(Catalog))
	for i := range Catalog {
		sims[i] = floats.Dot(qvec, c.protoVecs[i])
		kwNorm := float64(min(kwCounts[Catalog[i].Slug], 3)) / 3.0
		combined[Catalog[i].Slug] = c.Config.SimWeight*sims[i] + c.Config.KeywordWeight*kwNorm
		simMap[Catalog[i].Slug] = sims[i]
	}
	if len(combined) == 0 {
		return nil, nil
	}

	bestIdx := 0
	for i := 1; i < len(Catalog); i++ {
		bi, ci := Catalog[bestIdx].Slug, Catalog[i].Slug
		if combined[ci] > combined[bi] {
			bestIdx = i
			continue
		}
		if combined[ci] == combined[bi] && horizontalSlugs[bi] && !horizontalSlugs[ci] {
			bestIdx = i
		}
	}
	best := &Catalog[bestIdx]

	raw := combined[best.Slug]
	conf := clamp(c.Config.ConfidenceBase+c.Config.ConfidenceScale*raw, c.Config.ConfidenceMin, c.Config.ConfidenceMax)

	return &Assignment{
		Slug:       best.Slug,
		Name:       best.Name,
		Confidence: conf,
		Explanation: Explanation{
			MatchedKeywords: hits[best.Slug],
			KeywordCounts:   kwCounts,
			EmbedTop:        topSimilarities(simMap, 3),
			Combined:        map[string]float64{best.Slug: raw},
		},
	}, nil
}

// ensurePrototypes embeds one prototype text per catalog vertical, once per
// process. The prototype text is "<name>. <space-joined keywords>".
func (c *Classifier) ensurePrototypes(ctx context.Context) error {
	c.protoOnce.Do(func() {
		texts := make([]string, 0, len(Catalog))
		for i := range Catalog {
			texts = append(texts, strings.TrimSpace(Catalog[i].Name+". "+strings.Join(Catalog[i].Keywords, " ")))
		}
		vecs, err := c.Provider.Embed(ctx, texts)
		if err != nil {
			c.protoErr = err
			return
		}
		c.protoVecs = vecs
	})
	return c.protoErr
}

func topSimilarities(simMap map[string]float64, n int) []SimilarityEntry {
	entries := make([]SimilarityEntry, 0, len(simMap))
	for slug, sim := range simMap {
		entries = append(entries, SimilarityEntry{Slug: slug, Sim: math.Round(sim*10000) / 10000})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Sim != entries[j].Sim {
			return entries[i].Sim > entries[j].Sim
		}
		return entries[i].Slug < entries[j].Slug
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func splitLabels(labelsCSV string) map[string]bool {
	out := map[string]bool{}
	for _, part := range strings.Split(labelsCSV, ",") {
		p := strings.ToLower(strings.TrimSpace(part))
		if p != "" {
			out[p] = true
		}
	}
	return out
}

func intersectLower(labels map[string]bool, list []string) []string {
	var matched []string
	for _, item := range list {
		if labels[strings.ToLower(item)] {
			matched = append(matched, strings.ToLower(item))
		}
	}
	return matched
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
