package service

import (
	"context"
	"sort"
	"strings"

	"github.com/pmcopilot/backend/internal/db"
	"github.com/pmcopilot/backend/internal/models"
)

// LabelCount is one label with its occurrence count.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// LabelFrequencyResult summarizes label usage over a ticket window.
type LabelFrequencyResult struct {
	TotalTickets int          `json:"total_tickets"`
	UniqueLabels int          `json:"unique_labels"`
	Items        []LabelCount `json:"items"`
}

// AnalyticsService answers aggregate questions about the raw ticket data,
// independent of the ML pipeline.
type AnalyticsService struct {
	Store *db.Store
}

// LabelFrequencies counts label occurrences in the window, optionally
// restricted to one source. minCount filters rare labels before the top
// cut is applied.
func (s *AnalyticsService) LabelFrequencies(ctx context.Context, days int, source string, minCount, top int, includeInternal bool) (LabelFrequencyResult, error) {
	var (
		tickets []models.Ticket
		err     error
	)
	if filterActive(source) {
		tickets, err = s.Store.TicketsBySource(ctx, source, days, includeInternal)
	} else {
		tickets, err = s.Store.TicketsSince(ctx, days, includeInternal)
	}
	if err != nil {
		return LabelFrequencyResult{Items: []LabelCount{}}, err
	}
	return ComputeLabelFrequencies(tickets, minCount, top), nil
}

// ComputeLabelFrequencies splits each ticket's comma separated labels,
// normalizes to lower case and counts. Items come back sorted by count
// descending, then label ascending.
func ComputeLabelFrequencies(tickets []models.Ticket, minCount, top int) LabelFrequencyResult {
	counts := map[string]int{}
	for _, t := range tickets {
		for _, raw := range strings.Split(t.Labels, ",") {
			label := strings.ToLower(strings.TrimSpace(raw))
			if label == "" {
				continue
			}
			counts[label]++
		}
	}

	items := make([]LabelCount, 0, len(counts))
	for label, c := range counts {
		if minCount > 1 && c < minCount {
			continue
		}
		items = append(items, LabelCount{Label: label, Count: c})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Label < items[j].Label
	})
	if top > 0 && len(items) > top {
		items = items[:top]
	}

	return LabelFrequencyResult{
		TotalTickets: len(tickets),
		UniqueLabels: len(counts),
		Items:        items,
	}
}
