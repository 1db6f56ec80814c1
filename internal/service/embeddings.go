package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/pmcopilot/backend/internal/db"
	"github.com/pmcopilot/backend/internal/embed"
	"github.com/pmcopilot/backend/internal/models"
	"github.com/pmcopilot/backend/internal/nlp"
	"github.com/pmcopilot/backend/internal/utils"
)

// EmbeddingCache ensures one stored vector per ticket, computing only the
// missing ones. Vectors are never recomputed on content change unless
// RefreshOnChange is set, in which case a stored content hash is compared.
type EmbeddingCache struct {
	Store           *db.Store
	Provider        embed.Provider
	RefreshOnChange bool
	Logger          zerolog.Logger
}

// EmbedText is the canonical per-ticket embedding input.
func EmbedText(t models.Ticket) string {
	return nlp.CleanText(t.Title + ". " + t.Content)
}

func contentHash(text string) string {
	return fmt.Sprintf("%016x", utils.HashStringToUint64(text))
}

// Ensure embeds tickets lacking a record (one batched provider call, one
// transactional write) and returns vectors plus the ordered subset of input
// tickets that have a record. Tickets whose embedding could not be persisted
// are excluded, so the returned slices may be shorter than the input.
func (c *EmbeddingCache) Ensure(ctx context.Context, tickets []models.Ticket) ([][]float64, []models.Ticket, error) {
	ids := make([]int64, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	existing, err := c.Store.EmbeddingsFor(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	var needTickets []models.Ticket
	var needTexts []string
	for _, t := range tickets {
		text := EmbedText(t)
		rec, ok := existing[t.ID]
		if ok && (!c.RefreshOnChange || rec.ContentHash == contentHash(text)) {
			continue
		}
		needTickets = append(needTickets, t)
		needTexts = append(needTexts, text)
	}

	if len(needTexts) > 0 {
		vecs, err := c.Provider.Embed(ctx, needTexts)
		if err != nil {
			// Model unavailability is fatal: downstream classification,
			// clustering and query all depend on vectors.
			return nil, nil, err
		}
		err = c.Store.WithTx(ctx, func(tx pgx.Tx) error {
			for i, t := range needTickets {
				rec := models.EmbeddingRecord{
					TicketID:    t.ID,
					Model:       c.Provider.Model(),
					Dim:         len(vecs[i]),
					Vector:      vecs[i],
					ContentHash: contentHash(needTexts[i]),
				}
				if err := c.Store.UpsertEmbedding(ctx, tx, rec); err != nil {
					return err
				}
				existing[t.ID] = rec
			}
			return nil
		})
		if err != nil {
			c.Logger.Warn().Err(err).Int("count", len(needTickets)).Msg("embedding batch write failed")
			// Fall through: tickets without a persisted record are dropped
			// from the returned ordering.
			refreshed, ferr := c.Store.EmbeddingsFor(ctx, ids)
			if ferr != nil {
				return nil, nil, ferr
			}
			existing = refreshed
		}
	}

	vectors := make([][]float64, 0, len(tickets))
	ordered := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if rec, ok := existing[t.ID]; ok {
			vectors = append(vectors, rec.Vector)
			ordered = append(ordered, t)
		}
	}
	return vectors, ordered, nil
}
