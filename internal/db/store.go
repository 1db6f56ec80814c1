package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pmcopilot/backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const ticketColumns = `id, source, external_id, title, content, type, status, priority,
	requester, submitter, assignee, labels, url, project,
	is_internal, is_shared, sharing_type,
	requester_role, requester_email, submitter_role, submitter_email,
	source_created_at, source_updated_at, created_at, updated_at`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(
		&t.ID, &t.Source, &t.ExternalID, &t.Title, &t.Content, &t.Type, &t.Status, &t.Priority,
		&t.Requester, &t.Submitter, &t.Assignee, &t.Labels, &t.URL, &t.Project,
		&t.IsInternal, &t.IsShared, &t.SharingType,
		&t.RequesterRole, &t.RequesterEmail, &t.SubmitterRole, &t.SubmitterEmail,
		&t.SourceCreatedAt, &t.SourceUpdatedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func collectTickets(rows pgx.Rows) ([]models.Ticket, error) {
	defer rows.Close()
	var out []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertTickets writes a batch of normalized sync records, deduplicating on
// (source, external_id). The whole batch commits atomically.
func (s *Store) UpsertTickets(ctx context.Context, items []models.NormalizedTicket) (int, error) {
	upserted := 0
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		for _, it := range items {
			_, err := tx.Exec(ctx, `
				INSERT INTO tickets (source, external_id, title, content, status, priority,
					requester, submitter, assignee, labels, url, project,
					is_internal, is_shared, sharing_type,
					requester_role, requester_email, submitter_role, submitter_email,
					source_created_at, source_updated_at, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,NOW(),NOW())
				ON CONFLICT (source, external_id) DO UPDATE SET
					title = EXCLUDED.title,
					content = EXCLUDED.content,
					status = EXCLUDED.status,
					priority = EXCLUDED.priority,
					requester = EXCLUDED.requester,
					submitter = EXCLUDED.submitter,
					assignee = EXCLUDED.assignee,
					labels = EXCLUDED.labels,
					url = EXCLUDED.url,
					project = EXCLUDED.project,
					is_internal = EXCLUDED.is_internal,
					is_shared = EXCLUDED.is_shared,
					sharing_type = EXCLUDED.sharing_type,
					requester_role = EXCLUDED.requester_role,
					requester_email = EXCLUDED.requester_email,
					submitter_role = EXCLUDED.submitter_role,
					submitter_email = EXCLUDED.submitter_email,
					source_created_at = EXCLUDED.source_created_at,
					source_updated_at = EXCLUDED.source_updated_at,
					updated_at = NOW()
			`, it.Source, it.ExternalID, it.Title, it.Content, it.Status, it.Priority,
				it.Requester, it.Submitter, it.Assignee, it.Labels, it.URL, it.Project,
				it.IsInternal, it.IsShared, it.SharingType,
				it.RequesterRole, it.RequesterEmail, it.SubmitterRole, it.SubmitterEmail,
				it.SourceCreatedAt, it.SourceUpdatedAt)
			if err != nil {
				return err
			}
			upserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return upserted, nil
}

// TicketsSince returns tickets updated at the source within the last N days
// (tickets with no source timestamp are always included). Internal-only
// tickets are excluded unless includeInternal is set; unknown visibility
// counts as external.
func (s *Store) TicketsSince(ctx context.Context, days int, includeInternal bool) ([]models.Ticket, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	query := `SELECT ` + ticketColumns + ` FROM tickets
		WHERE (source_updated_at IS NULL OR source_updated_at >= $1)`
	if !includeInternal {
		query += ` AND (is_internal IS NULL OR is_internal = FALSE)`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

// TicketsBySource is TicketsSince restricted to one source.
func (s *Store) TicketsBySource(ctx context.Context, source string, days int, includeInternal bool) ([]models.Ticket, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	query := `SELECT ` + ticketColumns + ` FROM tickets
		WHERE source = $1 AND (source_updated_at IS NULL OR source_updated_at >= $2)`
	if !includeInternal {
		query += ` AND (is_internal IS NULL OR is_internal = FALSE)`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.Pool.Query(ctx, query, source, since)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

func (s *Store) UpdateTicketType(ctx context.Context, tx pgx.Tx, ticketID int64, ticketType string) error {
	_, err := tx.Exec(ctx, `UPDATE tickets SET type = $1, updated_at = NOW() WHERE id = $2`, ticketType, ticketID)
	return err
}

// EmbeddingsFor returns the cached embedding records for the given tickets.
func (s *Store) EmbeddingsFor(ctx context.Context, ticketIDs []int64) (map[int64]models.EmbeddingRecord, error) {
	out := map[int64]models.EmbeddingRecord{}
	if len(ticketIDs) == 0 {
		return out, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, ticket_id, model, dim, vector, content_hash, created_at, updated_at
		FROM ticket_embeddings WHERE ticket_id = ANY($1)
	`, ticketIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.EmbeddingRecord
		var raw []byte
		if err := rows.Scan(&rec.ID, &rec.TicketID, &rec.Model, &rec.Dim, &raw, &rec.ContentHash, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &rec.Vector); err != nil {
			return nil, fmt.Errorf("decode vector for ticket %d: %w", rec.TicketID, err)
		}
		out[rec.TicketID] = rec
	}
	return out, rows.Err()
}

func (s *Store) UpsertEmbedding(ctx context.Context, tx pgx.Tx, rec models.EmbeddingRecord) error {
	raw, err := json.Marshal(rec.Vector)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO ticket_embeddings (ticket_id, model, dim, vector, content_hash, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
		ON CONFLICT (ticket_id) DO UPDATE SET
			model = EXCLUDED.model,
			dim = EXCLUDED.dim,
			vector = EXCLUDED.vector,
			content_hash = EXCLUDED.content_hash,
			updated_at = NOW()
	`, rec.TicketID, rec.Model, rec.Dim, raw, rec.ContentHash)
	return err
}

// VerticalsFor returns stored vertical assignments keyed by ticket id.
func (s *Store) VerticalsFor(ctx context.Context, ticketIDs []int64) (map[int64]models.VerticalAssignment, error) {
	out := map[int64]models.VerticalAssignment{}
	if len(ticketIDs) == 0 {
		return out, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT ticket_id, vertical_slug, vertical_name, confidence, explanation, updated_at
		FROM ticket_verticals WHERE ticket_id = ANY($1)
	`, ticketIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a models.VerticalAssignment
		if err := rows.Scan(&a.TicketID, &a.Slug, &a.Name, &a.Confidence, &a.Explanation, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out[a.TicketID] = a
	}
	return out, rows.Err()
}

func (s *Store) UpsertVertical(ctx context.Context, tx pgx.Tx, a models.VerticalAssignment) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ticket_verticals (ticket_id, vertical_slug, vertical_name, confidence, explanation, updated_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		ON CONFLICT (ticket_id) DO UPDATE SET
			vertical_slug = EXCLUDED.vertical_slug,
			vertical_name = EXCLUDED.vertical_name,
			confidence = EXCLUDED.confidence,
			explanation = EXCLUDED.explanation,
			updated_at = NOW()
	`, a.TicketID, a.Slug, a.Name, a.Confidence, a.Explanation)
	return err
}

func (s *Store) UpsertGoldLabel(ctx context.Context, tx pgx.Tx, gl models.GoldLabel) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO gold_labels (ticket_id, vertical_slug, vertical_name, reviewer, note, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		ON CONFLICT (ticket_id) DO UPDATE SET
			vertical_slug = EXCLUDED.vertical_slug,
			vertical_name = EXCLUDED.vertical_name,
			reviewer = EXCLUDED.reviewer,
			note = EXCLUDED.note,
			created_at = NOW()
	`, gl.TicketID, gl.Slug, gl.Name, gl.Reviewer, gl.Note)
	return err
}

// InsertThemes persists the report rows of one clustering run.
func (s *Store) InsertThemes(ctx context.Context, themes []models.ThemeRow) error {
	if len(themes) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(themes))
	for _, th := range themes {
		rows = append(rows, []any{th.RunID, th.Label, th.Hint, th.Type, th.Size})
	}
	_, err := s.Pool.CopyFrom(ctx, pgx.Identifier{"themes"},
		[]string{"run_id", "label", "centroid_hint", "type", "size"},
		pgx.CopyFromRows(rows))
	return err
}

// TicketsByIDs returns the named tickets, ordered by id.
func (s *Store) TicketsByIDs(ctx context.Context, ticketIDs []int64) ([]models.Ticket, error) {
	if len(ticketIDs) == 0 {
		return nil, nil
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ANY($1) ORDER BY id ASC`, ticketIDs)
	if err != nil {
		return nil, err
	}
	return collectTickets(rows)
}

// TicketExists reports whether a ticket id is present.
func (s *Store) TicketExists(ctx context.Context, ticketID int64) (bool, error) {
	var one int
	err := s.Pool.QueryRow(ctx, `SELECT 1 FROM tickets WHERE id = $1`, ticketID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
