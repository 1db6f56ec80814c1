package db

import "context"

// EnsureSchema creates the tables the pipeline needs if they do not exist.
// Mirrors the sync collaborator's ticket shape plus the derived artifacts.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tickets (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			external_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT 'unknown',
			status TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT '',
			requester TEXT NOT NULL DEFAULT '',
			submitter TEXT NOT NULL DEFAULT '',
			assignee TEXT NOT NULL DEFAULT '',
			labels TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			project TEXT NOT NULL DEFAULT '',
			is_internal BOOLEAN,
			is_shared BOOLEAN,
			sharing_type TEXT NOT NULL DEFAULT '',
			requester_role TEXT NOT NULL DEFAULT '',
			requester_email TEXT NOT NULL DEFAULT '',
			submitter_role TEXT NOT NULL DEFAULT '',
			submitter_email TEXT NOT NULL DEFAULT '',
			source_created_at TIMESTAMPTZ,
			source_updated_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (source, external_id)
		);
		CREATE INDEX IF NOT EXISTS ix_tickets_source_updated ON tickets (source, source_updated_at);

		CREATE TABLE IF NOT EXISTS ticket_embeddings (
			id BIGSERIAL PRIMARY KEY,
			ticket_id BIGINT NOT NULL UNIQUE REFERENCES tickets(id),
			model TEXT NOT NULL DEFAULT 'all-MiniLM-L6-v2',
			dim INT NOT NULL DEFAULT 384,
			vector JSONB NOT NULL,
			content_hash TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS ticket_verticals (
			id BIGSERIAL PRIMARY KEY,
			ticket_id BIGINT NOT NULL UNIQUE REFERENCES tickets(id),
			vertical_slug TEXT NOT NULL,
			vertical_name TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			explanation JSONB,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS gold_labels (
			id BIGSERIAL PRIMARY KEY,
			ticket_id BIGINT NOT NULL UNIQUE REFERENCES tickets(id),
			vertical_slug TEXT NOT NULL,
			vertical_name TEXT NOT NULL,
			reviewer TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS themes (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			label INT NOT NULL,
			centroid_hint TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT 'mixed',
			size INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS ix_themes_run ON themes (run_id);
	`)
	return err
}
