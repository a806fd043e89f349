package repo

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    odds NUMERIC(10,2) NOT NULL,
    deadline BIGINT NOT NULL,
    status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS event_status_outbox (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL,
    new_status TEXT NOT NULL,
    attempts INT NOT NULL DEFAULT 0,
    sent_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_status_outbox_unsent
    ON event_status_outbox (id) WHERE sent_at IS NULL;
`

// EnsureSchema cria as tabelas do provedor se ainda não existirem.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schemaSQL)
	return err
}
