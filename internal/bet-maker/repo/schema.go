package repo

import "context"

// o id da aposta é o id do evento: a primary key é a garantia de
// uma aposta por evento
const schemaSQL = `
CREATE TABLE IF NOT EXISTS bets (
    id BIGINT PRIMARY KEY,
    amount NUMERIC(12,2) NOT NULL,
    status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema cria a tabela do ledger se ainda não existir.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schemaSQL)
	return err
}
