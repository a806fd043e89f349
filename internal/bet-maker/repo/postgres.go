package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/betcore/line-platform/internal/bet-maker/domain"
)

// Postgres implementa o ledger de apostas.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de apostas.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Create insere uma aposta PENDING com o id do evento alvo.
// A primary key de bets.id é o ponto real de serialização: duas tentativas
// concorrentes no mesmo id resolvem aqui, não na checagem de cache.
func (p *Postgres) Create(ctx context.Context, betID int64, amount decimal.Decimal) (*domain.Bet, error) {
	b := &domain.Bet{ID: betID, Amount: amount, Status: domain.BetPending}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO bets (id, amount, status)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		betID, amount, string(domain.BetPending),
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, domain.ErrDuplicateBet
		}
		return nil, err
	}
	return b, nil
}

// List retorna todas as apostas do ledger.
func (p *Postgres) List(ctx context.Context) ([]domain.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, amount, status, created_at, updated_at
		FROM bets
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Bet
	for rows.Next() {
		var b domain.Bet
		var st string
		if err := rows.Scan(&b.ID, &b.Amount, &st, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.Status = domain.BetStatus(st)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Settle aplica o resultado terminal de forma monotônica, com lock na linha.
// Retorna applied=false quando a aposta já está terminal — é isso que torna a
// reentrega de mensagens (duplicadas ou fora de ordem) segura.
// Aposta inexistente retorna domain.ErrBetNotFound.
func (p *Postgres) Settle(ctx context.Context, betID int64, outcome domain.BetStatus) (applied bool, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var cur string
	err = tx.QueryRowContext(ctx, `SELECT status FROM bets WHERE id=$1 FOR UPDATE`, betID).Scan(&cur)
	if err == sql.ErrNoRows {
		return false, domain.ErrBetNotFound
	}
	if err != nil {
		return false, err
	}
	if domain.BetStatus(cur).Terminal() {
		return false, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE bets SET status=$1, updated_at=NOW() WHERE id=$2`,
		string(outcome), betID,
	); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
