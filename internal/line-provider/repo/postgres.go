package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/betcore/line-platform/pkg/contracts/events"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEventFinished = errors.New("event already finished")
)

// Postgres implementa o armazenamento de eventos e a outbox de status.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de eventos.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Create insere um evento novo com status OPEN e id atribuído pelo banco.
func (p *Postgres) Create(ctx context.Context, odds decimal.Decimal, deadline int64) (*Event, error) {
	e := &Event{Odds: odds, Deadline: deadline, Status: events.EventOpen}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO events (odds, deadline, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		odds, deadline, string(events.EventOpen),
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List retorna o conjunto completo de eventos, na ordem dos ids.
func (p *Postgres) List(ctx context.Context) ([]Event, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, odds, deadline, status, created_at, updated_at
		FROM events
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var st string
		if err := rows.Scan(&e.ID, &e.Odds, &e.Deadline, &st, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Status = events.EventStatus(st)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete remove um evento incondicionalmente; ErrEventNotFound se o id não existir.
func (p *Postgres) Delete(ctx context.Context, eventID int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM events WHERE id=$1`, eventID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// UpdateStatus aplica uma transição de status com lock pessimista na linha.
// Um evento já terminal não aceita novas transições (estado absorvente).
// A mensagem de atualização entra na outbox dentro da MESMA transação: o commit
// do banco é o ponto de durabilidade; a publicação é responsabilidade do dispatcher.
func (p *Postgres) UpdateStatus(ctx context.Context, eventID int64, newStatus events.EventStatus) (*Event, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var cur string
	err = tx.QueryRowContext(ctx, `SELECT status FROM events WHERE id=$1 FOR UPDATE`, eventID).Scan(&cur)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if events.EventStatus(cur).Terminal() {
		return nil, ErrEventFinished
	}

	e := &Event{ID: eventID, Status: newStatus}
	var st string
	err = tx.QueryRowContext(ctx, `
		UPDATE events SET status=$1, updated_at=NOW()
		WHERE id=$2
		RETURNING odds, deadline, status, created_at, updated_at`,
		string(newStatus), eventID,
	).Scan(&e.Odds, &e.Deadline, &st, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = events.EventStatus(st)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO event_status_outbox (event_id, new_status)
		VALUES ($1, $2)`,
		eventID, string(newStatus),
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e, nil
}

// UnsentStatusUpdates lista as entradas da outbox ainda não publicadas.
func (p *Postgres) UnsentStatusUpdates(ctx context.Context, limit int) ([]StatusOutboxEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, event_id, new_status, attempts, created_at
		FROM event_status_outbox
		WHERE sent_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusOutboxEntry
	for rows.Next() {
		var o StatusOutboxEntry
		var st string
		if err := rows.Scan(&o.ID, &o.EventID, &st, &o.Attempts, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.NewStatus = events.EventStatus(st)
		out = append(out, o)
	}
	return out, rows.Err()
}

// MarkStatusSent marca a entrada como publicada.
func (p *Postgres) MarkStatusSent(ctx context.Context, outboxID int64) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE event_status_outbox SET sent_at=NOW() WHERE id=$1`, outboxID)
	return err
}

// MarkStatusFailed incrementa o contador de tentativas de uma entrada não enviada.
func (p *Postgres) MarkStatusFailed(ctx context.Context, outboxID int64) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE event_status_outbox SET attempts=attempts+1 WHERE id=$1`, outboxID)
	return err
}
