package admission

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/betcore/line-platform/internal/bet-maker/domain"
	"github.com/betcore/line-platform/pkg/contracts/events"
)

// SnapshotSource é a visão de leitura do cache de eventos.
type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]events.EventSnapshotEntry, bool, error)
}

// Ledger é o subconjunto do repositório de apostas usado na admissão.
type Ledger interface {
	Create(ctx context.Context, betID int64, amount decimal.Decimal) (*domain.Bet, error)
	List(ctx context.Context) ([]domain.Bet, error)
}

// OpenEvent é a projeção de um evento apostável.
type OpenEvent struct {
	ID   int64  `json:"id"`
	Odds string `json:"odds"`
}

// Controller decide se uma aposta pode ser aceita, consultando o cache de
// snapshot e o ledger. A checagem de cache é um early reject: cache e ledger
// são stores independentes, então a unicidade real é a constraint do ledger.
type Controller struct {
	Log       *zap.Logger
	Snapshots SnapshotSource
	Bets      Ledger
	Now       func() time.Time // injetável nos testes
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// ListOpenEvents filtra o snapshot corrente: status OPEN e deadline no futuro.
// Cache frio, expirado ou indisponível vira lista vazia, nunca erro.
func (c *Controller) ListOpenEvents(ctx context.Context) []OpenEvent {
	entries, ok, err := c.Snapshots.Snapshot(ctx)
	if err != nil {
		c.Log.Warn("snapshot read failed, serving empty line", zap.Error(err))
		return []OpenEvent{}
	}
	if !ok {
		return []OpenEvent{}
	}

	nowUnix := c.now().Unix()
	out := make([]OpenEvent, 0, len(entries))
	for _, e := range entries {
		if e.Status != events.EventOpen || e.Deadline <= nowUnix {
			continue
		}
		out = append(out, OpenEvent{ID: e.ID, Odds: e.Odds})
	}
	return out
}

// PlaceBet valida e cria uma aposta PENDING com o id do evento alvo.
// Regras, na ordem: valor positivo com até 2 casas; evento presente no
// snapshot; status OPEN; deadline no futuro; id inédito no ledger.
func (c *Controller) PlaceBet(ctx context.Context, eventID int64, amount decimal.Decimal) (*domain.Bet, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	entries, ok, err := c.Snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		// sem snapshot vivo não existe evento apostável
		return nil, domain.ErrEventNotFound
	}

	var target *events.EventSnapshotEntry
	for i := range entries {
		if entries[i].ID == eventID {
			target = &entries[i]
			break
		}
	}
	if target == nil {
		return nil, domain.ErrEventNotFound
	}
	if target.Status != events.EventOpen {
		return nil, domain.ErrBettingClosed
	}
	if target.Deadline <= c.now().Unix() {
		return nil, domain.ErrDeadlinePassed
	}

	// uma corrida pode passar pelo cache e ainda assim perder aqui: a
	// constraint do ledger responde com o mesmo conflito de duplicata
	bet, err := c.Bets.Create(ctx, eventID, amount)
	if err != nil {
		return nil, err
	}

	c.Log.Info("bet accepted",
		zap.Int64("bet_id", bet.ID),
		zap.String("amount", amount.String()),
	)
	return bet, nil
}

// ListBets retorna o ledger completo.
func (c *Controller) ListBets(ctx context.Context) ([]domain.Bet, error) {
	return c.Bets.List(ctx)
}
