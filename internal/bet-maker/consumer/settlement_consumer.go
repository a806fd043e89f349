package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/betcore/line-platform/internal/bet-maker/domain"
	sharedkafka "github.com/betcore/line-platform/internal/shared/kafka"
	"github.com/betcore/line-platform/pkg/contracts/events"
)

// SettlementLedger é a visão de escrita do ledger usada pela liquidação.
type SettlementLedger interface {
	Settle(ctx context.Context, betID int64, outcome domain.BetStatus) (applied bool, err error)
}

// SettlementConsumer aplica os deltas de status às apostas persistidas.
// A única estratégia de retry aqui é a reentrega do broker: falha de
// persistência aborta sem commit e o apply é idempotente (checagem de estado
// terminal dentro da transação), então reentregar é sempre seguro.
type SettlementConsumer struct {
	Log      *zap.Logger
	Brokers  string
	Topic    string
	GroupID  string
	Prefetch int
	Bets     SettlementLedger

	OnConsumed func()       // métricas
	OnApplied  func()       // métricas
	OnSkipped  func(string) // métricas por motivo
	OnError    func(string) // métricas por fase
}

// Run abre um reader e consome até o contexto ser cancelado.
func (c *SettlementConsumer) Run(ctx context.Context) error {
	r := sharedkafka.NewReader(c.Brokers, c.Topic, c.GroupID, c.Prefetch)
	defer r.Close()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.Log.Warn("kafka fetch failed", zap.Error(err))
			if c.OnError != nil {
				c.OnError("fetch")
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if c.OnConsumed != nil {
			c.OnConsumed()
		}

		if _, err := c.handle(ctx, m.Value); err != nil {
			// offset não confirmado: a mensagem volta quando o reader reabrir
			if c.OnError != nil {
				c.OnError("apply")
			}
			return err
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			c.Log.Warn("kafka commit failed", zap.Error(err))
		}
	}
}

// handle aplica uma mensagem de status. ack=true confirma o offset mesmo sem
// efeito (malformada, rótulo desconhecido, aposta ausente ou já terminal);
// err != nil segura o offset para reentrega.
func (c *SettlementConsumer) handle(ctx context.Context, value []byte) (ack bool, err error) {
	var upd events.StatusUpdate
	if jerr := json.Unmarshal(value, &upd); jerr != nil || upd.EventID <= 0 {
		c.Log.Warn("malformed status update dropped", zap.ByteString("payload", value))
		if c.OnSkipped != nil {
			c.OnSkipped("malformed")
		}
		return true, nil
	}

	outcome, ok := domain.OutcomeFor(upd.NewStatus)
	if !ok {
		// rótulo que não dá pra aplicar com segurança: no-op logado
		c.Log.Warn("unknown producer status ignored",
			zap.Int64("event_id", upd.EventID),
			zap.String("new_status", string(upd.NewStatus)),
		)
		if c.OnSkipped != nil {
			c.OnSkipped("unknown_status")
		}
		return true, nil
	}

	applied, err := c.Bets.Settle(ctx, upd.EventID, outcome)
	if err != nil {
		if errors.Is(err, domain.ErrBetNotFound) {
			// aposta nunca feita (ou já removida): não é erro
			c.Log.Debug("no bet for settled event", zap.Int64("event_id", upd.EventID))
			if c.OnSkipped != nil {
				c.OnSkipped("no_bet")
			}
			return true, nil
		}
		c.Log.Error("settle failed, holding offset for redelivery",
			zap.Int64("event_id", upd.EventID), zap.Error(err))
		return false, err
	}

	if applied {
		c.Log.Info("bet settled",
			zap.Int64("bet_id", upd.EventID),
			zap.String("outcome", string(outcome)),
		)
		if c.OnApplied != nil {
			c.OnApplied()
		}
	} else {
		// já terminal: duplicata ou mensagem fora de ordem, absorvida
		c.Log.Debug("bet already settled", zap.Int64("bet_id", upd.EventID))
		if c.OnSkipped != nil {
			c.OnSkipped("already_settled")
		}
	}
	return true, nil
}
