package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/betcore/line-platform/internal/line-provider/repo"
	"github.com/betcore/line-platform/pkg/contracts/events"
)

// OutboxStore abstrai o acesso à outbox de atualizações de status.
type OutboxStore interface {
	UnsentStatusUpdates(ctx context.Context, limit int) ([]repo.StatusOutboxEntry, error)
	MarkStatusSent(ctx context.Context, outboxID int64) error
	MarkStatusFailed(ctx context.Context, outboxID int64) error
}

// Dispatcher publica as entradas pendentes da outbox no tópico de status.
// Diferente do snapshot, esses deltas não podem ser descartados: uma entrada
// que continua falhando permanece na outbox e, passado o limite de tentativas,
// vira alerta de operação em vez de sumir.
type Dispatcher struct {
	Log    *zap.Logger
	Outbox OutboxStore
	Writer MessageWriter

	PollInterval  time.Duration // intervalo entre varreduras da outbox
	MaxRetries    int           // tentativas de publicação por varredura
	EscalateAfter int           // total de tentativas acumuladas antes de alertar

	OnPublished func() // métricas
	OnStuck     func() // métricas: entradas acima do limite de tentativas
}

// Run varre a outbox em loop até o contexto ser cancelado.
func (d *Dispatcher) Run(ctx context.Context) {
	poll := d.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.Log.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.dispatchPending(ctx)
		}
	}
}

func (d *Dispatcher) dispatchPending(ctx context.Context) {
	entries, err := d.Outbox.UnsentStatusUpdates(ctx, 100)
	if err != nil {
		d.Log.Warn("outbox read failed", zap.Error(err))
		return
	}

	for _, entry := range entries {
		if err := d.publishWithRetry(ctx, entry); err != nil {
			if merr := d.Outbox.MarkStatusFailed(ctx, entry.ID); merr != nil {
				d.Log.Warn("outbox attempt bump failed", zap.Error(merr))
			}
			// entrega não confirmada: a entrada fica na outbox para a próxima
			// varredura; ao cruzar o limite vira alerta de operação, uma vez
			// por entrada
			if d.EscalateAfter > 0 && entry.Attempts+1 == d.EscalateAfter {
				d.Log.Error("status update stuck, operator attention required",
					zap.Int64("event_id", entry.EventID),
					zap.Int("attempts", entry.Attempts+1),
					zap.Error(err),
				)
				if d.OnStuck != nil {
					d.OnStuck()
				}
			} else {
				d.Log.Warn("status update publish failed, will retry",
					zap.Int64("event_id", entry.EventID),
					zap.Error(err),
				)
			}
			continue
		}

		if err := d.Outbox.MarkStatusSent(ctx, entry.ID); err != nil {
			// pior caso: a mensagem repete na próxima varredura; o consumidor
			// de settlement é idempotente, então duplicata é inofensiva
			d.Log.Warn("outbox mark sent failed", zap.Error(err))
			continue
		}
		if d.OnPublished != nil {
			d.OnPublished()
		}
		d.Log.Info("status update published",
			zap.Int64("event_id", entry.EventID),
			zap.String("new_status", string(entry.NewStatus)),
		)
	}
}

func (d *Dispatcher) publishWithRetry(ctx context.Context, entry repo.StatusOutboxEntry) error {
	payload, err := json.Marshal(events.StatusUpdate{
		EventID:   entry.EventID,
		NewStatus: entry.NewStatus,
	})
	if err != nil {
		return err
	}

	// chave por evento: updates do mesmo evento caem na mesma partição
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(entry.EventID, 10)),
		Value: payload,
		Time:  time.Now(),
	}

	retries := d.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	for i := 0; i < retries; i++ {
		if err = d.Writer.WriteMessages(ctx, msg); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
	}
	return err
}
