package consumer

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	sharedkafka "github.com/betcore/line-platform/internal/shared/kafka"
	"github.com/betcore/line-platform/pkg/contracts/events"
)

// SnapshotCache é a visão de escrita do cache de eventos.
type SnapshotCache interface {
	Replace(ctx context.Context, entries []events.EventSnapshotEntry) error
}

// SnapshotConsumer consome o tópico de snapshot e substitui a visão inteira
// do cache a cada mensagem. Reordenação é inofensiva: o cache reflete o último
// snapshot ingerido e a admissão revalida deadlines por conta própria.
type SnapshotConsumer struct {
	Log      *zap.Logger
	Brokers  string
	Topic    string
	GroupID  string
	Prefetch int
	Cache    SnapshotCache

	OnConsumed func()       // métricas
	OnReplaced func(int)    // métricas
	OnError    func(string) // métricas por fase
}

// Run abre um reader e consome até o contexto ser cancelado. Uma falha de
// escrita no cache deixa o offset sem commit e retorna erro: o loop de
// reinício do processo reabre o reader a partir do último offset confirmado.
func (c *SnapshotConsumer) Run(ctx context.Context) error {
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
			return err
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			c.Log.Warn("kafka commit failed", zap.Error(err))
		}
	}
}

// handle ingere uma mensagem de snapshot. ack=true confirma o offset mesmo
// descartando o payload (malformado não tem conserto: o próximo tick do
// publisher corrige a visão); err != nil segura o offset para reentrega.
func (c *SnapshotConsumer) handle(ctx context.Context, value []byte) (ack bool, err error) {
	entries, ok := parseSnapshot(value)
	if !ok {
		c.Log.Warn("malformed snapshot dropped", zap.Int("bytes", len(value)))
		if c.OnError != nil {
			c.OnError("decode")
		}
		return true, nil
	}

	if err := c.Cache.Replace(ctx, entries); err != nil {
		c.Log.Warn("cache replace failed", zap.Error(err))
		if c.OnError != nil {
			c.OnError("cache")
		}
		return false, err
	}

	if c.OnReplaced != nil {
		c.OnReplaced(len(entries))
	}
	c.Log.Debug("snapshot ingested", zap.Int("events", len(entries)))
	return true, nil
}

func parseSnapshot(value []byte) ([]events.EventSnapshotEntry, bool) {
	var entries []events.EventSnapshotEntry
	if err := json.Unmarshal(value, &entries); err != nil {
		return nil, false
	}
	if entries == nil {
		entries = []events.EventSnapshotEntry{}
	}
	return entries, true
}
