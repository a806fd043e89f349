package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/betcore/line-platform/internal/line-provider/repo"
	"github.com/betcore/line-platform/pkg/contracts/events"
)

// EventSource abstrai a leitura do conjunto completo de eventos.
type EventSource interface {
	List(ctx context.Context) ([]repo.Event, error)
}

// MessageWriter é o subconjunto do writer Kafka usado pelos publishers.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// SnapshotPublisher publica periodicamente o snapshot completo da linha.
// Cada mensagem é um full replace: falha de publicação é logada e corrigida
// pelo próximo tick, sem retry dentro do mesmo tick.
type SnapshotPublisher struct {
	Log      *zap.Logger
	Events   EventSource
	Writer   MessageWriter
	Interval time.Duration

	OnPublished func(count int) // métricas
	OnError     func(stage string)
}

// Run publica um snapshot imediatamente e depois a cada intervalo, até o
// contexto ser cancelado.
func (p *SnapshotPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.publishOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			p.Log.Info("snapshot publisher stopped")
			return
		case <-ticker.C:
			p.publishOnce(ctx)
		}
	}
}

func (p *SnapshotPublisher) publishOnce(ctx context.Context) {
	evs, err := p.Events.List(ctx)
	if err != nil {
		p.Log.Warn("snapshot db read failed", zap.Error(err))
		if p.OnError != nil {
			p.OnError("db")
		}
		return
	}

	payload, err := buildSnapshot(evs)
	if err != nil {
		p.Log.Error("snapshot marshal failed", zap.Error(err))
		if p.OnError != nil {
			p.OnError("encode")
		}
		return
	}

	msg := kafka.Message{
		Key:   []byte("events"),
		Value: payload,
		Time:  time.Now(),
	}
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		p.Log.Warn("snapshot publish failed, will retry next tick", zap.Error(err))
		if p.OnError != nil {
			p.OnError("publish")
		}
		return
	}

	if p.OnPublished != nil {
		p.OnPublished(len(evs))
	}
	p.Log.Debug("snapshot published", zap.Int("events", len(evs)))
}

// buildSnapshot serializa a projeção de fio do snapshot.
// Linha vazia vira "[]", nunca null — o consumidor faz replace total.
func buildSnapshot(evs []repo.Event) ([]byte, error) {
	entries := make([]events.EventSnapshotEntry, 0, len(evs))
	for _, e := range evs {
		entries = append(entries, events.EventSnapshotEntry{
			ID:       e.ID,
			Odds:     e.Odds.String(),
			Deadline: e.Deadline,
			Status:   e.Status,
		})
	}
	return json.Marshal(entries)
}
