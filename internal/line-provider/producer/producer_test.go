package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/betcore/line-platform/internal/line-provider/repo"
	"github.com/betcore/line-platform/pkg/contracts/events"
)

// memWriter grava mensagens em memória e pode falhar as N primeiras escritas.
type memWriter struct {
	msgs     []kafka.Message
	failNext int
}

func (w *memWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.failNext > 0 {
		w.failNext--
		return errors.New("broker unavailable")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

type memEvents struct {
	evs []repo.Event
	err error
}

func (m *memEvents) List(ctx context.Context) ([]repo.Event, error) {
	return m.evs, m.err
}

// memOutbox implementa OutboxStore em memória.
type memOutbox struct {
	entries []repo.StatusOutboxEntry
	sent    []int64
}

func (m *memOutbox) UnsentStatusUpdates(ctx context.Context, limit int) ([]repo.StatusOutboxEntry, error) {
	return m.entries, nil
}

func (m *memOutbox) MarkStatusSent(ctx context.Context, outboxID int64) error {
	m.sent = append(m.sent, outboxID)
	return nil
}

func (m *memOutbox) MarkStatusFailed(ctx context.Context, outboxID int64) error {
	for i := range m.entries {
		if m.entries[i].ID == outboxID {
			m.entries[i].Attempts++
		}
	}
	return nil
}

func TestBuildSnapshot(t *testing.T) {
	payload, err := buildSnapshot([]repo.Event{{
		ID:       1,
		Odds:     decimal.RequireFromString("1.85"),
		Deadline: 1_700_000_000,
		Status:   events.EventOpen,
	}})
	if err != nil {
		t.Fatalf("buildSnapshot() error = %v", err)
	}

	var entries []events.EventSnapshotEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		t.Fatalf("payload is not a JSON array: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %v", entries)
	}
	e := entries[0]
	if e.ID != 1 || e.Odds != "1.85" || e.Deadline != 1_700_000_000 || e.Status != events.EventOpen {
		t.Errorf("entry = %+v", e)
	}
}

func TestBuildSnapshot_EmptyLineIsEmptyArray(t *testing.T) {
	payload, err := buildSnapshot(nil)
	if err != nil {
		t.Fatalf("buildSnapshot(nil) error = %v", err)
	}
	// o consumidor faz replace total, então "null" apagaria a semântica
	if string(payload) != "[]" {
		t.Errorf("empty snapshot = %s, want []", payload)
	}
}

func TestSnapshotPublisher_PublishOnce(t *testing.T) {
	w := &memWriter{}
	var published int
	p := &SnapshotPublisher{
		Log:         zap.NewNop(),
		Events:      &memEvents{evs: []repo.Event{{ID: 1, Odds: decimal.New(2, 0), Status: events.EventOpen}}},
		Writer:      w,
		OnPublished: func(count int) { published = count },
	}

	p.publishOnce(context.Background())

	if len(w.msgs) != 1 {
		t.Fatalf("messages written = %d, want 1", len(w.msgs))
	}
	if published != 1 {
		t.Errorf("OnPublished count = %d, want 1", published)
	}
}

func TestSnapshotPublisher_DBFailureSkipsTick(t *testing.T) {
	w := &memWriter{}
	var stage string
	p := &SnapshotPublisher{
		Log:     zap.NewNop(),
		Events:  &memEvents{err: errors.New("pg down")},
		Writer:  w,
		OnError: func(s string) { stage = s },
	}

	p.publishOnce(context.Background())

	if len(w.msgs) != 0 {
		t.Errorf("no message should be written on db failure, got %d", len(w.msgs))
	}
	if stage != "db" {
		t.Errorf("error stage = %q, want db", stage)
	}
}

func TestDispatcher_PublishesAndMarksSent(t *testing.T) {
	w := &memWriter{}
	outbox := &memOutbox{entries: []repo.StatusOutboxEntry{
		{ID: 10, EventID: 1, NewStatus: events.EventTeamAWon},
		{ID: 11, EventID: 2, NewStatus: events.EventTeamBWon},
	}}
	var published int
	d := &Dispatcher{
		Log:         zap.NewNop(),
		Outbox:      outbox,
		Writer:      w,
		OnPublished: func() { published++ },
	}

	d.dispatchPending(context.Background())

	if len(w.msgs) != 2 || published != 2 {
		t.Fatalf("published %d messages, %d callbacks; want 2/2", len(w.msgs), published)
	}
	if len(outbox.sent) != 2 || outbox.sent[0] != 10 || outbox.sent[1] != 11 {
		t.Errorf("marked sent = %v, want [10 11]", outbox.sent)
	}

	var upd events.StatusUpdate
	if err := json.Unmarshal(w.msgs[0].Value, &upd); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if upd.EventID != 1 || upd.NewStatus != events.EventTeamAWon {
		t.Errorf("update = %+v", upd)
	}
	if string(w.msgs[0].Key) != "1" {
		t.Errorf("message key = %s, want event id", w.msgs[0].Key)
	}
}

func TestDispatcher_RetriesWithinSweep(t *testing.T) {
	// as duas primeiras escritas falham, a terceira entra
	w := &memWriter{failNext: 2}
	outbox := &memOutbox{entries: []repo.StatusOutboxEntry{
		{ID: 10, EventID: 1, NewStatus: events.EventTeamAWon},
	}}
	d := &Dispatcher{Log: zap.NewNop(), Outbox: outbox, Writer: w, MaxRetries: 3}

	d.dispatchPending(context.Background())

	if len(w.msgs) != 1 {
		t.Fatalf("messages written = %d, want 1", len(w.msgs))
	}
	if len(outbox.sent) != 1 {
		t.Errorf("entry should be marked sent after retry, got %v", outbox.sent)
	}
}

func TestDispatcher_FailedEntryStaysInOutbox(t *testing.T) {
	w := &memWriter{failNext: 10}
	outbox := &memOutbox{entries: []repo.StatusOutboxEntry{
		{ID: 10, EventID: 1, NewStatus: events.EventTeamAWon},
	}}
	var stuck int
	d := &Dispatcher{
		Log:           zap.NewNop(),
		Outbox:        outbox,
		Writer:        w,
		MaxRetries:    2,
		EscalateAfter: 3,
		OnStuck:       func() { stuck++ },
	}

	d.dispatchPending(context.Background())

	if len(outbox.sent) != 0 {
		t.Errorf("failed entry must not be marked sent, got %v", outbox.sent)
	}
	if outbox.entries[0].Attempts != 1 {
		t.Errorf("attempts = %d, want 1", outbox.entries[0].Attempts)
	}
	if stuck != 0 {
		t.Errorf("entry escalated too early")
	}

	// varreduras seguintes acumulam tentativas até o alerta
	d.dispatchPending(context.Background())
	d.dispatchPending(context.Background())
	if stuck != 1 {
		t.Errorf("stuck callbacks = %d, want 1 after reaching the limit", stuck)
	}
	if outbox.entries[0].Attempts != 3 {
		t.Errorf("attempts = %d, want 3", outbox.entries[0].Attempts)
	}

	// a mesma entrada não dispara alerta de novo a cada varredura
	d.dispatchPending(context.Background())
	if stuck != 1 {
		t.Errorf("stuck callbacks = %d, want still 1 past the limit", stuck)
	}
}
