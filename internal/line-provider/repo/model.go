package repo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/betcore/line-platform/pkg/contracts/events"
)

// Event é o registro persistido da linha (fonte de verdade do provedor).
type Event struct {
	ID        int64
	Odds      decimal.Decimal
	Deadline  int64 // unix timestamp limite para apostas
	Status    events.EventStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusOutboxEntry é uma linha pendente da outbox de atualizações de status.
// Gravada na mesma transação da transição; o dispatcher publica e marca como enviada.
type StatusOutboxEntry struct {
	ID        int64
	EventID   int64
	NewStatus events.EventStatus
	Attempts  int
	CreatedAt time.Time
}
