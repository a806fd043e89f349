package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/betcore/line-platform/pkg/contracts/events"
)

// BetStatus representa o estado de uma aposta no ledger.
type BetStatus string

const (
	BetPending BetStatus = "PENDING" // evento ainda não resolvido
	BetWon     BetStatus = "WON"
	BetLost    BetStatus = "LOST"
)

// Terminal informa se o status é absorvente: WON/LOST nunca mudam,
// mesmo chegando mensagens duplicadas ou fora de ordem.
func (s BetStatus) Terminal() bool {
	return s == BetWon || s == BetLost
}

// Bet é uma aposta persistida. O id da aposta é o id do evento alvo:
// uma aposta por evento, por construção.
type Bet struct {
	ID        int64
	Amount    decimal.Decimal
	Status    BetStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateAmount aplica as regras de valor da aposta: positivo e com no
// máximo 2 casas decimais.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrAmountNotPositive
	}
	if !amount.Equal(amount.Truncate(2)) {
		return ErrAmountPrecision
	}
	return nil
}

// OutcomeFor traduz o vocabulário de status do produtor para o resultado da
// aposta. Mapeamento total: rótulo desconhecido (ou ainda aberto) retorna
// ok=false e o chamador trata como no-op, nunca como pânico.
func OutcomeFor(status events.EventStatus) (BetStatus, bool) {
	switch status {
	case events.EventTeamAWon:
		return BetWon, true
	case events.EventTeamBWon:
		return BetLost, true
	}
	return "", false
}
