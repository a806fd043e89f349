package dto

import "github.com/shopspring/decimal"

type PlaceBetRequest struct {
	ID     int64           `json:"id"`     // id do evento alvo (vira o id da aposta)
	Amount decimal.Decimal `json:"amount"` // positivo, até 2 casas decimais
}
