package domain

import "errors"

// Erros sentinela do fluxo de admissão; comparar com errors.Is().
var (
	// ErrAmountNotPositive: valor da aposta zero ou negativo.
	ErrAmountNotPositive = errors.New("bet amount must be positive")

	// ErrAmountPrecision: valor com mais de 2 casas decimais.
	ErrAmountPrecision = errors.New("bet amount must have at most 2 decimal places")

	// ErrEventNotFound: o evento não está no snapshot corrente do cache.
	ErrEventNotFound = errors.New("event not found")

	// ErrBettingClosed: o evento já foi resolvido na visão do cache.
	ErrBettingClosed = errors.New("betting closed")

	// ErrDeadlinePassed: o deadline do evento já passou.
	ErrDeadlinePassed = errors.New("deadline passed")

	// ErrDuplicateBet: já existe aposta com esse id no ledger.
	ErrDuplicateBet = errors.New("duplicate bet")

	// ErrBetNotFound: aposta inexistente no ledger.
	ErrBetNotFound = errors.New("bet not found")
)

// IsInvalid cobre entradas malformadas do chamador (HTTP 400, nunca retentado).
func IsInvalid(err error) bool {
	return errors.Is(err, ErrAmountNotPositive) || errors.Is(err, ErrAmountPrecision)
}

// IsNotFound cobre entidades ausentes (HTTP 404).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) || errors.Is(err, ErrBetNotFound)
}

// IsConflict cobre violações de regra de negócio: evento fechado, deadline
// vencido ou aposta duplicada (HTTP 409).
func IsConflict(err error) bool {
	return errors.Is(err, ErrBettingClosed) ||
		errors.Is(err, ErrDeadlinePassed) ||
		errors.Is(err, ErrDuplicateBet)
}
