package bet

import "errors"

// Erros de negócio de um mercado. Toda chamada rejeitada não altera estado.
var (
	ErrInvalidConfiguration   = errors.New("invalid configuration")
	ErrMarketClosed           = errors.New("market closed")
	ErrStakeTooSmall          = errors.New("stake below minimum")
	ErrInvalidOutcome         = errors.New("invalid outcome")
	ErrInsufficientCollateral = errors.New("insufficient collateral")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrAlreadyClosed          = errors.New("market already closed")
	ErrAlreadyWagered         = errors.New("participant already wagered")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrNotSettling            = errors.New("market is not settling")
)
