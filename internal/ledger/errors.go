package ledger

import "errors"

// MinBet is the smallest bet unit the ledger accepts.
const MinBet = 5

var (
	// ErrInvalidAmount rejects non-positive amounts before the store is touched.
	ErrInvalidAmount = errors.New("amount must be a positive integer")

	// ErrBetBelowMinimum rejects bets smaller than MinBet.
	ErrBetBelowMinimum = errors.New("bet must be at least 5")

	ErrInsufficientFunds = errors.New("not enough chips")
	ErrInsufficientPot   = errors.New("not enough chips in pot")

	ErrUserNotFound = errors.New("user not found")
	ErrRoomNotFound = errors.New("room not found")

	// ErrConflict is returned by a Store when a concurrent writer forced the
	// transaction to abort. The service retries these with the same inputs.
	ErrConflict = errors.New("transaction conflict")

	// ErrOperationFailed is surfaced to the caller once retries are exhausted.
	ErrOperationFailed = errors.New("operation failed")
)
