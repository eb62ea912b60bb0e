package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service exposes the two state-changing ledger operations. Each call runs as
// an isolated atomic unit of work against the Store; a failed call leaves the
// ledger untouched. Conflicting commits are retried a bounded number of times
// with the same inputs before surfacing ErrOperationFailed.
type Service struct {
	store Store
	log   *logrus.Logger

	maxRetries int
	// timeout bounds each attempt so a stuck commit surfaces an error to the
	// caller instead of hanging.
	timeout time.Duration
}

func NewService(store Store, log *logrus.Logger) *Service {
	return &Service{
		store:      store,
		log:        log,
		maxRetries: 3,
		timeout:    5 * time.Second,
	}
}

// Bet moves amount chips from the user's balance into their room's pot.
func (s *Service) Bet(ctx context.Context, userID uuid.UUID, amount int) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	if amount < MinBet {
		return Result{}, ErrBetBelowMinimum
	}
	return s.move(ctx, userID, amount, true)
}

// Take moves amount chips from the room's pot into the user's balance.
func (s *Service) Take(ctx context.Context, userID uuid.UUID, amount int) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	return s.move(ctx, userID, amount, false)
}

func (s *Service) move(ctx context.Context, userID uuid.UUID, amount int, toPot bool) (Result, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		res, err := s.store.MoveChips(attemptCtx, userID, amount, toPot)
		cancel()
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrConflict) {
			return Result{}, err
		}
		lastErr = err
		s.log.Warnf("ledger: commit conflict for user %s (attempt %d), retrying", userID, attempt+1)
	}
	s.log.Errorf("ledger: giving up on transfer for user %s after %d conflicts: %v", userID, s.maxRetries+1, lastErr)
	return Result{}, ErrOperationFailed
}
