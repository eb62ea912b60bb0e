package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/chiptally/chiptally/internal/models"
)

// Result carries the committed state after a transfer. The ledger is
// broadcast-agnostic; returning the actor and the new balances lets the caller
// construct the room event itself.
type Result struct {
	Room models.Room
	User models.User
}

// Store is the persistence boundary for rooms and users. MoveChips is the only
// mutation path for pot and chip balances; implementations must apply it
// atomically and serialized per room, so that
//
//	pot + sum(chips of users in the room) == sum(buy-ins granted)
//
// holds after every committed transfer.
type Store interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	CreateUser(ctx context.Context, user *models.User) error
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, roomID uuid.UUID) ([]models.User, error)

	// MoveChips moves amount chips from the user's balance into the room pot
	// (toPot true) or from the pot into the user's balance (toPot false),
	// within a single transaction. Both writes commit or neither does. It
	// fails with ErrInsufficientFunds or ErrInsufficientPot without mutating
	// anything, and with ErrConflict when a concurrent writer aborted the
	// transaction.
	MoveChips(ctx context.Context, userID uuid.UUID, amount int, toPot bool) (Result, error)
}
