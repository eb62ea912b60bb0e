package ledger_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiptally/chiptally/internal/database"
	"github.com/chiptally/chiptally/internal/ledger"
	"github.com/chiptally/chiptally/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// seedRoom creates a room with the given buy-in and n users.
func seedRoom(t *testing.T, store *database.MemoryStore, buyIn, n int) (models.Room, []models.User) {
	t.Helper()
	ctx := context.Background()

	room := models.Room{RoomCode: "abc123", BuyIn: buyIn}
	require.NoError(t, store.CreateRoom(ctx, &room))

	users := make([]models.User, n)
	for i := range users {
		users[i] = models.User{Name: "player", Chips: buyIn, RoomID: room.ID}
		require.NoError(t, store.CreateUser(ctx, &users[i]))
	}
	return room, users
}

// assertConserved checks the zero-sum invariant: pot plus all balances equals
// the total buy-ins granted.
func assertConserved(t *testing.T, store *database.MemoryStore, roomID uuid.UUID, total int) {
	t.Helper()
	ctx := context.Background()

	room, err := store.GetRoom(ctx, roomID)
	require.NoError(t, err)
	users, err := store.ListUsers(ctx, roomID)
	require.NoError(t, err)

	sum := room.Pot
	for _, u := range users {
		sum += u.Chips
	}
	assert.Equal(t, total, sum, "pot + chips must equal total buy-ins")
}

func TestBetAndTakeConserveChips(t *testing.T) {
	store := database.NewMemoryStore()
	room, users := seedRoom(t, store, 100, 3)
	svc := ledger.NewService(store, quietLogger())
	ctx := context.Background()

	ops := []struct {
		user   int
		amount int
		bet    bool
	}{
		{0, 20, true},
		{1, 50, true},
		{2, 5, true},
		{0, 30, false},
		{2, 95, true},
		{1, 45, false},
	}
	for _, op := range ops {
		var err error
		if op.bet {
			_, err = svc.Bet(ctx, users[op.user].ID, op.amount)
		} else {
			_, err = svc.Take(ctx, users[op.user].ID, op.amount)
		}
		require.NoError(t, err)
		assertConserved(t, store, room.ID, 300)
	}
}

func TestBetValidation(t *testing.T) {
	store := database.NewMemoryStore()
	room, users := seedRoom(t, store, 100, 1)
	svc := ledger.NewService(store, quietLogger())
	ctx := context.Background()

	_, err := svc.Bet(ctx, users[0].ID, 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = svc.Bet(ctx, users[0].ID, -5)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = svc.Bet(ctx, users[0].ID, 4)
	assert.ErrorIs(t, err, ledger.ErrBetBelowMinimum)

	// Rejected bets leave the ledger untouched.
	got, err := store.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Pot)
	u, err := store.GetUser(ctx, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 100, u.Chips)

	res, err := svc.Bet(ctx, users[0].ID, ledger.MinBet)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Room.Pot)
	assert.Equal(t, 95, res.User.Chips)
}

func TestTakeValidation(t *testing.T) {
	store := database.NewMemoryStore()
	_, users := seedRoom(t, store, 100, 1)
	svc := ledger.NewService(store, quietLogger())
	ctx := context.Background()

	_, err := svc.Take(ctx, users[0].ID, 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = svc.Take(ctx, users[0].ID, -1)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestBetInsufficientFundsLeavesStateUnchanged(t *testing.T) {
	store := database.NewMemoryStore()
	room, users := seedRoom(t, store, 50, 2)
	svc := ledger.NewService(store, quietLogger())
	ctx := context.Background()

	_, err := svc.Bet(ctx, users[0].ID, 51)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	got, err := store.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Pot)
	u, err := store.GetUser(ctx, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 50, u.Chips)
}

func TestTakeBoundary(t *testing.T) {
	store := database.NewMemoryStore()
	room, users := seedRoom(t, store, 100, 1)
	svc := ledger.NewService(store, quietLogger())
	ctx := context.Background()

	_, err := svc.Bet(ctx, users[0].ID, 40)
	require.NoError(t, err)

	// One more than the pot fails and changes nothing.
	_, err = svc.Take(ctx, users[0].ID, 41)
	assert.ErrorIs(t, err, ledger.ErrInsufficientPot)
	got, err := store.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Pot)

	// Exactly the pot empties it.
	res, err := svc.Take(ctx, users[0].ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Room.Pot)
	assert.Equal(t, 100, res.User.Chips)
}

func TestBetThenTakeRoundTrip(t *testing.T) {
	store := database.NewMemoryStore()
	room, users := seedRoom(t, store, 200, 2)
	svc := ledger.NewService(store, quietLogger())
	ctx := context.Background()

	for _, n := range []int{5, 7, 100, 200} {
		_, err := svc.Bet(ctx, users[0].ID, n)
		require.NoError(t, err)
		_, err = svc.Take(ctx, users[0].ID, n)
		require.NoError(t, err)

		got, err := store.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Pot)
		u, err := store.GetUser(ctx, users[0].ID)
		require.NoError(t, err)
		assert.Equal(t, 200, u.Chips)
	}
}

func TestConcurrentBetsNeverOverdraw(t *testing.T) {
	store := database.NewMemoryStore()
	room, users := seedRoom(t, store, 10, 1)
	svc := ledger.NewService(store, quietLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Bet(ctx, users[0].ID, 10)
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
			failures++
		}
	}
	assert.Equal(t, 1, failures, "exactly one of two identical bets must fail")

	u, err := store.GetUser(ctx, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Chips, "balance must never go negative")
	assertConserved(t, store, room.ID, 10)
}

func TestUnknownUser(t *testing.T) {
	store := database.NewMemoryStore()
	seedRoom(t, store, 100, 1)
	svc := ledger.NewService(store, quietLogger())

	_, err := svc.Bet(context.Background(), uuid.New(), 10)
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
}

// conflictStore fails MoveChips with ErrConflict a fixed number of times
// before delegating to the real store.
type conflictStore struct {
	*database.MemoryStore
	mu        sync.Mutex
	conflicts int
}

func (c *conflictStore) MoveChips(ctx context.Context, userID uuid.UUID, amount int, toPot bool) (ledger.Result, error) {
	c.mu.Lock()
	fail := c.conflicts > 0
	if fail {
		c.conflicts--
	}
	c.mu.Unlock()
	if fail {
		return ledger.Result{}, ledger.ErrConflict
	}
	return c.MemoryStore.MoveChips(ctx, userID, amount, toPot)
}

func TestConflictsAreRetried(t *testing.T) {
	mem := database.NewMemoryStore()
	_, users := seedRoom(t, mem, 100, 1)

	store := &conflictStore{MemoryStore: mem, conflicts: 2}
	svc := ledger.NewService(store, quietLogger())

	res, err := svc.Bet(context.Background(), users[0].ID, 10)
	require.NoError(t, err, "two conflicts fit inside the retry budget")
	assert.Equal(t, 10, res.Room.Pot)
}

func TestConflictsExhaustRetries(t *testing.T) {
	mem := database.NewMemoryStore()
	_, users := seedRoom(t, mem, 100, 1)

	store := &conflictStore{MemoryStore: mem, conflicts: 1000}
	svc := ledger.NewService(store, quietLogger())

	_, err := svc.Bet(context.Background(), users[0].ID, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrOperationFailed)
	assert.False(t, errors.Is(err, ledger.ErrConflict), "internal conflicts must not leak to callers")
}
