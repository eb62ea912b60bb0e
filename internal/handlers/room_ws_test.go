package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiptally/chiptally/internal/ledger"
	"github.com/chiptally/chiptally/internal/models"
	"github.com/chiptally/chiptally/internal/registry"
)

func newJoinerSession(t *testing.T, store ledger.Store, roomCode, name string) *registry.Session {
	t.Helper()
	ctx := context.Background()

	room, err := store.GetRoomByCode(ctx, roomCode)
	require.NoError(t, err)
	user := &models.User{Name: name, Chips: room.BuyIn, RoomID: room.ID}
	require.NoError(t, store.CreateUser(ctx, user))

	return &registry.Session{ID: uuid.New(), User: *user, OutChan: make(chan registry.Message, 16)}
}

func TestSeedSnapshotReflectsPriorCommits(t *testing.T) {
	srv, store := newTestServer(t)
	code, alice, bob := seedRoomWithSessions(t, srv, store, 100)

	srv.handleRoomMessage(context.Background(), code, alice, inboundPacket{Type: "bet", Amount: 20})
	drainOne(t, alice)
	drainOne(t, bob)

	carol := newJoinerSession(t, store, code, "carol")
	require.NoError(t, srv.seedSession(context.Background(), code, carol))

	snap := drainOne(t, carol)
	require.Equal(t, "snapshot", snap["type"])
	room, ok := snap["room"].(models.Room)
	require.True(t, ok)
	assert.Equal(t, 20, room.Pot, "seed snapshot carries the committed pot")
	users, ok := snap["users"].([]models.User)
	require.True(t, ok)
	assert.Len(t, users, 3)

	// Existing sessions learn of the join; the joiner does not hear itself.
	joined := drainOne(t, alice)
	assert.Equal(t, "user_joined", joined["type"])
	drainOne(t, bob)
	assertEmpty(t, carol)

	// Commits after seeding reach the new session as events.
	srv.handleRoomMessage(context.Background(), code, alice, inboundPacket{Type: "bet", Amount: 10})
	drainOne(t, alice)
	drainOne(t, bob)
	ev := drainOne(t, carol)
	assert.Equal(t, "chips_bet", ev["type"])
	assert.Equal(t, 10, ev["amount"])
}

func TestSeedWaitsForInFlightOperation(t *testing.T) {
	srv, store := newTestServer(t)
	code, _, _ := seedRoomWithSessions(t, srv, store, 100)
	carol := newJoinerSession(t, store, code, "carol")

	hold := make(chan struct{})
	entered := make(chan struct{})
	go srv.Registry.Do(code, func() {
		close(entered)
		<-hold
	})
	<-entered

	seeded := make(chan struct{})
	go func() {
		assert.NoError(t, srv.seedSession(context.Background(), code, carol))
		close(seeded)
	}()

	select {
	case <-seeded:
		t.Fatal("seeding finished while a room operation was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(hold)
	select {
	case <-seeded:
	case <-time.After(time.Second):
		t.Fatal("seeding never finished")
	}

	snap := drainOne(t, carol)
	assert.Equal(t, "snapshot", snap["type"])
}

func TestSeedUnknownRoom(t *testing.T) {
	srv, _ := newTestServer(t)
	sess := &registry.Session{
		ID:      uuid.New(),
		User:    models.User{ID: uuid.New(), Name: "carol"},
		OutChan: make(chan registry.Message, 16),
	}

	err := srv.seedSession(context.Background(), "zzzzzz", sess)
	assert.ErrorIs(t, err, ledger.ErrRoomNotFound)
	assertEmpty(t, sess)
	assert.Empty(t, srv.Registry.Members("zzzzzz"))
}
