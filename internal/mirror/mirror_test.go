package mirror

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiptally/chiptally/internal/models"
)

func seed() (*Mirror, models.User, models.User) {
	self := models.User{ID: uuid.New(), Name: "alice", Chips: 100}
	other := models.User{ID: uuid.New(), Name: "bob", Chips: 100}
	snap := models.Snapshot{
		Room:  models.Room{ID: uuid.New(), RoomCode: "abc123", BuyIn: 100, Pot: 0},
		Users: []models.User{self, other},
	}
	return New(self.ID, snap), self, other
}

func TestSeededFromSnapshot(t *testing.T) {
	m, _, _ := seed()
	assert.Equal(t, 0, m.Pot)
	assert.Len(t, m.Roster, 2)
	assert.Equal(t, 100, m.Chips())
	assert.Equal(t, TabBet, m.Tab)
	assert.Empty(t, m.Feed)
}

func TestUserJoinedIsIdempotent(t *testing.T) {
	m, _, _ := seed()
	carol := models.User{ID: uuid.New(), Name: "carol", Chips: 100}

	m.Apply(models.NewEvent(models.EventUserJoined, carol, 0))
	require.Len(t, m.Roster, 3)
	require.Len(t, m.Feed, 1)
	assert.Equal(t, "carol joined the room", m.Feed[0].Message)

	// A duplicate join notice changes nothing.
	m.Apply(models.NewEvent(models.EventUserJoined, carol, 0))
	assert.Len(t, m.Roster, 3)
	assert.Len(t, m.Feed, 1)
}

// after returns a copy of u carrying the post-commit balance, the way the
// server stamps the actor into published events.
func after(u models.User, chips int) models.User {
	u.Chips = chips
	return u
}

func TestChipsBetFromOther(t *testing.T) {
	m, _, other := seed()

	m.Apply(models.NewEvent(models.EventChipsBet, after(other, 70), 30))

	assert.Equal(t, 30, m.Pot)
	assert.Equal(t, 70, m.Roster[1].Chips)
	assert.Equal(t, 100, m.Chips(), "own balance is untouched by others' bets")
	require.Len(t, m.Feed, 1)
	assert.Equal(t, "bob bet 30 chips", m.Feed[0].Message)
}

func TestChipsTakenFromOtherResetsTab(t *testing.T) {
	m, _, other := seed()
	m.Apply(models.NewEvent(models.EventChipsBet, after(other, 70), 30))
	m.Tab = TabTake

	m.Apply(models.NewEvent(models.EventChipsTaken, after(other, 80), 10))

	assert.Equal(t, 20, m.Pot)
	assert.Equal(t, 80, m.Roster[1].Chips)
	assert.Equal(t, TabBet, m.Tab, "a take switches the action selector back to bet")
	assert.Equal(t, "bob has taken 10 chips", m.Feed[1].Message)
}

func TestDuplicateDeliveryIsIdempotent(t *testing.T) {
	m, _, other := seed()
	ev := models.NewEvent(models.EventChipsBet, after(other, 70), 30)

	m.Apply(ev)
	m.Apply(ev)

	assert.Equal(t, 30, m.Pot)
	assert.Equal(t, 70, m.Roster[1].Chips)
	assert.Len(t, m.Feed, 1)
}

func TestOwnEchoIsIgnoredAfterApplyLocal(t *testing.T) {
	m, self, _ := seed()

	m.ApplyLocal(models.EventChipsBet, 25, 25, 75)
	assert.Equal(t, 25, m.Pot)
	assert.Equal(t, 75, m.Chips())
	require.Len(t, m.Feed, 1)
	assert.Equal(t, "alice bet 25 chips", m.Feed[0].Message)

	// The transport looping our own event back must not double-apply it.
	m.Apply(models.NewEvent(models.EventChipsBet, after(self, 75), 25))
	assert.Equal(t, 25, m.Pot)
	assert.Equal(t, 75, m.Chips())
	assert.Len(t, m.Feed, 1)
}

func TestOwnActionFromSecondSessionApplies(t *testing.T) {
	// The same user connected twice: session A bets, session B never called
	// ApplyLocal, so the broadcast is news to it and must land.
	m, self, _ := seed()

	m.Apply(models.NewEvent(models.EventChipsBet, after(self, 80), 20))

	assert.Equal(t, 20, m.Pot)
	assert.Equal(t, 80, m.Chips())
	require.Len(t, m.Feed, 1)
	assert.Equal(t, "alice bet 20 chips", m.Feed[0].Message)

	m.Tab = TabTake
	m.Apply(models.NewEvent(models.EventChipsTaken, after(self, 90), 10))
	assert.Equal(t, 10, m.Pot)
	assert.Equal(t, 90, m.Chips())
	assert.Equal(t, TabBet, m.Tab)
}

func TestApplyLocalTakeResetsTab(t *testing.T) {
	m, _, _ := seed()
	m.ApplyLocal(models.EventChipsBet, 25, 25, 75)
	m.Tab = TabTake

	m.ApplyLocal(models.EventChipsTaken, 25, 0, 100)

	assert.Equal(t, 0, m.Pot)
	assert.Equal(t, 100, m.Chips())
	assert.Equal(t, TabBet, m.Tab)
	assert.Equal(t, "alice has taken 25 chips", m.Feed[1].Message)
}

func TestMirrorsConvergeOnSameEventStream(t *testing.T) {
	alice := models.User{ID: uuid.New(), Name: "alice", Chips: 100}
	bob := models.User{ID: uuid.New(), Name: "bob", Chips: 100}
	snap := models.Snapshot{
		Room:  models.Room{RoomCode: "abc123", BuyIn: 100, Pot: 0},
		Users: []models.User{alice, bob},
	}

	// Two observers, neither the actor of any event, fold the same stream.
	m1 := New(uuid.New(), snap)
	m2 := New(uuid.New(), snap)

	events := []models.Event{
		models.NewEvent(models.EventChipsBet, after(alice, 50), 50),
		models.NewEvent(models.EventChipsTaken, after(bob, 120), 20),
		models.NewEvent(models.EventChipsBet, after(bob, 110), 10),
	}
	for _, ev := range events {
		m1.Apply(ev)
		m2.Apply(ev)
	}

	assert.Equal(t, m1.Pot, m2.Pot)
	assert.Equal(t, m1.Roster, m2.Roster)
	assert.Equal(t, 40, m1.Pot)
	assert.Equal(t, 50, m1.Roster[0].Chips)
	assert.Equal(t, 110, m1.Roster[1].Chips)
}
