// Package mirror holds the client-side reflection of a room's state. The
// mirror never originates writes: the server ledger is authoritative and the
// mirror converges by folding events into a snapshot-seeded local copy.
package mirror

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chiptally/chiptally/internal/models"
)

// Tab enumerates the client's action selector modes.
type Tab string

const (
	TabBet  Tab = "bet"
	TabTake Tab = "take"
)

// FeedEntry is one line of the room activity feed.
type FeedEntry struct {
	Actor   models.User
	Message string
}

// Mirror tracks {pot, roster, feed, action tab} for one connected client.
// Apply is a pure fold over incoming events in arrival order; because the
// ledger already serialized the authoritative mutation, the mirror converges
// as long as every event is eventually delivered.
type Mirror struct {
	SelfID uuid.UUID
	Pot    int
	Roster []models.User
	Feed   []FeedEntry
	Tab    Tab
}

// New seeds a mirror from a snapshot read of the room and its users.
func New(selfID uuid.UUID, snap models.Snapshot) *Mirror {
	roster := make([]models.User, len(snap.Users))
	copy(roster, snap.Users)
	return &Mirror{
		SelfID: selfID,
		Pot:    snap.Room.Pot,
		Roster: roster,
		Tab:    TabBet,
	}
}

// Apply folds one incoming event into the mirror. The actor in a bet or take
// event carries the post-commit balance, and the mirror reconciles by moving
// the roster to that balance instead of re-deriving it: a transfer the roster
// already shows (the direct confirmation, or a looped-back duplicate) is a
// no-op, while the same user's action from another session still lands.
func (m *Mirror) Apply(ev models.Event) {
	switch ev.Kind {
	case models.EventUserJoined:
		if m.find(ev.Actor.ID) < 0 {
			m.Roster = append(m.Roster, ev.Actor)
			m.appendFeed(ev.Actor, fmt.Sprintf("%s joined the room", ev.Actor.Name))
		}
	case models.EventChipsBet:
		if !m.reconcile(ev.Actor) {
			return
		}
		m.Pot += ev.Amount
		m.appendFeed(ev.Actor, fmt.Sprintf("%s bet %d chips", ev.Actor.Name, ev.Amount))
	case models.EventChipsTaken:
		if !m.reconcile(ev.Actor) {
			return
		}
		m.Pot -= ev.Amount
		m.appendFeed(ev.Actor, fmt.Sprintf("%s has taken %d chips", ev.Actor.Name, ev.Amount))
		// Taking resets the action selector, matching the room UI behavior.
		m.Tab = TabBet
	}
}

// reconcile moves the actor's roster balance to the post-commit value the
// event carries. It reports false when the roster already shows that value,
// which means the transfer was applied before and must not count twice. An
// actor missing from the roster is adopted, covering a lost join notice.
func (m *Mirror) reconcile(actor models.User) bool {
	i := m.find(actor.ID)
	if i < 0 {
		m.Roster = append(m.Roster, actor)
		return true
	}
	if m.Roster[i].Chips == actor.Chips {
		return false
	}
	m.Roster[i].Chips = actor.Chips
	return true
}

// ApplyLocal applies the ledger's direct response to the mirror's own bet or
// take. The requester does not wait for a broadcast; it trusts the confirmed
// result, which carries the authoritative new balances.
func (m *Mirror) ApplyLocal(kind models.EventKind, amount, newPot, newChips int) {
	self := models.User{ID: m.SelfID}
	if i := m.find(m.SelfID); i >= 0 {
		m.Roster[i].Chips = newChips
		self = m.Roster[i]
	}
	m.Pot = newPot

	switch kind {
	case models.EventChipsBet:
		m.appendFeed(self, fmt.Sprintf("%s bet %d chips", self.Name, amount))
	case models.EventChipsTaken:
		m.appendFeed(self, fmt.Sprintf("%s has taken %d chips", self.Name, amount))
		m.Tab = TabBet
	}
}

// Chips returns the mirror's own balance.
func (m *Mirror) Chips() int {
	if i := m.find(m.SelfID); i >= 0 {
		return m.Roster[i].Chips
	}
	return 0
}

func (m *Mirror) appendFeed(actor models.User, msg string) {
	m.Feed = append(m.Feed, FeedEntry{Actor: actor, Message: msg})
}

func (m *Mirror) find(id uuid.UUID) int {
	for i := range m.Roster {
		if m.Roster[i].ID == id {
			return i
		}
	}
	return -1
}
