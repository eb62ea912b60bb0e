package models

import "time"

// EventKind enumerates the closed set of room-scoped event variants.
type EventKind string

const (
	EventUserJoined EventKind = "user_joined"
	EventChipsBet   EventKind = "chips_bet"
	EventChipsTaken EventKind = "chips_taken"
)

// Event is an ephemeral room-scoped message. It is delivered at most once to
// each live session and never persisted; a session that is offline at publish
// time simply misses it.
type Event struct {
	Kind   EventKind `json:"type"`
	Actor  User      `json:"actor"`
	Amount int       `json:"amount,omitempty"`
	Ts     int64     `json:"ts"`
}

// NewEvent stamps an event with the current time in unix milliseconds.
func NewEvent(kind EventKind, actor User, amount int) Event {
	return Event{Kind: kind, Actor: actor, Amount: amount, Ts: time.Now().UnixMilli()}
}

// Snapshot is the room state a session receives at connect time, read straight
// from the ledger store rather than reconstructed from past events.
type Snapshot struct {
	Room  Room   `json:"room"`
	Users []User `json:"users"`
}
