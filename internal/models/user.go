package models

import "github.com/google/uuid"

// User belongs to exactly one room for its lifetime. Chips starts at the
// room's buy-in and is only mutated by the ledger.
type User struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Chips  int       `json:"chips"`
	RoomID uuid.UUID `json:"roomId"`
}
