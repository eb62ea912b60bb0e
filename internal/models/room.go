package models

import "github.com/google/uuid"

// Room represents a row in the rooms table. RoomCode is the short code players
// share to join; Pot is only ever mutated by the ledger's Bet and Take
// operations.
type Room struct {
	ID       uuid.UUID `json:"id"`
	RoomCode string    `json:"roomCode"`
	BuyIn    int       `json:"buyIn"`
	Pot      int       `json:"pot"`
}
