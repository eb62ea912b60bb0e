package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/chiptally/chiptally/internal/ledger"
	"github.com/chiptally/chiptally/internal/models"
	"github.com/chiptally/chiptally/internal/registry"
)

// handleRoomMessage dispatches one inbound packet. Bets and takes run under
// the room's operation lock so that the ledger commit and the event publish
// form one critical section: events reach every other session in commit order,
// and the originator only ever gets the direct confirmation.
func (s *Server) handleRoomMessage(ctx context.Context, roomCode string, sess *registry.Session, packet inboundPacket) {
	switch packet.Type {
	case "bet":
		s.Registry.Do(roomCode, func() {
			res, err := s.Ledger.Bet(ctx, sess.User.ID, packet.Amount)
			if err != nil {
				// Failed operations stay private: no event is published.
				sess.Write(operationError(err))
				return
			}
			s.Cache.Invalidate(ctx, roomCode)
			sess.Write(registry.Message{
				"type":  "bet_ok",
				"pot":   res.Room.Pot,
				"chips": res.User.Chips,
			})
			s.Registry.Publish(roomCode, models.NewEvent(models.EventChipsBet, res.User, packet.Amount), sess.ID)
		})
	case "take":
		s.Registry.Do(roomCode, func() {
			res, err := s.Ledger.Take(ctx, sess.User.ID, packet.Amount)
			if err != nil {
				sess.Write(operationError(err))
				return
			}
			s.Cache.Invalidate(ctx, roomCode)
			sess.Write(registry.Message{
				"type":  "take_ok",
				"pot":   res.Room.Pot,
				"chips": res.User.Chips,
			})
			s.Registry.Publish(roomCode, models.NewEvent(models.EventChipsTaken, res.User, packet.Amount), sess.ID)
		})
	default:
		sess.WriteError("validation", fmt.Sprintf("unknown action type: %s", packet.Type))
	}
}

// operationError maps ledger errors onto the wire taxonomy.
func operationError(err error) registry.Message {
	code := "operation_failed"
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrBetBelowMinimum):
		code = "validation"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		code = "insufficient_funds"
	case errors.Is(err, ledger.ErrInsufficientPot):
		code = "insufficient_pot"
	case errors.Is(err, ledger.ErrUserNotFound), errors.Is(err, ledger.ErrRoomNotFound):
		code = "not_found"
	}
	return registry.Message{
		"type":    "error",
		"code":    code,
		"message": err.Error(),
	}
}
