package registry

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/chiptally/chiptally/internal/models"
)

// Message is a single outbound wire frame for one session.
type Message map[string]interface{}

// Session is one live connection between a user and a room. Ephemeral: created
// on connect, destroyed on disconnect, never persisted.
type Session struct {
	ID      uuid.UUID
	User    models.User
	Cancel  context.CancelFunc
	OutChan chan Message
}

// Write pushes msg onto the session's out channel without blocking. A full
// channel drops the message; delivery is best-effort and a slow recipient
// only loses its own copy. The channel is never closed, its consumer stops
// through the session context instead.
func (s *Session) Write(msg Message) {
	select {
	case s.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Warnf("session %s: out channel full, dropped %q message", s.ID, msgType)
	}
}

// WriteError is a convenience to send a structured error to this session only.
func (s *Session) WriteError(code, msg string) {
	s.Write(Message{
		"type":    "error",
		"code":    code,
		"message": msg,
	})
}

// eventMessage converts a typed room event into its wire frame.
func eventMessage(ev models.Event) Message {
	return Message{
		"type":   string(ev.Kind),
		"actor":  ev.Actor,
		"amount": ev.Amount,
		"ts":     ev.Ts,
	}
}
