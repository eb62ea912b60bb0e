package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/chiptally/chiptally/internal/auth"
	"github.com/chiptally/chiptally/internal/models"
	"github.com/chiptally/chiptally/internal/registry"
)

// inboundPacket is the only frame shape clients send: a bet or take request.
// Non-numeric amounts fail JSON decoding and are rejected at the boundary.
type inboundPacket struct {
	Type   string `json:"type"`
	Amount int    `json:"amount"`
}

// RoomWSHandler upgrades GET /room/ws/{code} to a websocket session: it
// registers the session, seeds it with a snapshot, announces the join to the
// rest of the room, then pumps messages until the client goes away.
func (s *Server) RoomWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/room/ws/"), "/")

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"chips"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Log.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "chips" {
			c.Close(BadSubprotocolError, "client must speak the chips subprotocol")
			return
		}
		if len(code) != codeLength {
			c.Close(InvalidRoomCodeError, "invalid room code")
			return
		}

		roomCode, userID, err := auth.Identify(r)
		if err != nil {
			s.Log.Warnf("ws auth failed for room %s: %v", code, err)
			c.Close(websocket.StatusPolicyViolation, "authentication failed")
			return
		}
		if roomCode != code {
			c.Close(RoomMismatchError, "session bound to a different room")
			return
		}

		user, err := s.Store.GetUser(r.Context(), userID)
		if err != nil {
			c.Close(InvalidUserError, "unknown user")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := &registry.Session{
			ID:      uuid.New(),
			User:    *user,
			Cancel:  cancel,
			OutChan: make(chan registry.Message, 16),
		}
		if err := s.seedSession(r.Context(), code, sess); err != nil {
			c.Close(InvalidRoomCodeError, "room does not exist")
			return
		}
		s.Log.Infof("user %s (%s) connected to room %s", user.ID, r.RemoteAddr, code)

		go s.writePump(ctx, c, sess)
		s.readPump(ctx, c, code, sess)

		s.Registry.Unregister(code, sess.ID)
		s.Log.Infof("user %s disconnected from room %s", user.ID, code)
	}
}

// seedSession registers the session, seeds it with the current snapshot, and
// announces the join, all under the room's operation lock. No transfer can
// commit between the snapshot read and the registration, so every commit
// either precedes the snapshot or reaches the session as an event. The
// snapshot is the whole catch-up mechanism; there is no event replay.
func (s *Server) seedSession(ctx context.Context, code string, sess *registry.Session) error {
	var seedErr error
	s.Registry.Do(code, func() {
		snap, err := s.liveSnapshot(ctx, code)
		if err != nil {
			seedErr = err
			return
		}
		s.Registry.Register(code, sess)
		sess.Write(registry.Message{
			"type":  "snapshot",
			"room":  snap.Room,
			"users": snap.Users,
			"you":   sess.User.ID.String(),
		})
		s.Registry.Publish(code, models.NewEvent(models.EventUserJoined, sess.User, 0), sess.ID)
	})
	return seedErr
}

// readPump consumes inbound frames until the connection closes. Messages for
// one session are handled strictly in order.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, roomCode string, sess *registry.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				s.Log.Infof("room %s: websocket closed normally for user %s", roomCode, sess.User.ID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				s.Log.Warnf("room %s: read error for user %s: %v", roomCode, sess.User.ID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var packet inboundPacket
		if err := json.Unmarshal(msg, &packet); err != nil {
			sess.WriteError("validation", "invalid message format")
			continue
		}

		s.handleRoomMessage(ctx, roomCode, sess, packet)
	}
}

// writePump drains the session's out channel onto the wire, pinging
// periodically to keep intermediaries from dropping idle connections.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, sess *registry.Session) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sess.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				s.Log.Warnf("failed to marshal outgoing message for user %s: %v", sess.User.ID, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.Log.Warnf("write failed for user %s: %v", sess.User.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
