package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/chiptally/chiptally/internal/models"
)

// Registry maps room codes to the set of live sessions connected to each room.
// One instance per server process: the connection layer registers and
// unregisters sessions, the broadcaster reads them. Ledger state never lives
// here; an evicted room entry loses nothing durable.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	// opMu serializes bet/take handling and the subsequent publish for the
	// room, so events fan out in ledger commit order.
	opMu     sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

func (r *Registry) getOrCreate(roomCode string) *room {
	rm, ok := r.rooms[roomCode]
	if !ok {
		rm = &room{sessions: make(map[uuid.UUID]*Session)}
		r.rooms[roomCode] = rm
	}
	return rm
}

// Register adds sess to the room's session set. Re-registering the same
// session ID replaces the prior user binding instead of adding a second entry.
func (r *Registry) Register(roomCode string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getOrCreate(roomCode).sessions[sess.ID] = sess
}

// Unregister removes the session. The room entry is evicted once its last
// session is gone to bound memory.
func (r *Registry) Unregister(roomCode string, sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomCode]
	if !ok {
		return
	}
	delete(rm.sessions, sessionID)
	if len(rm.sessions) == 0 {
		delete(r.rooms, roomCode)
	}
}

// Members returns the session IDs currently registered for roomCode.
func (r *Registry) Members(roomCode string) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomCode]
	if !ok {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(rm.sessions))
	for id := range rm.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Do runs fn while holding the room's operation lock. Callers use it to keep
// a ledger commit and the publish of its event in one critical section, which
// is what guarantees per-room delivery in commit order.
func (r *Registry) Do(roomCode string, fn func()) {
	r.mu.Lock()
	rm := r.getOrCreate(roomCode)
	r.mu.Unlock()

	rm.opMu.Lock()
	fn()
	rm.opMu.Unlock()

	// An entry created just for the lock is evicted once fn leaves it with no
	// sessions, same as Unregister does for the last departure.
	r.mu.Lock()
	if cur, ok := r.rooms[roomCode]; ok && cur == rm && len(rm.sessions) == 0 {
		delete(r.rooms, roomCode)
	}
	r.mu.Unlock()
}

// Publish delivers ev to every session registered for roomCode except exclude
// (uuid.Nil excludes nobody). Delivery is best-effort and at-most-once per
// recipient per call: no retry, no acknowledgement, no replay for sessions
// that are not connected at publish time.
func (r *Registry) Publish(roomCode string, ev models.Event, exclude uuid.UUID) {
	r.mu.Lock()
	rm, ok := r.rooms[roomCode]
	if !ok {
		r.mu.Unlock()
		return
	}
	targets := make([]*Session, 0, len(rm.sessions))
	for id, sess := range rm.sessions {
		if id == exclude {
			continue
		}
		targets = append(targets, sess)
	}
	r.mu.Unlock()

	msg := eventMessage(ev)
	for _, sess := range targets {
		sess.Write(msg)
	}
}
