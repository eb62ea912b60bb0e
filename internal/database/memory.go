package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/chiptally/chiptally/internal/ledger"
	"github.com/chiptally/chiptally/internal/models"
)

// MemoryStore is an in-memory ledger.Store used by tests and when running the
// server with STORE=memory. A single mutex guards all state: at home-game
// scale that is enough to make lost updates impossible, which is the property
// the ledger requires of its store.
type MemoryStore struct {
	mu     sync.Mutex
	rooms  map[uuid.UUID]*models.Room
	byCode map[string]uuid.UUID
	users  map[uuid.UUID]*models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:  make(map[uuid.UUID]*models.Room),
		byCode: make(map[string]uuid.UUID),
		users:  make(map[uuid.UUID]*models.User),
	}
}

func (m *MemoryStore) CreateRoom(ctx context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	if _, exists := m.byCode[room.RoomCode]; exists {
		return fmt.Errorf("room code %q already exists", room.RoomCode)
	}
	cp := *room
	m.rooms[room.ID] = &cp
	m.byCode[room.RoomCode] = room.ID
	return nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, ok := m.rooms[user.RoomID]; !ok {
		return ledger.ErrRoomNotFound
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemoryStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[id]
	if !ok {
		return nil, ledger.ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byCode[code]
	if !ok {
		return nil, ledger.ErrRoomNotFound
	}
	cp := *m.rooms[id]
	return &cp, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ledger.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) ListUsers(ctx context.Context, roomID uuid.UUID) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var users []models.User
	for _, u := range m.users {
		if u.RoomID == roomID {
			users = append(users, *u)
		}
	}
	return users, nil
}

// MoveChips applies the transfer under the store mutex so no caller can
// observe a half-applied transfer. Rule checks and both writes happen inside
// the same critical section, mirroring what the Postgres row locks provide.
func (m *MemoryStore) MoveChips(ctx context.Context, userID uuid.UUID, amount int, toPot bool) (ledger.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ledger.Result{}, ledger.ErrUserNotFound
	}
	r, ok := m.rooms[u.RoomID]
	if !ok {
		return ledger.Result{}, ledger.ErrRoomNotFound
	}

	if toPot {
		if u.Chips < amount {
			return ledger.Result{}, ledger.ErrInsufficientFunds
		}
		r.Pot += amount
		u.Chips -= amount
	} else {
		if amount > r.Pot {
			return ledger.Result{}, ledger.ErrInsufficientPot
		}
		r.Pot -= amount
		u.Chips += amount
	}

	return ledger.Result{Room: *r, User: *u}, nil
}
