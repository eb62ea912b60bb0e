package handlers

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/chiptally/chiptally/internal/auth"
	"github.com/chiptally/chiptally/internal/ledger"
	"github.com/chiptally/chiptally/internal/models"
)

// Room codes use the nanoid lowercase alphanumeric alphabet, 6 characters.
const (
	codeAlphabet = "1234567890abcdefghijklmnopqrstuvwxyz"
	codeLength   = 6
)

// newRoomCode draws a random fixed-length room code.
func newRoomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

type createRoomRequest struct {
	UserName string `json:"userName"`
	BuyIn    int    `json:"buyIn"`
}

type joinRoomRequest struct {
	RoomCode string `json:"roomCode"`
	UserName string `json:"userName"`
}

type roomResponse struct {
	RoomCode string    `json:"roomCode"`
	UserID   uuid.UUID `json:"userId"`
	BuyIn    int       `json:"buyIn"`
}

// CreateRoomHandler inserts a room with a fresh code plus its first user, and
// issues the session cookie binding that user to the room.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	req.UserName = strings.TrimSpace(req.UserName)
	if req.UserName == "" {
		http.Error(w, "user name is required", http.StatusBadRequest)
		return
	}
	if req.BuyIn < 1 {
		http.Error(w, "buy in must be at least 1", http.StatusBadRequest)
		return
	}

	code, err := newRoomCode()
	if err != nil {
		s.Log.Errorf("generate room code: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	room := models.Room{RoomCode: code, BuyIn: req.BuyIn, Pot: 0}
	if err := s.Store.CreateRoom(r.Context(), &room); err != nil {
		s.Log.Errorf("create room: %v", err)
		http.Error(w, "failed to create room", http.StatusInternalServerError)
		return
	}

	user := models.User{Name: req.UserName, Chips: room.BuyIn, RoomID: room.ID}
	if err := s.Store.CreateUser(r.Context(), &user); err != nil {
		s.Log.Errorf("create user for room %s: %v", code, err)
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	if err := auth.SetCookie(w, user.ID, code); err != nil {
		s.Log.Errorf("issue cookie for room %s: %v", code, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Log.Infof("room %s created by %s (buy-in %d)", code, user.Name, room.BuyIn)
	writeJSON(w, roomResponse{RoomCode: code, UserID: user.ID, BuyIn: room.BuyIn})
}

// JoinRoomHandler adds a user to an existing room with the room's buy-in and
// issues the session cookie. The user_joined event publishes later, when the
// user's websocket session connects.
func (s *Server) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	req.UserName = strings.TrimSpace(req.UserName)
	if req.UserName == "" {
		http.Error(w, "user name is required", http.StatusBadRequest)
		return
	}
	if len(req.RoomCode) != codeLength {
		http.Error(w, "room code must be 6 characters", http.StatusBadRequest)
		return
	}

	room, err := s.Store.GetRoomByCode(r.Context(), req.RoomCode)
	if errors.Is(err, ledger.ErrRoomNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.Log.Errorf("lookup room %s: %v", req.RoomCode, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	user := models.User{Name: req.UserName, Chips: room.BuyIn, RoomID: room.ID}
	if err := s.Store.CreateUser(r.Context(), &user); err != nil {
		s.Log.Errorf("create user for room %s: %v", room.RoomCode, err)
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	// The roster changed; cached snapshots are stale.
	s.Cache.Invalidate(r.Context(), room.RoomCode)

	if err := auth.SetCookie(w, user.ID, room.RoomCode); err != nil {
		s.Log.Errorf("issue cookie for room %s: %v", room.RoomCode, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Log.Infof("user %s joined room %s", user.Name, room.RoomCode)
	writeJSON(w, roomResponse{RoomCode: room.RoomCode, UserID: user.ID, BuyIn: room.BuyIn})
}

// RoomStateHandler serves the current snapshot for GET /room/{code}.
func (s *Server) RoomStateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/room/"), "/")
	if len(code) != codeLength {
		http.Error(w, "invalid room code", http.StatusBadRequest)
		return
	}

	snap, err := s.snapshot(r.Context(), code)
	if errors.Is(err, ledger.ErrRoomNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.Log.Errorf("snapshot room %s: %v", code, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
