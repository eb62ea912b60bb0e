package handlers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/chiptally/chiptally/internal/cache"
	"github.com/chiptally/chiptally/internal/ledger"
	"github.com/chiptally/chiptally/internal/models"
	"github.com/chiptally/chiptally/internal/registry"
)

// Server bundles the shared dependencies of the HTTP and websocket handlers.
type Server struct {
	Log      *logrus.Logger
	Store    ledger.Store
	Ledger   *ledger.Service
	Registry *registry.Registry
	Cache    *cache.Snapshots
}

func New(log *logrus.Logger, store ledger.Store, svc *ledger.Service, reg *registry.Registry, snapshots *cache.Snapshots) *Server {
	return &Server{
		Log:      log,
		Store:    store,
		Ledger:   svc,
		Registry: reg,
		Cache:    snapshots,
	}
}

// snapshot reads the current room state, preferring the cache.
func (s *Server) snapshot(ctx context.Context, roomCode string) (models.Snapshot, error) {
	if snap, ok := s.Cache.Get(ctx, roomCode); ok {
		return *snap, nil
	}

	snap, err := s.liveSnapshot(ctx, roomCode)
	if err != nil {
		return models.Snapshot{}, err
	}
	s.Cache.Set(ctx, roomCode, snap)
	return snap, nil
}

// liveSnapshot reads the room state straight from the store. Connect-time
// seeding uses it under the room's operation lock; it never writes the cache,
// since caching a read that overlapped a join could re-cache state from
// before that join's invalidation.
func (s *Server) liveSnapshot(ctx context.Context, roomCode string) (models.Snapshot, error) {
	room, err := s.Store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		return models.Snapshot{}, err
	}
	users, err := s.Store.ListUsers(ctx, room.ID)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("list users for room %s: %w", roomCode, err)
	}
	return models.Snapshot{Room: *room, Users: users}, nil
}
