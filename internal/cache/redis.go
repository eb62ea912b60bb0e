// Package cache provides a best-effort Redis read cache for room snapshots,
// so page loads and reconnects don't hit Postgres for every read. Any Redis
// failure falls back to the store; the cache never holds authoritative state.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/chiptally/chiptally/internal/models"
)

// snapshotTTL bounds staleness when an invalidation is lost.
const snapshotTTL = 30 * time.Second

// Snapshots caches room snapshot JSON keyed by room code. A nil *Snapshots is
// valid and disables caching entirely.
type Snapshots struct {
	rdb *redis.Client
}

// Connect initializes the client and verifies connectivity.
func Connect(addr string, db int) (*Snapshots, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &Snapshots{rdb: rdb}, nil
}

func key(roomCode string) string {
	return "room:" + roomCode + ":snapshot"
}

// Get returns the cached snapshot for roomCode, if present.
func (c *Snapshots) Get(ctx context.Context, roomCode string) (*models.Snapshot, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, key(roomCode)).Bytes()
	if err != nil {
		return nil, false
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warnf("cache: bad snapshot payload for room %s: %v", roomCode, err)
		return nil, false
	}
	return &snap, true
}

// Set stores the snapshot with a short TTL.
func (c *Snapshots) Set(ctx context.Context, roomCode string, snap models.Snapshot) {
	if c == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Warnf("cache: marshal snapshot for room %s: %v", roomCode, err)
		return
	}
	if err := c.rdb.Set(ctx, key(roomCode), data, snapshotTTL).Err(); err != nil {
		log.Warnf("cache: set snapshot for room %s: %v", roomCode, err)
	}
}

// Invalidate drops the cached snapshot after a committed ledger mutation or a
// roster change.
func (c *Snapshots) Invalidate(ctx context.Context, roomCode string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, key(roomCode)).Err(); err != nil {
		log.Warnf("cache: invalidate snapshot for room %s: %v", roomCode, err)
	}
}
