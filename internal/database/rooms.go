package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chiptally/chiptally/internal/ledger"
	"github.com/chiptally/chiptally/internal/models"
)

// CreateRoom inserts a new room row, generating an ID when none is set.
func (p *Postgres) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("generate room id: %w", err)
		}
		room.ID = id
	}

	q := `INSERT INTO rooms (id, room_code, buy_in, pot) VALUES ($1, $2, $3, $4)`
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, room.ID, room.RoomCode, room.BuyIn, room.Pot)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (p *Postgres) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var r models.Room
	q := `SELECT id, room_code, buy_in, pot FROM rooms WHERE id=$1`
	err := p.pool.QueryRow(ctx, q, id).Scan(&r.ID, &r.RoomCode, &r.BuyIn, &r.Pot)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *Postgres) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	var r models.Room
	q := `SELECT id, room_code, buy_in, pot FROM rooms WHERE room_code=$1`
	err := p.pool.QueryRow(ctx, q, code).Scan(&r.ID, &r.RoomCode, &r.BuyIn, &r.Pot)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
