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

// CreateUser inserts a new user row, generating an ID when none is set.
func (p *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("generate user id: %w", err)
		}
		user.ID = id
	}

	q := `INSERT INTO users (id, name, chips, room_id) VALUES ($1, $2, $3, $4)`
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, user.ID, user.Name, user.Chips, user.RoomID)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (p *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	q := `SELECT id, name, chips, room_id FROM users WHERE id=$1`
	err := p.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Name, &u.Chips, &u.RoomID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all users of a room ordered by name for stable rosters.
func (p *Postgres) ListUsers(ctx context.Context, roomID uuid.UUID) ([]models.User, error) {
	q := `SELECT id, name, chips, room_id FROM users WHERE room_id=$1 ORDER BY name, id`
	rows, err := p.pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Chips, &u.RoomID); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
