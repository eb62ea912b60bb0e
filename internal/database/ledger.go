package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chiptally/chiptally/internal/ledger"
	"github.com/chiptally/chiptally/internal/models"
)

// MoveChips runs the transfer as a single transaction. Row locks on the room
// and user rows serialize concurrent transfers within the same room; transfers
// on different rooms never contend. The lock order is fixed (room first, then
// user) so concurrent transfers cannot deadlock.
func (p *Postgres) MoveChips(ctx context.Context, userID uuid.UUID, amount int, toPot bool) (ledger.Result, error) {
	var res ledger.Result
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		// Unlocked read to find the user's room; balances are re-read under lock.
		var u models.User
		err := tx.QueryRow(ctx,
			`SELECT id, name, chips, room_id FROM users WHERE id=$1`, userID).
			Scan(&u.ID, &u.Name, &u.Chips, &u.RoomID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		var r models.Room
		err = tx.QueryRow(ctx,
			`SELECT id, room_code, buy_in, pot FROM rooms WHERE id=$1 FOR UPDATE`, u.RoomID).
			Scan(&r.ID, &r.RoomCode, &r.BuyIn, &r.Pot)
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.ErrRoomNotFound
		}
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx,
			`SELECT chips FROM users WHERE id=$1 FOR UPDATE`, u.ID).Scan(&u.Chips)
		if err != nil {
			return err
		}

		if toPot {
			if u.Chips < amount {
				return ledger.ErrInsufficientFunds
			}
			r.Pot += amount
			u.Chips -= amount
		} else {
			if amount > r.Pot {
				return ledger.ErrInsufficientPot
			}
			r.Pot -= amount
			u.Chips += amount
		}

		if _, err := tx.Exec(ctx, `UPDATE rooms SET pot=$1 WHERE id=$2`, r.Pot, r.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET chips=$1 WHERE id=$2`, u.Chips, u.ID); err != nil {
			return err
		}

		res = ledger.Result{Room: r, User: u}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		// 40001 serialization_failure, 40P01 deadlock_detected: both safe to retry.
		if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
			return ledger.Result{}, ledger.ErrConflict
		}
		return ledger.Result{}, err
	}
	return res, nil
}
