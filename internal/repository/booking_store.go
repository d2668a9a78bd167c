package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stuvents/events-api/internal/model"
)

// BookingStore opens the transactions in which ticket purchases run.
// Every purchase decision is made inside one of these transactions:
// the ticket type row is locked first, the sold count is read under
// that lock, and the booking rows are written before the lock is
// released on commit or rollback. The store never caches counts or
// capacities between transactions.
type BookingStore struct {
	db          *sql.DB
	lockWaitSec int
}

// NewBookingStore returns a BookingStore bound to the given database.
// lockWaitSec bounds how long a purchase transaction waits for the
// ticket type row lock before failing with ErrLockWaitTimeout; values
// below 1 fall back to 5 seconds.
func NewBookingStore(db *sql.DB, lockWaitSec int) *BookingStore {
	if lockWaitSec < 1 {
		lockWaitSec = 5
	}
	return &BookingStore{db: db, lockWaitSec: lockWaitSec}
}

// Begin starts a purchase transaction. The session's InnoDB lock wait
// timeout is pinned explicitly rather than inherited from the server
// default, so contention failures surface within a known bound. The
// transaction runs on a dedicated connection so the session variable
// can be reset when it resolves instead of leaking onto unrelated
// queries served by the same pooled connection.
func (s *BookingStore) Begin(ctx context.Context) (*BookingTx, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", s.lockWaitSec)); err != nil {
		_ = conn.Close()
		return nil, err
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &BookingTx{tx: tx, conn: conn}, nil
}

// BookingTx is one purchase transaction. It must be finished with
// Commit or Rollback; the row lock taken by LockTicketType is held
// until then.
type BookingTx struct {
	tx   *sql.Tx
	conn *sql.Conn
}

// LockTicketType loads a ticket type by ID and takes an exclusive row
// lock on it for the remainder of the transaction. A concurrent
// transaction locking the same ID blocks until this one resolves,
// which totally orders capacity checks per ticket type. Returns
// ErrTicketTypeNotFound when no such row exists and
// ErrLockWaitTimeout when the lock could not be acquired in time.
func (t *BookingTx) LockTicketType(ctx context.Context, id uint64) (*model.TicketType, error) {
	const q = `SELECT id, event_id, name, price_cents, total_available, created_at, updated_at
	           FROM ticket_types WHERE id = ? FOR UPDATE`
	var tt model.TicketType
	err := t.tx.QueryRowContext(ctx, q, id).Scan(
		&tt.ID, &tt.EventID, &tt.Name, &tt.PriceCents, &tt.TotalAvailable,
		&tt.CreatedAt, &tt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketTypeNotFound
		}
		if isLockError(err) {
			return nil, ErrLockWaitTimeout
		}
		return nil, err
	}
	return &tt, nil
}

// CountSold returns the number of booking rows referencing the ticket
// type. Read inside the locked transaction it reflects every commit
// that preceded lock acquisition.
func (t *BookingTx) CountSold(ctx context.Context, ticketTypeID uint64) (int64, error) {
	var n int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE ticket_type_id = ?`, ticketTypeID).Scan(&n)
	return n, err
}

// InsertBookings persists the given booking rows, one INSERT per unit,
// and writes the generated IDs back onto the slice elements. The
// caller supplies UserID, TicketTypeID and BookedAt on each row.
func (t *BookingTx) InsertBookings(ctx context.Context, bookings []*model.Booking) error {
	const q = `INSERT INTO bookings (user_id, ticket_type_id, booked_at) VALUES (?, ?, ?)`
	for _, b := range bookings {
		res, err := t.tx.ExecContext(ctx, q, b.UserID, b.TicketTypeID, b.BookedAt.UTC().Format("2006-01-02 15:04:05"))
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		b.ID = uint64(id)
	}
	return nil
}

// Commit finishes the transaction and releases the row lock.
func (t *BookingTx) Commit() error {
	err := t.tx.Commit()
	t.release()
	return err
}

// Rollback aborts the transaction, discarding any staged booking rows
// and releasing the row lock. Safe to call after Commit.
func (t *BookingTx) Rollback() error {
	err := t.tx.Rollback()
	t.release()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// release restores the session lock wait timeout and returns the
// connection to the pool. Idempotent; the second call after a
// Commit-then-deferred-Rollback sequence is a no-op.
func (t *BookingTx) release() {
	if t.conn == nil {
		return
	}
	_, _ = t.conn.ExecContext(context.Background(), "SET SESSION innodb_lock_wait_timeout = DEFAULT")
	_ = t.conn.Close()
	t.conn = nil
}
