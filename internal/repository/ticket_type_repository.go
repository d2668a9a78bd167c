package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/stuvents/events-api/internal/model"
)

// TicketTypeRepo manages the organizer-facing lifecycle of ticket
// types: creation, edits and deletion. The purchase path never goes
// through this repository; it uses BookingStore, which takes the row
// lock. Capacity edits here do not need the lock because the booking
// path re-reads total_available under its own lock on every purchase.
type TicketTypeRepo struct {
	db *sql.DB
}

// NewTicketTypeRepo constructs a TicketTypeRepo with the given DB handle.
func NewTicketTypeRepo(db *sql.DB) *TicketTypeRepo {
	return &TicketTypeRepo{db: db}
}

// Create inserts a new ticket type for an event and populates the
// generated ID and DB-default timestamps on the struct.
func (r *TicketTypeRepo) Create(ctx context.Context, tt *model.TicketType) error {
	const q = `INSERT INTO ticket_types (event_id, name, price_cents, total_available) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, tt.EventID, tt.Name, tt.PriceCents, tt.TotalAvailable)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	tt.ID = uint64(id)
	const sel = `SELECT id, event_id, name, price_cents, total_available, created_at, updated_at
	             FROM ticket_types WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, tt.ID).Scan(
		&tt.ID, &tt.EventID, &tt.Name, &tt.PriceCents, &tt.TotalAvailable,
		&tt.CreatedAt, &tt.UpdatedAt,
	)
}

// GetByID retrieves a ticket type without locking it.  Returns
// ErrTicketTypeNotFound when no row matches.
func (r *TicketTypeRepo) GetByID(ctx context.Context, id uint64) (*model.TicketType, error) {
	const q = `SELECT id, event_id, name, price_cents, total_available, created_at, updated_at
	           FROM ticket_types WHERE id = ?`
	var tt model.TicketType
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&tt.ID, &tt.EventID, &tt.Name, &tt.PriceCents, &tt.TotalAvailable,
		&tt.CreatedAt, &tt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketTypeNotFound
		}
		return nil, err
	}
	return &tt, nil
}

// Update rewrites name, price and capacity of a ticket type.  Returns
// ErrTicketTypeNotFound when the row does not exist.
func (r *TicketTypeRepo) Update(ctx context.Context, tt *model.TicketType) error {
	const q = `UPDATE ticket_types SET name = ?, price_cents = ?, total_available = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, tt.Name, tt.PriceCents, tt.TotalAvailable, tt.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either missing or unchanged; distinguish by probing for the row.
		if _, err := r.GetByID(ctx, tt.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a ticket type, refusing with ErrConflict while any
// booking still references it. The existence check, the booking count
// and the delete run in one transaction so a concurrent purchase
// cannot slip a booking in between the check and the delete: the
// purchase path locks the ticket_types row, and the DELETE blocks on
// that same lock.
func (r *TicketTypeRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var exists uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM ticket_types WHERE id = ? FOR UPDATE`, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTicketTypeNotFound
		}
		if isLockError(err) {
			return ErrLockWaitTimeout
		}
		return err
	}
	var sold int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE ticket_type_id = ?`, id).Scan(&sold); err != nil {
		return err
	}
	if sold > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket_types WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// TicketTypeSales pairs a ticket type with its current sold count.
// Used by the public event detail endpoint to derive availability.
type TicketTypeSales struct {
	TicketType model.TicketType
	Sold       int64
}

// ListByEventWithSold returns all ticket types of an event together
// with their booking counts, ordered by price ascending. The counts
// are a browse-time snapshot; the purchase decision re-reads them
// under lock.
func (r *TicketTypeRepo) ListByEventWithSold(ctx context.Context, eventID uint64) ([]TicketTypeSales, error) {
	const q = `SELECT tt.id, tt.event_id, tt.name, tt.price_cents, tt.total_available, tt.created_at, tt.updated_at,
	                  COUNT(b.id) AS sold
	           FROM ticket_types tt
	           LEFT JOIN bookings b ON b.ticket_type_id = tt.id
	           WHERE tt.event_id = ?
	           GROUP BY tt.id
	           ORDER BY tt.price_cents ASC, tt.id ASC`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]TicketTypeSales, 0)
	for rows.Next() {
		var s TicketTypeSales
		if err := rows.Scan(
			&s.TicketType.ID, &s.TicketType.EventID, &s.TicketType.Name,
			&s.TicketType.PriceCents, &s.TicketType.TotalAvailable,
			&s.TicketType.CreatedAt, &s.TicketType.UpdatedAt, &s.Sold,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
