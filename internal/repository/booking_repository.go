package repository

import (
	"context"
	"database/sql"
	"time"
)

// BookingRepo is the read side of bookings: listing a user's own
// purchases and fetching a single one. Ownership is enforced inside
// the query predicates themselves, so a booking that exists but
// belongs to someone else is indistinguishable from one that does not
// exist.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingDetail is a booking joined with its ticket type and event
// summary, as returned to the purchasing user.
type BookingDetail struct {
	ID             uint64    `json:"id"`
	BookedAt       time.Time `json:"booked_at"`
	TicketTypeID   uint64    `json:"ticket_type_id"`
	TicketTypeName string    `json:"ticket_type_name"`
	PriceCents     uint32    `json:"price_cents"`
	EventID        uint64    `json:"event_id"`
	EventName      string    `json:"event_name"`
	EventStartsAt  time.Time `json:"event_starts_at"`
}

// ListByUser returns one page of the user's bookings together with the
// total count. Rows are ordered ascending by purchase time, ties
// broken by id, which keeps the order stable across pages.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, page, pageSize int) ([]BookingDetail, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := pageSize
	offset := (page - 1) * pageSize

	const q = `SELECT b.id, b.booked_at,
	                  tt.id, tt.name, tt.price_cents,
	                  e.id, e.name, e.starts_at
	           FROM bookings b
	           JOIN ticket_types tt ON tt.id = b.ticket_type_id
	           JOIN events e        ON e.id = tt.event_id
	           WHERE b.user_id = ?
	           ORDER BY b.booked_at ASC, b.id ASC
	           LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]BookingDetail, 0, limit)
	for rows.Next() {
		var d BookingDetail
		if err := rows.Scan(
			&d.ID, &d.BookedAt,
			&d.TicketTypeID, &d.TicketTypeName, &d.PriceCents,
			&d.EventID, &d.EventName, &d.EventStartsAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByIDForUser returns a single booking for the given user.  When no
// booking with that ID exists for the user, including when it exists
// but is owned by another user, sql.ErrNoRows is returned.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, bookingID, userID uint64) (*BookingDetail, error) {
	const q = `SELECT b.id, b.booked_at,
	                  tt.id, tt.name, tt.price_cents,
	                  e.id, e.name, e.starts_at
	           FROM bookings b
	           JOIN ticket_types tt ON tt.id = b.ticket_type_id
	           JOIN events e        ON e.id = tt.event_id
	           WHERE b.id = ? AND b.user_id = ?`
	var d BookingDetail
	err := r.db.QueryRowContext(ctx, q, bookingID, userID).Scan(
		&d.ID, &d.BookedAt,
		&d.TicketTypeID, &d.TicketTypeName, &d.PriceCents,
		&d.EventID, &d.EventName, &d.EventStartsAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
