package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/stuvents/events-api/internal/model"
)

// EventRepo manages persistence for events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

// Create inserts a new event and assigns the generated ID back to the
// struct, then re-reads the row to populate DB-default timestamps.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (organizer_id, name, description, address, starts_at, category_id, city_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		e.OrganizerID, e.Name, e.Description, e.Address,
		e.StartsAt.UTC().Format("2006-01-02 15:04:05"), e.CategoryID, e.CityID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	const sel = `SELECT id, organizer_id, name, description, address, starts_at, category_id, city_id, created_at, updated_at
	             FROM events WHERE id = ?`
	var catID, cityID sql.NullInt64
	err = r.db.QueryRowContext(ctx, sel, e.ID).Scan(
		&e.ID, &e.OrganizerID, &e.Name, &e.Description, &e.Address, &e.StartsAt,
		&catID, &cityID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	e.CategoryID = nullID(catID)
	e.CityID = nullID(cityID)
	return nil
}

// GetByID retrieves an event by its ID.  It returns ErrEventNotFound if
// there is no matching row.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, organizer_id, name, description, address, starts_at, category_id, city_id, created_at, updated_at
	           FROM events WHERE id = ?`
	var e model.Event
	var catID, cityID sql.NullInt64
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&e.ID, &e.OrganizerID, &e.Name, &e.Description, &e.Address, &e.StartsAt,
		&catID, &cityID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	e.CategoryID = nullID(catID)
	e.CityID = nullID(cityID)
	return &e, nil
}

// EventSearchQuery defines filters & pagination for browsing events.
type EventSearchQuery struct {
	Name     string
	City     string
	Category string
	Page     int
	PageSize int
}

// PublicEventRow is one row of the public event listing.  Category and
// city are flattened to names; timestamps are DB format strings in UTC.
type PublicEventRow struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	StartsAt string  `json:"starts_at"`
	Category *string `json:"category,omitempty"`
	City     *string `json:"city,omitempty"`
}

// SearchUpcoming returns upcoming events matching the query along with
// the total number of matches (for pagination).  Results are ordered by
// start time ascending.
func (r *EventRepo) SearchUpcoming(ctx context.Context, q EventSearchQuery) ([]PublicEventRow, int64, error) {
	where := []string{"e.starts_at >= NOW()"}
	args := []any{}

	if q.Name != "" {
		where = append(where, "LOWER(e.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Name)+"%")
	}
	if q.City != "" {
		where = append(where, "LOWER(ci.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.City)+"%")
	}
	if q.Category != "" {
		where = append(where, "LOWER(ca.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Category)+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*)
		FROM events e
		LEFT JOIN categories ca ON ca.id = e.category_id
		LEFT JOIN cities ci     ON ci.id = e.city_id
		WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT
			e.id,
			e.name,
			e.address,
			DATE_FORMAT(e.starts_at, '%Y-%m-%d %T') AS starts_at,
			ca.name AS category_name,
			ci.name AS city_name
		FROM events e
		LEFT JOIN categories ca ON ca.id = e.category_id
		LEFT JOIN cities ci     ON ci.id = e.city_id
		WHERE ` + cond + `
		ORDER BY e.starts_at ASC
		LIMIT ? OFFSET ?`

	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]PublicEventRow, 0, limit)
	for rows.Next() {
		var d PublicEventRow
		var cat, city sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &d.Address, &d.StartsAt, &cat, &city); err != nil {
			return nil, 0, err
		}
		if cat.Valid {
			s := cat.String
			d.Category = &s
		}
		if city.Valid {
			s := city.String
			d.City = &s
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByOrganizer returns all events created by the given organizer,
// newest start time first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	const q = `SELECT id, organizer_id, name, description, address, starts_at, category_id, city_id, created_at, updated_at
	           FROM events WHERE organizer_id = ? ORDER BY starts_at DESC`
	rows, err := r.db.QueryContext(ctx, q, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		var e model.Event
		var catID, cityID sql.NullInt64
		if err := rows.Scan(
			&e.ID, &e.OrganizerID, &e.Name, &e.Description, &e.Address, &e.StartsAt,
			&catID, &cityID, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		e.CategoryID = nullID(catID)
		e.CityID = nullID(cityID)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// OwnerID returns the organizer of an event, or ErrEventNotFound.
func (r *EventRepo) OwnerID(ctx context.Context, eventID uint64) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx, `SELECT organizer_id FROM events WHERE id = ?`, eventID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrEventNotFound
	}
	return owner, err
}

// nullID converts a nullable BIGINT column into *uint64.
func nullID(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}
