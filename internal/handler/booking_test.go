package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stuvents/events-api/internal/model"
	"github.com/stuvents/events-api/internal/repository"
	"github.com/stuvents/events-api/internal/service"
)

// stubInventory drives the purchase path without a database. lockErr,
// when set, is returned from LockTicketType to simulate contention.
type stubInventory struct {
	ticketType model.TicketType
	sold       int64
	lockErr    error
}

func (s *stubInventory) Begin(ctx context.Context) (service.InventoryTx, error) {
	return &stubTx{store: s}, nil
}

type stubTx struct {
	store  *stubInventory
	staged int64
}

func (t *stubTx) LockTicketType(ctx context.Context, id uint64) (*model.TicketType, error) {
	if t.store.lockErr != nil {
		return nil, t.store.lockErr
	}
	if id != t.store.ticketType.ID {
		return nil, repository.ErrTicketTypeNotFound
	}
	tt := t.store.ticketType
	return &tt, nil
}

func (t *stubTx) CountSold(ctx context.Context, ticketTypeID uint64) (int64, error) {
	return t.store.sold, nil
}

func (t *stubTx) InsertBookings(ctx context.Context, bookings []*model.Booking) error {
	for i, b := range bookings {
		b.ID = uint64(i + 1)
	}
	t.staged = int64(len(bookings))
	return nil
}

func (t *stubTx) Commit() error {
	t.store.sold += t.staged
	return nil
}

func (t *stubTx) Rollback() error { return nil }

type stubUsers struct{}

func (stubUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return model.User{ID: id, Email: "buyer@example.com", Role: "USER"}, nil
}

// offlineDB returns a pool whose queries fail instead of panicking;
// the handlers under test treat those reads as best-effort.
func offlineDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("mysql", "test@tcp(127.0.0.1:1)/test?parseTime=true")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newBookingHandler(t *testing.T, store *stubInventory) *BookingHandler {
	t.Helper()
	db := offlineDB(t)
	svc := service.NewBookingService(store, stubUsers{})
	return NewBookingHandler(svc, repository.NewBookingRepo(db), repository.NewEventRepo(db))
}

func doCreate(h *BookingHandler, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(1))
	_ = h.Create(c)
	return rec
}

func TestCreateBookingEndpointSuccess(t *testing.T) {
	store := &stubInventory{ticketType: model.TicketType{
		ID: 3, EventID: 9, Name: "Early Bird", PriceCents: 1500, TotalAvailable: 100,
	}}
	h := newBookingHandler(t, store)

	rec := doCreate(h, `{"ticket_type_id":3,"quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		BookingIDs []uint64 `json:"booking_ids"`
		Quantity   int      `json:"quantity"`
		TotalCents uint64   `json:"total_cents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.BookingIDs, 2)
	assert.Equal(t, 2, resp.Quantity)
	assert.Equal(t, uint64(3000), resp.TotalCents)
}

func TestCreateBookingEndpointValidation(t *testing.T) {
	h := newBookingHandler(t, &stubInventory{ticketType: model.TicketType{
		ID: 3, EventID: 9, Name: "Early Bird", PriceCents: 1500, TotalAvailable: 100,
	}})

	cases := []struct {
		name string
		body string
	}{
		{"missing ticket type", `{"quantity":1}`},
		{"zero quantity", `{"ticket_type_id":3,"quantity":0}`},
		{"negative quantity", `{"ticket_type_id":3,"quantity":-5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doCreate(h, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateBookingEndpointUnknownTicketType(t *testing.T) {
	h := newBookingHandler(t, &stubInventory{ticketType: model.TicketType{ID: 3, TotalAvailable: 10}})

	rec := doCreate(h, `{"ticket_type_id":777,"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBookingEndpointCapacityExceeded(t *testing.T) {
	store := &stubInventory{
		ticketType: model.TicketType{ID: 3, EventID: 9, Name: "Early Bird", PriceCents: 1500, TotalAvailable: 50},
		sold:       48,
	}
	h := newBookingHandler(t, store)

	rec := doCreate(h, `{"ticket_type_id":3,"quantity":3}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error     string `json:"error"`
		Available int64  `json:"available"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "only 2 tickets are left, but you requested 3", resp.Error)
	assert.Equal(t, int64(2), resp.Available)
	assert.Equal(t, int64(48), store.sold, "no rows created on failure")
}

func TestCreateBookingEndpointLockContention(t *testing.T) {
	h := newBookingHandler(t, &stubInventory{
		ticketType: model.TicketType{ID: 3, TotalAvailable: 10},
		lockErr:    repository.ErrLockWaitTimeout,
	})

	rec := doCreate(h, `{"ticket_type_id":3,"quantity":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

// stubBookings serves one booking owned by a single user. Any other
// (booking, user) pair yields sql.ErrNoRows, exactly like the
// ownership predicate in the SQL implementation.
type stubBookings struct {
	owner  uint64
	detail repository.BookingDetail
}

func (s stubBookings) ListByUser(ctx context.Context, userID uint64, page, pageSize int) ([]repository.BookingDetail, int64, error) {
	if userID != s.owner {
		return []repository.BookingDetail{}, 0, nil
	}
	return []repository.BookingDetail{s.detail}, 1, nil
}

func (s stubBookings) GetByIDForUser(ctx context.Context, bookingID, userID uint64) (*repository.BookingDetail, error) {
	if bookingID != s.detail.ID || userID != s.owner {
		return nil, sql.ErrNoRows
	}
	d := s.detail
	return &d, nil
}

func doGetBooking(h *BookingHandler, bookingID string, userID uint64) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/bookings/"+bookingID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(bookingID)
	c.Set("user_id", userID)
	_ = h.GetByID(c)
	return rec
}

func TestGetBookingOwnershipIsolation(t *testing.T) {
	store := &stubInventory{ticketType: model.TicketType{ID: 3, TotalAvailable: 10}}
	svc := service.NewBookingService(store, stubUsers{})
	bookings := stubBookings{
		owner:  2,
		detail: repository.BookingDetail{ID: 11, TicketTypeID: 3, TicketTypeName: "Early Bird", EventID: 9, EventName: "Spring Gala"},
	}
	h := NewBookingHandler(svc, bookings, repository.NewEventRepo(offlineDB(t)))

	// The owner sees their booking.
	rec := doGetBooking(h, "11", 2)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Spring Gala"`)

	// Another user gets 404 for the same ID. The booking exists, but
	// its existence must not leak, so this is never a 403.
	rec = doGetBooking(h, "11", 1)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "booking not found")
}

func TestGetBookingInvalidID(t *testing.T) {
	h := newBookingHandler(t, &stubInventory{ticketType: model.TicketType{ID: 3, TotalAvailable: 10}})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/bookings/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	c.Set("user_id", uint64(1))

	_ = h.GetByID(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
