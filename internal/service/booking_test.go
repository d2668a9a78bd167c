package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stuvents/events-api/internal/model"
	"github.com/stuvents/events-api/internal/repository"
)

// memInventory is an in-memory InventoryStore. LockTicketType takes a
// per-ticket-type mutex that is held until Commit or Rollback, which
// serializes purchase decisions exactly like the row lock does in
// MySQL. Inserted rows become visible to CountSold only on commit.
type memInventory struct {
	mu     sync.Mutex
	locks  map[uint64]*sync.Mutex
	types    map[uint64]model.TicketType
	sold     map[uint64]int64
	nextID   uint64
	begun    int
	finished int
}

func newMemInventory(types ...model.TicketType) *memInventory {
	s := &memInventory{
		locks: make(map[uint64]*sync.Mutex),
		types: make(map[uint64]model.TicketType),
		sold:  make(map[uint64]int64),
	}
	for _, tt := range types {
		s.types[tt.ID] = tt
		s.locks[tt.ID] = &sync.Mutex{}
	}
	return s
}

func (s *memInventory) Begin(ctx context.Context) (InventoryTx, error) {
	s.mu.Lock()
	s.begun++
	s.mu.Unlock()
	return &memTx{store: s}, nil
}

func (s *memInventory) seedSold(ticketTypeID uint64, n int64) {
	s.mu.Lock()
	s.sold[ticketTypeID] += n
	s.mu.Unlock()
}

func (s *memInventory) soldCount(ticketTypeID uint64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sold[ticketTypeID]
}

type memTx struct {
	store  *memInventory
	locked *sync.Mutex
	staged []*model.Booking
	done   bool
}

func (t *memTx) LockTicketType(ctx context.Context, id uint64) (*model.TicketType, error) {
	t.store.mu.Lock()
	tt, ok := t.store.types[id]
	lock := t.store.locks[id]
	t.store.mu.Unlock()
	if !ok {
		return nil, repository.ErrTicketTypeNotFound
	}
	lock.Lock()
	t.locked = lock
	return &tt, nil
}

func (t *memTx) CountSold(ctx context.Context, ticketTypeID uint64) (int64, error) {
	return t.store.soldCount(ticketTypeID), nil
}

func (t *memTx) InsertBookings(ctx context.Context, bookings []*model.Booking) error {
	t.store.mu.Lock()
	for _, b := range bookings {
		t.store.nextID++
		b.ID = t.store.nextID
	}
	t.store.mu.Unlock()
	t.staged = append(t.staged, bookings...)
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.store.mu.Lock()
	for _, b := range t.staged {
		t.store.sold[b.TicketTypeID]++
	}
	t.store.finished++
	t.store.mu.Unlock()
	if t.locked != nil {
		t.locked.Unlock()
	}
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.staged = nil
	t.store.mu.Lock()
	t.store.finished++
	t.store.mu.Unlock()
	if t.locked != nil {
		t.locked.Unlock()
	}
	return nil
}

// memUsers resolves every ID except the ones listed as missing.
type memUsers struct {
	missing map[uint64]bool
}

func (u memUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	if u.missing[id] {
		return model.User{}, sql.ErrNoRows
	}
	return model.User{ID: id, Email: "buyer@example.com", Role: "USER"}, nil
}

func generalAdmission(capacity int64) model.TicketType {
	return model.TicketType{
		ID:             1,
		EventID:        7,
		Name:           "General Admission",
		PriceCents:     2500,
		TotalAvailable: capacity,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
}

func TestCreateBookingRejectsInvalidQuantity(t *testing.T) {
	store := newMemInventory(generalAdmission(10))
	svc := NewBookingService(store, memUsers{})

	for _, qty := range []int{0, -1, -100} {
		_, err := svc.CreateBooking(context.Background(), 1, 1, qty)
		require.ErrorIs(t, err, ErrQuantityRequired)
	}
	// Rejected before any transaction was opened.
	assert.Equal(t, 0, store.begun)
	assert.Equal(t, int64(0), store.soldCount(1))
}

func TestCreateBookingBuyerNotFound(t *testing.T) {
	store := newMemInventory(generalAdmission(10))
	svc := NewBookingService(store, memUsers{missing: map[uint64]bool{42: true}})

	_, err := svc.CreateBooking(context.Background(), 42, 1, 1)
	require.ErrorIs(t, err, ErrBuyerNotFound)
	assert.Equal(t, int64(0), store.soldCount(1))
}

func TestCreateBookingTicketTypeNotFound(t *testing.T) {
	store := newMemInventory(generalAdmission(10))
	svc := NewBookingService(store, memUsers{})

	_, err := svc.CreateBooking(context.Background(), 1, 999, 1)
	require.ErrorIs(t, err, repository.ErrTicketTypeNotFound)
}

func TestCreateBookingCapacityExceeded(t *testing.T) {
	store := newMemInventory(generalAdmission(2))
	svc := NewBookingService(store, memUsers{})

	_, err := svc.CreateBooking(context.Background(), 1, 1, 3)
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, int64(2), capErr.Available)
	assert.Equal(t, 3, capErr.Requested)
	assert.Equal(t, "only 2 tickets are left, but you requested 3", capErr.Error())
	assert.Equal(t, int64(0), store.soldCount(1), "failed purchase must not create rows")
}

func TestCreateBookingSuccess(t *testing.T) {
	store := newMemInventory(generalAdmission(10))
	svc := NewBookingService(store, memUsers{})

	res, err := svc.CreateBooking(context.Background(), 5, 1, 3)
	require.NoError(t, err)
	require.Len(t, res.Bookings, 3)

	seen := make(map[uint64]bool)
	for _, b := range res.Bookings {
		assert.Equal(t, uint64(5), b.UserID)
		assert.Equal(t, uint64(1), b.TicketTypeID)
		assert.False(t, seen[b.ID], "booking IDs must be distinct")
		seen[b.ID] = true
	}
	assert.Equal(t, "General Admission", res.TicketType.Name)
	assert.Equal(t, int64(3), store.soldCount(1))
}

func TestCreateBookingNearCapacity(t *testing.T) {
	store := newMemInventory(generalAdmission(50))
	store.seedSold(1, 48)
	svc := NewBookingService(store, memUsers{})

	// 48 of 50 sold: a request for 3 must fail and report 2 left.
	_, err := svc.CreateBooking(context.Background(), 1, 1, 3)
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, int64(2), capErr.Available)

	// The remaining 2 can still be bought.
	res, err := svc.CreateBooking(context.Background(), 1, 1, 2)
	require.NoError(t, err)
	assert.Len(t, res.Bookings, 2)
	assert.Equal(t, int64(50), store.soldCount(1))

	// Now sold out: even a single unit is refused with 0 available.
	_, err = svc.CreateBooking(context.Background(), 1, 1, 1)
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, int64(0), capErr.Available)
}

func TestCreateBookingMultiUnitAtomicity(t *testing.T) {
	store := newMemInventory(generalAdmission(3))
	svc := NewBookingService(store, memUsers{})

	// Two identical oversized requests: both fail identically, and
	// neither leaves partial rows behind.
	for i := 0; i < 2; i++ {
		_, err := svc.CreateBooking(context.Background(), 1, 1, 5)
		var capErr *CapacityError
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, int64(3), capErr.Available)
		assert.Equal(t, int64(0), store.soldCount(1))
	}
}

func TestCreateBookingExactlyOneWinner(t *testing.T) {
	store := newMemInventory(generalAdmission(1))
	svc := NewBookingService(store, memUsers{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBooking(context.Background(), uint64(i+1), 1, 1)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var capErr *CapacityError
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, int64(0), capErr.Available)
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, int64(1), store.soldCount(1))
}

func TestCreateBookingCapacityInvariantUnderLoad(t *testing.T) {
	const capacity = 25
	const buyers = 100

	store := newMemInventory(generalAdmission(capacity))
	svc := NewBookingService(store, memUsers{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, err := svc.CreateBooking(context.Background(), uid, 1, 1)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				var capErr *CapacityError
				assert.ErrorAs(t, err, &capErr)
			}
		}(uint64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, capacity, successes)
	assert.Equal(t, int64(capacity), store.soldCount(1))
}

func TestCountSoldIdempotent(t *testing.T) {
	store := newMemInventory(generalAdmission(10))
	store.seedSold(1, 3)

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	_, err = tx.LockTicketType(context.Background(), 1)
	require.NoError(t, err)

	// Two reads with no intervening writes must agree.
	first, err := tx.CountSold(context.Background(), 1)
	require.NoError(t, err)
	second, err := tx.CountSold(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(3), first)

	require.NoError(t, tx.Rollback())
}

func TestCreateBookingResolvesEveryTransaction(t *testing.T) {
	store := newMemInventory(generalAdmission(2))
	svc := NewBookingService(store, memUsers{})

	// A success, a capacity failure and an unknown ticket type: each
	// opened transaction must end in exactly one commit or rollback,
	// or the session state pinned at Begin would leak.
	_, err := svc.CreateBooking(context.Background(), 1, 1, 2)
	require.NoError(t, err)
	_, err = svc.CreateBooking(context.Background(), 1, 1, 1)
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	_, err = svc.CreateBooking(context.Background(), 1, 999, 1)
	require.ErrorIs(t, err, repository.ErrTicketTypeNotFound)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 3, store.begun)
	assert.Equal(t, store.begun, store.finished)
}

func TestCreateBookingFailedAttemptsLeaveCountUnchanged(t *testing.T) {
	store := newMemInventory(generalAdmission(4))
	store.seedSold(1, 4)
	svc := NewBookingService(store, memUsers{})

	for i := 0; i < 5; i++ {
		_, err := svc.CreateBooking(context.Background(), 1, 1, 1)
		var capErr *CapacityError
		require.True(t, errors.As(err, &capErr))
	}
	assert.Equal(t, int64(4), store.soldCount(1))
}
