// Package service contains the ticket purchase orchestrator. This is
// the only writer of booking rows: every purchase runs inside one
// transaction that locks the ticket type row, re-reads the sold count
// under that lock, validates capacity and then writes one booking row
// per unit. The lock totally orders capacity checks per ticket type,
// so the sold count can never exceed the configured capacity no
// matter how many purchases race.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stuvents/events-api/internal/model"
	"github.com/stuvents/events-api/internal/repository"
)

// ErrQuantityRequired is returned when a purchase requests fewer than
// one unit. It is rejected before any lock is taken.
var ErrQuantityRequired = errors.New("quantity must be at least 1")

// ErrBuyerNotFound is returned when the authenticated buyer has no
// user row. This should not happen for a caller that passed JWT
// authentication; it indicates the account was removed mid-session.
var ErrBuyerNotFound = errors.New("buyer not found")

// CapacityError reports a purchase that would oversubscribe a ticket
// type. Available is the exact number of units still purchasable at
// the instant the decision was made under lock; it is floored at zero
// and safe to show to the buyer.
type CapacityError struct {
	Available int64
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("only %d tickets are left, but you requested %d", e.Available, e.Requested)
}

// InventoryTx is one purchase transaction against the ticket store.
// LockTicketType must block competing transactions on the same ticket
// type until Commit or Rollback; that exclusivity is the sole
// mechanism preventing double-booking. *repository.BookingTx is the
// MySQL implementation; tests substitute an in-memory one.
type InventoryTx interface {
	LockTicketType(ctx context.Context, id uint64) (*model.TicketType, error)
	CountSold(ctx context.Context, ticketTypeID uint64) (int64, error)
	InsertBookings(ctx context.Context, bookings []*model.Booking) error
	Commit() error
	Rollback() error
}

// InventoryStore opens purchase transactions.
type InventoryStore interface {
	Begin(ctx context.Context) (InventoryTx, error)
}

// BuyerDirectory resolves buyer identities. *repository.UserRepo
// satisfies it.
type BuyerDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// SQLInventory adapts *repository.BookingStore to InventoryStore.
type SQLInventory struct {
	Store *repository.BookingStore
}

func (s SQLInventory) Begin(ctx context.Context) (InventoryTx, error) {
	return s.Store.Begin(ctx)
}

// PurchaseResult is returned on a successful purchase: the created
// booking rows (IDs populated) and the ticket type they were bought
// from, as read under lock.
type PurchaseResult struct {
	Bookings   []model.Booking
	TicketType model.TicketType
}

// BookingService is the sole entry point for purchasing tickets.
type BookingService struct {
	store InventoryStore
	users BuyerDirectory
}

// NewBookingService constructs a BookingService.  Both dependencies
// must be non-nil.
func NewBookingService(store InventoryStore, users BuyerDirectory) *BookingService {
	if store == nil || users == nil {
		panic("nil dependency passed to NewBookingService")
	}
	return &BookingService{store: store, users: users}
}

// CreateBooking purchases quantity units of a ticket type for the
// buyer. On success exactly quantity booking rows exist; on any
// failure none do.
//
// Failure modes: ErrQuantityRequired for quantity < 1 (checked before
// any lock to avoid needless contention), ErrBuyerNotFound for an
// unknown buyer, repository.ErrTicketTypeNotFound for an unknown
// ticket type, *CapacityError when the remaining inventory cannot
// cover the request, and repository.ErrLockWaitTimeout when the row
// lock could not be acquired in time (transient; the caller may
// retry).
func (s *BookingService) CreateBooking(ctx context.Context, buyerID, ticketTypeID uint64, quantity int) (*PurchaseResult, error) {
	if quantity < 1 {
		return nil, ErrQuantityRequired
	}

	buyer, err := s.users.GetByID(ctx, buyerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBuyerNotFound
		}
		return nil, fmt.Errorf("resolve buyer: %w", err)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin purchase: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	tt, err := tx.LockTicketType(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}

	sold, err := tx.CountSold(ctx, tt.ID)
	if err != nil {
		return nil, fmt.Errorf("count sold: %w", err)
	}

	if sold+int64(quantity) > tt.TotalAvailable {
		available := tt.TotalAvailable - sold
		if available < 0 {
			available = 0
		}
		return nil, &CapacityError{Available: available, Requested: quantity}
	}

	now := time.Now().UTC()
	rows := make([]*model.Booking, 0, quantity)
	for i := 0; i < quantity; i++ {
		rows = append(rows, &model.Booking{
			UserID:       buyer.ID,
			TicketTypeID: tt.ID,
			BookedAt:     now,
		})
	}
	if err := tx.InsertBookings(ctx, rows); err != nil {
		return nil, fmt.Errorf("insert bookings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purchase: %w", err)
	}
	committed = true

	out := make([]model.Booking, 0, quantity)
	for _, b := range rows {
		out = append(out, *b)
	}
	return &PurchaseResult{Bookings: out, TicketType: *tt}, nil
}
