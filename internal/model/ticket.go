package model

import "time"

// TicketType is one purchasable admission category for an event
// (e.g. "General Admission", "VIP").  TotalAvailable is the hard
// capacity for this category: the number of booking rows referencing
// a ticket type must never exceed it.  The booking path only reads
// this value; it is mutated exclusively by the organizer path.
//
// Fields:
//  ID             – primary key identifier.
//  EventID        – event this ticket type belongs to.
//  Name           – display name of the ticket category.
//  PriceCents     – unit price in cents (non-negative).
//  TotalAvailable – maximum number of units that may ever be sold.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type TicketType struct {
	ID             uint64    // ticket_types.id
	EventID        uint64    // ticket_types.event_id
	Name           string    // ticket_types.name
	PriceCents     uint32    // ticket_types.price_cents
	TotalAvailable int64     // ticket_types.total_available
	CreatedAt      time.Time // ticket_types.created_at
	UpdatedAt      time.Time // ticket_types.updated_at
}

// Booking records one purchased ticket unit.  A purchase of N
// tickets produces N booking rows, which keeps capacity accounting a
// simple row count.  Rows are created by the booking service inside
// a locked transaction and are never updated afterwards.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – purchasing user; the sole owner of the booking.
//  TicketTypeID – ticket type this unit was purchased from.
//  BookedAt     – purchase timestamp (UTC).
type Booking struct {
	ID           uint64    // bookings.id
	UserID       uint64    // bookings.user_id
	TicketTypeID uint64    // bookings.ticket_type_id
	BookedAt     time.Time // bookings.booked_at
}

// AvailabilityStatus is the public-facing sales state of a ticket
// type.  It lets the storefront steer the UI without revealing exact
// remaining counts.
type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "AVAILABLE"
	AvailabilitySellingFast AvailabilityStatus = "SELLING_FAST"
	AvailabilityLimited     AvailabilityStatus = "LIMITED"
	AvailabilitySoldOut     AvailabilityStatus = "SOLD_OUT"
)

// maxQuantitySelector caps the quantity choices offered to buyers in
// one purchase regardless of remaining stock.
const maxQuantitySelector = 10

// AvailabilityFor derives the sales status from the remaining and
// total unit counts.  Thresholds: 10% or less remaining is LIMITED,
// 40% or less is SELLING_FAST.
func AvailabilityFor(available, total int64) AvailabilityStatus {
	if available <= 0 || total == 0 {
		return AvailabilitySoldOut
	}
	left := float64(available) / float64(total)
	if left <= 0.1 {
		return AvailabilityLimited
	}
	if left <= 0.4 {
		return AvailabilitySellingFast
	}
	return AvailabilityAvailable
}

// MaxPurchaseQuantity returns how many units a single purchase may
// request for the given remaining stock, floored at zero.
func MaxPurchaseQuantity(available int64) int64 {
	if available < 0 {
		available = 0
	}
	if available > maxQuantitySelector {
		return maxQuantitySelector
	}
	return available
}
