// Package queue holds the message payloads exchanged over RabbitMQ
// and the background consumer that processes them.
package queue

// BookingQueueName is the durable queue carrying purchase confirmations.
const BookingQueueName = "booking.confirmed"

// BookingConfirmedEvent is published after a ticket purchase commits.
// It contains enough information for downstream consumers to log,
// notify, or feed analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingIDs     []uint64 `json:"booking_ids"`
	UserID         uint64   `json:"user_id"`
	EventID        uint64   `json:"event_id"`
	EventName      string   `json:"event_name"`
	TicketTypeID   uint64   `json:"ticket_type_id"`
	TicketTypeName string   `json:"ticket_type_name"`
	Quantity       int      `json:"quantity"`
	TotalCents     uint64   `json:"total_cents"`
	ConfirmedAt    string   `json:"confirmed_at"`
}
