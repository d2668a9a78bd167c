// Package repository is the data access layer: hand-written SQL over
// database/sql, one repo per aggregate. This file holds the sentinel
// errors shared across repositories so higher layers can distinguish
// failure scenarios with errors.Is. For example, ErrForbidden means
// the caller does not own the resource, while ErrConflict signals
// dependent records blocking an operation (deleting a ticket type
// that already has bookings).
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as deleting a ticket type that
// still has bookings. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrEventNotFound indicates that an event was not located in the DB.
var ErrEventNotFound = errors.New("event not found")

// ErrTicketTypeNotFound indicates that a ticket type was not located
// in the DB.
var ErrTicketTypeNotFound = errors.New("ticket type not found")

// ErrLockWaitTimeout is returned when a transaction could not acquire
// the row lock on a ticket type within the configured wait. It is
// transient: the caller may retry, and it must never be confused with
// the inventory being sold out.
var ErrLockWaitTimeout = errors.New("lock wait timeout")

// isLockError reports whether err is MySQL telling us the row lock
// could not be obtained: 1205 (lock wait timeout exceeded) or 1213
// (deadlock victim, rolled back).
func isLockError(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1205 || me.Number == 1213
	}
	return false
}
