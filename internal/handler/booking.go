package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stuvents/events-api/internal/queue"
	"github.com/stuvents/events-api/internal/repository"
	"github.com/stuvents/events-api/internal/service"
)

// BookingReader is the read side of bookings as the handler needs
// it. *repository.BookingRepo is the MySQL implementation.
type BookingReader interface {
	ListByUser(ctx context.Context, userID uint64, page, pageSize int) ([]repository.BookingDetail, int64, error)
	GetByIDForUser(ctx context.Context, bookingID, userID uint64) (*repository.BookingDetail, error)
}

// BookingHandler exposes the purchase endpoint and the buyer's own
// booking queries.
type BookingHandler struct {
	Svc      *service.BookingService
	Bookings BookingReader
	Events   *repository.EventRepo
}

// NewBookingHandler constructs a BookingHandler and panics if any
// dependency is nil.
func NewBookingHandler(svc *service.BookingService, bookings BookingReader, events *repository.EventRepo) *BookingHandler {
	if svc == nil || bookings == nil || events == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc, Bookings: bookings, Events: events}
}

type createBookingReq struct {
	TicketTypeID uint64 `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

type createBookingResp struct {
	BookingIDs     []uint64 `json:"booking_ids"`
	TicketTypeID   uint64   `json:"ticket_type_id"`
	TicketTypeName string   `json:"ticket_type_name"`
	EventID        uint64   `json:"event_id"`
	Quantity       int      `json:"quantity"`
	TotalCents     uint64   `json:"total_cents"`
	BookedAt       string   `json:"booked_at"`
}

// Create handles POST /v1/bookings. The heavy lifting happens in the
// booking service under a row lock; this handler only binds the
// request, maps errors to status codes and publishes the confirmation
// event after the transaction has committed.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TicketTypeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_type_id required"})
	}

	res, err := h.Svc.CreateBooking(c.Request().Context(), uid, req.TicketTypeID, req.Quantity)
	if err != nil {
		var capErr *service.CapacityError
		switch {
		case errors.Is(err, service.ErrQuantityRequired):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, service.ErrBuyerNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		case errors.Is(err, repository.ErrTicketTypeNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket type not found"})
		case errors.As(err, &capErr):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":     capErr.Error(),
				"available": capErr.Available,
			})
		case errors.Is(err, repository.ErrLockWaitTimeout):
			// Transient contention on the ticket type row; the client
			// may retry.
			c.Response().Header().Set("Retry-After", "1")
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket type is busy, please retry"})
		default:
			log.Printf("booking: purchase failed for user=%d ticket_type=%d: %v", uid, req.TicketTypeID, err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
		}
	}

	ids := make([]uint64, 0, len(res.Bookings))
	for _, b := range res.Bookings {
		ids = append(ids, b.ID)
	}
	bookedAt := res.Bookings[0].BookedAt.UTC().Format("2006-01-02 15:04:05")
	totalCents := uint64(res.TicketType.PriceCents) * uint64(req.Quantity)

	eventName := ""
	if ev, err := h.Events.GetByID(c.Request().Context(), res.TicketType.EventID); err == nil {
		eventName = ev.Name
	}

	// Fire-and-forget: the purchase is committed, a broker outage must
	// not fail the response.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = service.PublishBookingConfirmed(ctx, queue.BookingConfirmedEvent{
			BookingIDs:     ids,
			UserID:         uid,
			EventID:        res.TicketType.EventID,
			EventName:      eventName,
			TicketTypeID:   res.TicketType.ID,
			TicketTypeName: res.TicketType.Name,
			Quantity:       req.Quantity,
			TotalCents:     totalCents,
			ConfirmedAt:    bookedAt,
		})
	}()

	return c.JSON(http.StatusCreated, createBookingResp{
		BookingIDs:     ids,
		TicketTypeID:   res.TicketType.ID,
		TicketTypeName: res.TicketType.Name,
		EventID:        res.TicketType.EventID,
		Quantity:       req.Quantity,
		TotalCents:     totalCents,
		BookedAt:       bookedAt,
	})
}

// ListMine handles GET /v1/my-bookings: the caller's bookings, oldest
// first, paged.
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page, pageSize := pageParams(c)

	items, total, err := h.Bookings.ListByUser(c.Request().Context(), uid, page, pageSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetByID handles GET /v1/bookings/:id. A booking that belongs to
// someone else is reported as 404, not 403, so existence is never
// leaked.
func (h *BookingHandler) GetByID(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	d, err := h.Bookings.GetByIDForUser(c.Request().Context(), id, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, d)
}
