package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/stuvents/events-api/internal/model"
	"github.com/stuvents/events-api/internal/repository"
)

type ticketTypeReq struct {
	Name           string `json:"name"`
	PriceCents     uint32 `json:"price_cents"`
	TotalAvailable int64  `json:"total_available"`
}

type ticketTypeResp struct {
	ID             uint64 `json:"id"`
	EventID        uint64 `json:"event_id"`
	Name           string `json:"name"`
	PriceCents     uint32 `json:"price_cents"`
	TotalAvailable int64  `json:"total_available"`
}

func toTicketTypeResp(tt *model.TicketType) ticketTypeResp {
	return ticketTypeResp{
		ID:             tt.ID,
		EventID:        tt.EventID,
		Name:           tt.Name,
		PriceCents:     tt.PriceCents,
		TotalAvailable: tt.TotalAvailable,
	}
}

// requireEventOwner loads the event's organizer and compares it with
// the caller. Returns repository.ErrEventNotFound or
// repository.ErrForbidden accordingly.
func (h *OrganizerHandler) requireEventOwner(ctx context.Context, eventID, uid uint64) error {
	owner, err := h.Events.OwnerID(ctx, eventID)
	if err != nil {
		return err
	}
	if owner != uid {
		return repository.ErrForbidden
	}
	return nil
}

// ownershipStatus translates ownership check failures into a response.
func ownershipStatus(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
}

// CreateTicketType handles POST /v1/organizer/events/:id/ticket-types.
func (h *OrganizerHandler) CreateTicketType(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	var req ticketTypeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.TotalAvailable < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_available must be at least 1"})
	}

	ctx := c.Request().Context()
	if err := h.requireEventOwner(ctx, eventID, uid); err != nil {
		return ownershipStatus(c, err)
	}

	tt := &model.TicketType{
		EventID:        eventID,
		Name:           req.Name,
		PriceCents:     req.PriceCents,
		TotalAvailable: req.TotalAvailable,
	}
	if err := h.TicketTypes.Create(ctx, tt); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create ticket type failed"})
	}
	return c.JSON(http.StatusCreated, toTicketTypeResp(tt))
}

// UpdateTicketType handles PUT /v1/organizer/events/:id/ticket-types/:ttID.
// Capacity may be edited freely; the purchase path re-reads it under
// lock on every purchase, so a lowered capacity simply stops further
// sales without touching existing bookings.
func (h *OrganizerHandler) UpdateTicketType(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ttID, err := strconv.ParseUint(c.Param("ttID"), 10, 64)
	if err != nil || ttID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket type id"})
	}

	var req ticketTypeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.TotalAvailable < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_available must be at least 1"})
	}

	ctx := c.Request().Context()
	if err := h.requireEventOwner(ctx, eventID, uid); err != nil {
		return ownershipStatus(c, err)
	}

	tt, err := h.TicketTypes.GetByID(ctx, ttID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketTypeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket type not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if tt.EventID != eventID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket type not found"})
	}

	tt.Name = req.Name
	tt.PriceCents = req.PriceCents
	tt.TotalAvailable = req.TotalAvailable
	if err := h.TicketTypes.Update(ctx, tt); err != nil {
		if errors.Is(err, repository.ErrTicketTypeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket type not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update ticket type failed"})
	}
	return c.JSON(http.StatusOK, toTicketTypeResp(tt))
}

// DeleteTicketType handles DELETE /v1/organizer/events/:id/ticket-types/:ttID.
// Deletion is refused with 409 while any booking references the
// ticket type.
func (h *OrganizerHandler) DeleteTicketType(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || eventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ttID, err := strconv.ParseUint(c.Param("ttID"), 10, 64)
	if err != nil || ttID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket type id"})
	}

	ctx := c.Request().Context()
	if err := h.requireEventOwner(ctx, eventID, uid); err != nil {
		return ownershipStatus(c, err)
	}

	tt, err := h.TicketTypes.GetByID(ctx, ttID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketTypeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket type not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if tt.EventID != eventID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket type not found"})
	}

	if err := h.TicketTypes.Delete(ctx, ttID); err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketTypeNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket type not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket type has bookings"})
		case errors.Is(err, repository.ErrLockWaitTimeout):
			c.Response().Header().Set("Retry-After", "1")
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket type is busy, please retry"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete ticket type failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
