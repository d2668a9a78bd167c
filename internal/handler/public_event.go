package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/stuvents/events-api/internal/model"
	"github.com/stuvents/events-api/internal/repository"
)

// PublicEventHandler serves unauthenticated event browsing. Responses
// may be cached by the Redis middleware; the purchase path never
// trusts these numbers and re-reads inventory under lock.
type PublicEventHandler struct {
	Events      *repository.EventRepo
	TicketTypes *repository.TicketTypeRepo
}

func NewPublicEventHandler(events *repository.EventRepo, tickets *repository.TicketTypeRepo) *PublicEventHandler {
	if events == nil || tickets == nil {
		panic("nil repository passed to NewPublicEventHandler")
	}
	return &PublicEventHandler{Events: events, TicketTypes: tickets}
}

// List handles GET /v1/events: upcoming events with optional name,
// city and category filters, paged with a total count.
func (h *PublicEventHandler) List(c echo.Context) error {
	page, pageSize := pageParams(c)
	q := repository.EventSearchQuery{
		Name:     c.QueryParam("name"),
		City:     c.QueryParam("city"),
		Category: c.QueryParam("category"),
		Page:     page,
		PageSize: pageSize,
	}

	items, total, err := h.Events.SearchUpcoming(c.Request().Context(), q)
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

// publicTicketType is a ticket type as shown to buyers: a derived
// availability status and a quantity cap instead of exact counts.
type publicTicketType struct {
	ID                  uint64                   `json:"id"`
	Name                string                   `json:"name"`
	PriceCents          uint32                   `json:"price_cents"`
	Availability        model.AvailabilityStatus `json:"availability"`
	MaxPurchaseQuantity int64                    `json:"max_purchase_quantity"`
}

// Get handles GET /v1/events/:id: event detail plus its ticket types.
func (h *PublicEventHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx := c.Request().Context()
	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	sales, err := h.TicketTypes.ListByEventWithSold(ctx, ev.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	tts := make([]publicTicketType, 0, len(sales))
	for _, s := range sales {
		available := s.TicketType.TotalAvailable - s.Sold
		tts = append(tts, publicTicketType{
			ID:                  s.TicketType.ID,
			Name:                s.TicketType.Name,
			PriceCents:          s.TicketType.PriceCents,
			Availability:        model.AvailabilityFor(available, s.TicketType.TotalAvailable),
			MaxPurchaseQuantity: model.MaxPurchaseQuantity(available),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":           ev.ID,
		"name":         ev.Name,
		"description":  ev.Description,
		"address":      ev.Address,
		"starts_at":    ev.StartsAt.UTC().Format("2006-01-02 15:04:05"),
		"ticket_types": tts,
	})
}
