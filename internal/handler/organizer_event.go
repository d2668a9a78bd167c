package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stuvents/events-api/internal/model"
	"github.com/stuvents/events-api/internal/repository"
)

// OrganizerHandler bundles repositories for organizers to manage
// their events and ticket types.
type OrganizerHandler struct {
	Events      *repository.EventRepo
	TicketTypes *repository.TicketTypeRepo
}

// NewOrganizerHandler constructs an OrganizerHandler and panics if any
// dependency is nil.
func NewOrganizerHandler(events *repository.EventRepo, tickets *repository.TicketTypeRepo) *OrganizerHandler {
	if events == nil || tickets == nil {
		panic("nil repository passed to NewOrganizerHandler")
	}
	return &OrganizerHandler{Events: events, TicketTypes: tickets}
}

type createEventReq struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	StartsAt    string  `json:"starts_at"` // "2006-01-02 15:04:05" or RFC3339, UTC
	CategoryID  *uint64 `json:"category_id"`
	CityID      *uint64 `json:"city_id"`
}

type eventResp struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	StartsAt    string  `json:"starts_at"`
	CategoryID  *uint64 `json:"category_id,omitempty"`
	CityID      *uint64 `json:"city_id,omitempty"`
}

func toEventResp(e *model.Event) eventResp {
	return eventResp{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Address:     e.Address,
		StartsAt:    e.StartsAt.UTC().Format("2006-01-02 15:04:05"),
		CategoryID:  e.CategoryID,
		CityID:      e.CityID,
	}
}

// parseEventTime accepts the DB layout or RFC3339 and returns UTC.
func parseEventTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// CreateEvent handles POST /v1/organizer/events.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	startsAt, ok := parseEventTime(req.StartsAt)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid starts_at"})
	}

	ev := &model.Event{
		OrganizerID: uid,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		StartsAt:    startsAt,
		CategoryID:  req.CategoryID,
		CityID:      req.CityID,
	}
	if err := h.Events.Create(c.Request().Context(), ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, toEventResp(ev))
}

// ListMyEvents handles GET /v1/organizer/events.
func (h *OrganizerHandler) ListMyEvents(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	events, err := h.Events.ListByOrganizer(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]eventResp, 0, len(events))
	for i := range events {
		out = append(out, toEventResp(&events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
