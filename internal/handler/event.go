package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openpass/event-checkin/internal/model"
	"github.com/openpass/event-checkin/internal/repository"
)

// EventStore is the slice of the event repository the handlers use.
type EventStore interface {
	Create(ctx context.Context, e *model.Event, creatorID uint64) error
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	DeleteByID(ctx context.Context, id uint64) error
}

// Authorizer decides whether a user may manage a given event.
type Authorizer interface {
	CanManage(ctx context.Context, eventID, userID uint64) (bool, error)
}

// EventHandler serves event CRUD. Reads are public; creating and
// deleting require authentication, and deletion additionally requires
// management rights on the event.
type EventHandler struct {
	Events EventStore
	Admins Authorizer
}

func NewEventHandler(events EventStore, admins Authorizer) *EventHandler {
	return &EventHandler{Events: events, Admins: admins}
}

type createEventReq struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
}

type eventResp struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	CreatedBy   *uint64   `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toEventResp(e *model.Event) eventResp {
	return eventResp{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Date:        e.Date,
		Location:    e.Location,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// Create adds an event. The creator receives an OWNER binding in the
// same transaction, so a fresh event is immediately manageable.
func (h *EventHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Name == "" || req.Date.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and date are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e := &model.Event{
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date.UTC(),
		Location:    req.Location,
	}
	if err := h.Events.Create(ctx, e, userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create event"})
	}
	return c.JSON(http.StatusCreated, toEventResp(e))
}

// List returns all events ordered by date.
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list events"})
	}
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResp(e))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one event by id.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load event"})
	}
	return c.JSON(http.StatusOK, toEventResp(e))
}

// Delete removes an event together with its tickets and admin
// bindings. Only a superadmin or an OWNER of the event may delete it.
func (h *EventHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Admins.CanManage(ctx, id, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not check permissions"})
	}
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized to manage this event"})
	}

	if err := h.Events.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete event"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "event deleted"})
}
