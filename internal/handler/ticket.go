package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/openpass/event-checkin/internal/model"
	"github.com/openpass/event-checkin/internal/queue"
	"github.com/openpass/event-checkin/internal/repository"
)

// TicketLedger is the slice of the ticket repository the handler uses.
type TicketLedger interface {
	Issue(ctx context.Context, eventID uint64, att repository.Attendee) (*model.Ticket, error)
	IssueBulk(ctx context.Context, eventID uint64, attendees []repository.Attendee) ([]model.Ticket, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Ticket, error)
}

// TicketHandler issues and lists tickets for an event. All routes
// require management rights on the event. Publish, when set, is
// called once per issued ticket after the transaction commits;
// publish failures are logged and never surfaced to the caller.
type TicketHandler struct {
	Events  EventStore
	Tickets TicketLedger
	Admins  Authorizer
	Publish func(ctx context.Context, ev queue.TicketIssuedEvent) error
}

func NewTicketHandler(events EventStore, tickets TicketLedger, admins Authorizer) *TicketHandler {
	return &TicketHandler{Events: events, Tickets: tickets, Admins: admins}
}

type issueTicketReq struct {
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

type issueBulkReq struct {
	Attendees []issueTicketReq `json:"attendees"`
}

type ticketResp struct {
	ID        uint64     `json:"id"`
	EventID   uint64     `json:"event_id"`
	UserEmail string     `json:"user_email"`
	UserName  string     `json:"user_name"`
	Token     string     `json:"qr_code_token"`
	Status    string     `json:"status"`
	ScannedAt *time.Time `json:"scanned_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func toTicketResp(t *model.Ticket) ticketResp {
	return ticketResp{
		ID:        t.ID,
		EventID:   t.EventID,
		UserEmail: t.UserEmail,
		UserName:  t.UserName,
		Token:     t.Token,
		Status:    t.Status,
		ScannedAt: t.ScannedAt,
		CreatedAt: t.CreatedAt,
	}
}

// IssueOne creates a single ticket for one attendee.
func (h *TicketHandler) IssueOne(c echo.Context) error {
	eventID, e, errResp := h.guard(c)
	if errResp != nil {
		return errResp(c)
	}

	var req issueTicketReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	att, ok := normalizeAttendee(req)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_email and user_name are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	t, err := h.Tickets.Issue(ctx, eventID, att)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue ticket"})
	}

	h.notify(e, []model.Ticket{*t})
	return c.JSON(http.StatusCreated, toTicketResp(t))
}

// IssueBulk creates tickets for a batch of attendees in one
// transaction. Either every attendee receives a ticket or none do.
func (h *TicketHandler) IssueBulk(c echo.Context) error {
	eventID, e, errResp := h.guard(c)
	if errResp != nil {
		return errResp(c)
	}

	var req issueBulkReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(req.Attendees) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "attendees must not be empty"})
	}
	attendees := make([]repository.Attendee, 0, len(req.Attendees))
	for _, a := range req.Attendees {
		att, ok := normalizeAttendee(a)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "every attendee needs user_email and user_name"})
		}
		attendees = append(attendees, att)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	tickets, err := h.Tickets.IssueBulk(ctx, eventID, attendees)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue tickets"})
	}

	h.notify(e, tickets)
	out := make([]ticketResp, 0, len(tickets))
	for i := range tickets {
		out = append(out, toTicketResp(&tickets[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// List returns every ticket of an event.
func (h *TicketHandler) List(c echo.Context) error {
	eventID, _, errResp := h.guard(c)
	if errResp != nil {
		return errResp(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tickets, err := h.Tickets.ListByEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list tickets"})
	}
	out := make([]ticketResp, 0, len(tickets))
	for i := range tickets {
		out = append(out, toTicketResp(&tickets[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// notify publishes one issuance message per ticket in the background.
// The HTTP response never waits on the broker.
func (h *TicketHandler) notify(e *model.Event, tickets []model.Ticket) {
	if h.Publish == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		for i := range tickets {
			t := &tickets[i]
			ev := queue.TicketIssuedEvent{
				TicketID:  t.ID,
				EventID:   e.ID,
				EventName: e.Name,
				EventDate: e.Date,
				Location:  e.Location,
				UserEmail: t.UserEmail,
				UserName:  t.UserName,
				Token:     t.Token,
				IssuedAt:  t.CreatedAt,
			}
			if err := h.Publish(ctx, ev); err != nil {
				log.Error().Err(err).Uint64("ticket_id", t.ID).Msg("publish ticket.issued failed")
			}
		}
	}()
}

// normalizeAttendee trims and lowercases the e-mail and rejects empty
// fields.
func normalizeAttendee(req issueTicketReq) (repository.Attendee, bool) {
	email := strings.TrimSpace(strings.ToLower(req.UserEmail))
	name := strings.TrimSpace(req.UserName)
	if email == "" || name == "" {
		return repository.Attendee{}, false
	}
	return repository.Attendee{UserEmail: email, UserName: name}, true
}

// guard verifies the event exists and the caller may manage it,
// returning the event so issuance messages can carry its details.
func (h *TicketHandler) guard(c echo.Context) (uint64, *model.Event, func(echo.Context) error) {
	userID, err := getUserID(c)
	if err != nil {
		return 0, nil, func(c echo.Context) error {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
	}
	eventID, err := parseID(c, "id")
	if err != nil {
		return 0, nil, func(c echo.Context) error {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return 0, nil, func(c echo.Context) error {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
			}
		}
		return 0, nil, func(c echo.Context) error {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load event"})
		}
	}

	ok, err := h.Admins.CanManage(ctx, eventID, userID)
	if err != nil {
		return 0, nil, func(c echo.Context) error {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not check permissions"})
		}
	}
	if !ok {
		return 0, nil, func(c echo.Context) error {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized to manage this event"})
		}
	}
	return eventID, e, nil
}
