package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openpass/event-checkin/internal/model"
	"github.com/openpass/event-checkin/internal/repository"
)

// AdminStore is the slice of the admin-binding repository the handler
// uses, extended over Authorizer with the mutation operations.
type AdminStore interface {
	Authorizer
	Add(ctx context.Context, eventID, userID uint64, role string) error
	ListByEvent(ctx context.Context, eventID uint64) ([]repository.AdminBinding, error)
	Remove(ctx context.Context, eventID, userID uint64) error
}

// UserLookup resolves e-mail addresses to users when granting roles.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// AdminHandler manages per-event role bindings. Every route requires
// management rights on the event.
type AdminHandler struct {
	Events EventStore
	Admins AdminStore
	Users  UserLookup
}

func NewAdminHandler(events EventStore, admins AdminStore, users UserLookup) *AdminHandler {
	return &AdminHandler{Events: events, Admins: admins, Users: users}
}

type addAdminReq struct {
	UserEmail string `json:"user_email"`
	Role      string `json:"role"`
}

// Add grants a role on an event to the user with the given e-mail.
// Role defaults to SCANNER_ONLY when omitted.
func (h *AdminHandler) Add(c echo.Context) error {
	_, eventID, errResp := h.guard(c)
	if errResp != nil {
		return errResp(c)
	}

	var req addAdminReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.UserEmail = strings.TrimSpace(strings.ToLower(req.UserEmail))
	if req.UserEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_email is required"})
	}
	if req.Role == "" {
		req.Role = model.RoleScannerOnly
	}
	if req.Role != model.RoleOwner && req.Role != model.RoleScannerOnly {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be OWNER or SCANNER_ONLY"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.UserEmail)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	if err := h.Admins.Add(ctx, eventID, u.ID, req.Role); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "user is already an admin of this event"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not add admin"})
	}
	return c.JSON(http.StatusCreated, repository.AdminBinding{
		UserID:    u.ID,
		UserEmail: u.Email,
		UserName:  u.Name,
		Role:      req.Role,
	})
}

// List returns the admin bindings of an event.
func (h *AdminHandler) List(c echo.Context) error {
	_, eventID, errResp := h.guard(c)
	if errResp != nil {
		return errResp(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bindings, err := h.Admins.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list admins"})
	}
	return c.JSON(http.StatusOK, bindings)
}

// Remove revokes a user's binding on an event.
func (h *AdminHandler) Remove(c echo.Context) error {
	_, eventID, errResp := h.guard(c)
	if errResp != nil {
		return errResp(c)
	}
	targetID, err := parseID(c, "userID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Admins.Remove(ctx, eventID, targetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "admin binding not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not remove admin"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "admin removed"})
}

// guard verifies the event exists and the caller may manage it. It
// returns a ready error responder when the request must be rejected.
func (h *AdminHandler) guard(c echo.Context) (userID, eventID uint64, reject func(echo.Context) error) {
	userID, err := getUserID(c)
	if err != nil {
		return 0, 0, func(c echo.Context) error {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
	}
	eventID, err = parseID(c, "id")
	if err != nil {
		return 0, 0, func(c echo.Context) error {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return 0, 0, func(c echo.Context) error {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
			}
		}
		return 0, 0, func(c echo.Context) error {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load event"})
		}
	}

	ok, err := h.Admins.CanManage(ctx, eventID, userID)
	if err != nil {
		return 0, 0, func(c echo.Context) error {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not check permissions"})
		}
	}
	if !ok {
		return 0, 0, func(c echo.Context) error {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not authorized to manage this event"})
		}
	}
	return userID, eventID, nil
}
