// Package handler contains the HTTP handlers for the check-in API.
// Handlers bind and validate the request, call into repositories or
// services, and translate repository sentinel errors into status codes.
package handler

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// getUserID reads the authenticated user id set by the JWT middleware.
// Claims decode as float64 when they round-trip through encoding/json,
// so every plausible representation is accepted.
func getUserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case uint64:
		return v, nil
	case int:
		return uint64(v), nil
	case int64:
		return uint64(v), nil
	case float64:
		return uint64(v), nil
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse user id: %w", err)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("missing user id in context")
	}
}

// parseID parses a numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
