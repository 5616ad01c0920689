package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openpass/event-checkin/internal/scan"
)

// ScanHandler exposes the check-in endpoint used by door scanners.
// Every business outcome is a 200 verdict so scanner firmware only
// branches on the verdict body; non-200 means infrastructure trouble.
type ScanHandler struct {
	Scanner *scan.Service
}

func NewScanHandler(s *scan.Service) *ScanHandler {
	return &ScanHandler{Scanner: s}
}

type scanReq struct {
	Token string `json:"token"`
}

// Scan validates a ticket token and admits the holder at most once.
func (h *ScanHandler) Scan(c echo.Context) error {
	var req scanReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	verdict, err := h.Scanner.Scan(ctx, req.Token)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not process scan"})
	}
	return c.JSON(http.StatusOK, verdict)
}
