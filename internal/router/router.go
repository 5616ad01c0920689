// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/openpass/event-checkin/internal/config"
	"github.com/openpass/event-checkin/internal/handler"
	"github.com/openpass/event-checkin/internal/middleware"
)

// Handlers bundles every handler the router needs.
type Handlers struct {
	Auth    *handler.AuthHandler
	Events  *handler.EventHandler
	Admins  *handler.AdminHandler
	Tickets *handler.TicketHandler
	Scan    *handler.ScanHandler
}

// Register mounts the full API surface on the Echo instance.
//
// Route groups:
//   - /healthz and the public event reads need no authentication;
//   - /auth handles session lifecycle (signup/login/refresh/logout);
//   - event management, ticket issuance and admin bindings sit behind
//     JWT auth, with per-event guards inside the handlers;
//   - /scan is unauthenticated (door hardware holds no session) and
//     rate limited instead.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	auth := e.Group("/auth")
	auth.POST("/signup", h.Auth.Signup)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/me", h.Auth.Me, middleware.JWTAuth(cfg.JWTSecret))

	// Public event reads, cached when Redis is available.
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)
	e.GET("/events", h.Events.List, cache)
	e.GET("/events/:id", h.Events.Get, cache)

	// Management surface. Every route below requires a session; the
	// handlers additionally check per-event management rights.
	jwt := middleware.JWTAuth(cfg.JWTSecret)
	events := e.Group("/events", jwt)
	events.POST("", h.Events.Create)
	events.DELETE("/:id", h.Events.Delete)

	events.POST("/:id/tickets", h.Tickets.IssueOne)
	events.POST("/:id/tickets/bulk", h.Tickets.IssueBulk)
	events.GET("/:id/tickets", h.Tickets.List)

	events.POST("/:id/admins", h.Admins.Add)
	events.GET("/:id/admins", h.Admins.List)
	events.DELETE("/:id/admins/:userID", h.Admins.Remove)

	// Scanners authenticate with nothing but the token they present,
	// so the endpoint is throttled per source IP.
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	e.POST("/scan", h.Scan.Scan, limiter)
}
