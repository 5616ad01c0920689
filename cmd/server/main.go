// Command server runs the event check-in API: ticket issuance,
// event and admin management, and the scan gateway used at the door.
package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openpass/event-checkin/internal/config"
	"github.com/openpass/event-checkin/internal/database"
	"github.com/openpass/event-checkin/internal/handler"
	"github.com/openpass/event-checkin/internal/mailer"
	"github.com/openpass/event-checkin/internal/queue"
	"github.com/openpass/event-checkin/internal/repository"
	"github.com/openpass/event-checkin/internal/router"
	"github.com/openpass/event-checkin/internal/scan"
	"github.com/openpass/event-checkin/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogger(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer func() { _ = db.Close() }()

	// Redis is optional; rate limiting and response caching disable
	// themselves when it is absent.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	admins := repository.NewEventAdminRepo(db)
	tickets := repository.NewTicketRepo(db)

	scanner := scan.NewService(tickets)

	ticketHandler := handler.NewTicketHandler(events, tickets, admins)
	ticketHandler.Publish = service.PublishTicketIssued

	h := router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users, tokens),
		Events:  handler.NewEventHandler(events, admins),
		Admins:  handler.NewAdminHandler(events, admins, users),
		Tickets: ticketHandler,
		Scan:    handler.NewScanHandler(scanner),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	router.Register(e, h, cfg, rdb)

	// Background consumer turns issuance messages into e-mails. It
	// reconnects on its own; a missing broker only costs e-mails.
	go queue.StartTicketConsumer(mailer.NewFromEnv())

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// setupLogger configures zerolog globally: pretty console output in
// dev, structured JSON elsewhere.
func setupLogger(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "dev" || env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
