// Entry point for the Fairway Live API server: live golf competition tracking
// with handicap-adjusted Stableford scoring and real-time leaderboard updates.
// The cmd/ folder holds executable binaries; internal/ holds packages not meant
// to be imported by other projects.
package main

import (
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/reidmcb/fairway-live/internal/config"
	"github.com/reidmcb/fairway-live/internal/database"
	"github.com/reidmcb/fairway-live/internal/handlers"
	"github.com/reidmcb/fairway-live/internal/middleware"
	"github.com/reidmcb/fairway-live/internal/notify"
	"github.com/reidmcb/fairway-live/internal/reconcile"
	"github.com/reidmcb/fairway-live/internal/scoring"
	"github.com/reidmcb/fairway-live/internal/store"
	"github.com/reidmcb/fairway-live/internal/websocket"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}

	st := store.NewGormStore(db)

	// The hub fans broadcasts out to per-competition channels; the deduper is
	// the process-wide signature cache that collapses duplicate event triggers.
	hub := websocket.NewHub()
	go hub.Run()
	dedupe := notify.NewDeduper(cfg.DedupTTL)
	defer dedupe.Close()

	notifier := notify.New(hub, dedupe, log)
	points := scoring.NewRecomputer(st, log)
	reconciler := reconcile.New(st, log)

	app := fiber.New(fiber.Config{
		AppName: "Fairway Live API",
	})
	app.Use(logger.New())
	app.Use(cors.New())

	// Public routes.
	app.Get("/health", handlers.HealthCheck)

	// Live updates: one websocket per viewer, joined to the channel of the
	// competition in the URL. Join/leave is connection-scoped; auth is not
	// required to watch.
	app.Use("/live", handlers.LiveUpgrade())
	app.Get("/live/:competitionId", handlers.Live(hub, notifier, log))

	// Authenticated API routes.
	api := app.Group("/api/v1", middleware.Auth(cfg, db))

	api.Post("/competitions", middleware.RequireRole("admin", "manager"), handlers.CreateCompetition(st))
	api.Get("/competitions/:id", handlers.GetCompetition(st))
	api.Put("/competitions/:id/groups", handlers.UpdateGroups(st, reconciler, points, hub, log))
	api.Put("/competitions/:id/teams/:teamId/players/:player/scores",
		handlers.UpsertPlayerScores(st, points, notifier, hub, log))
	api.Put("/teams/:teamId/players/:player",
		handlers.UpdatePlayerAttributes(st, points, notifier, hub, log))

	log.Info("starting server", "port", cfg.Port, "env", cfg.Env)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
