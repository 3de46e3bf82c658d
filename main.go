package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/pollboard/internal/api"
	"github.com/isdelr/pollboard/internal/auth"
	"github.com/isdelr/pollboard/internal/config"
	"github.com/isdelr/pollboard/internal/database"
	"github.com/isdelr/pollboard/internal/logger"
	"github.com/isdelr/pollboard/internal/monitoring"
	"github.com/isdelr/pollboard/internal/services"
	"github.com/isdelr/pollboard/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, auth.NewHasher(cfg.BcryptCost), eventService)
	pollService := services.NewPollService(db, eventService, hub)
	statsService := services.NewStatsService(db)

	// Set up and run the background stats updater
	statUpdater := monitoring.NewStatUpdater(eventService, cfg.StatsInterval)
	go statUpdater.Run()

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(cfg.TallySchedule, cfg.EventPruneSchedule, cfg.EventRetention, statsService, eventService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure scheduler")
	}
	scheduler.Run()

	// Set up router
	router := api.NewRouter(cfg.CORSOrigins, db, hub, userService, pollService, eventService, statsService, statUpdater)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	statUpdater.Stop() // Stop the monitoring service
	scheduler.Stop()   // Stop the scheduler
	hub.Stop()         // Disconnect websocket clients

	log.Info().Msg("Server exiting")
}
