package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	httpapi "github.com/VibeKonekPilipinas/vibe-konek-core/internal/api/http"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/config"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/repository"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/repository/model"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/service"
	"github.com/VibeKonekPilipinas/vibe-konek-core/lib/logger/sl"
	"github.com/VibeKonekPilipinas/vibe-konek-core/lib/logger/slogpretty"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	sessions, err := setupSessionLog(cfg.Database, log)
	if err != nil {
		log.Error("failed to connect database", sl.Err(err))
		os.Exit(1)
	}

	store := repository.NewInMemoryStateStore(cfg.Matchmaking.QueueTTL)
	matchService := service.NewMatchService(store, sessions, log, service.Options{
		QueueTTL:       cfg.Matchmaking.QueueTTL,
		SweepInterval:  cfg.Matchmaking.SweepInterval,
		PresenceTTL:    cfg.Matchmaking.PresenceTTL,
		SessionTTL:     cfg.Matchmaking.SessionTTL,
		RequeuePartner: cfg.Matchmaking.RequeuePartner,
		EventBuffer:    cfg.WebSocket.EventBuffer,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	matchService.Start(ctx)

	iceServers := cfg.WebRTC.ICEServers()
	matchController := httpapi.NewMatchController(matchService, matchService, iceServers, cfg.Matchmaking.LongPollTimeout)
	socketController := httpapi.NewSocketController(matchService, matchService, iceServers, cfg.WebSocket, cfg.HTTP.AllowOrigins, log)

	router := httpapi.SetupRouter(matchController, socketController, cfg.HTTP.AllowOrigins)

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting application", slog.String("addr", cfg.HTTP.Address), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", sl.Err(err))
	}
	// Closing the service closes every mailbox, which ends hijacked websocket connections.
	if err := matchService.Close(); err != nil {
		log.Error("service close failed", sl.Err(err))
	}
	log.Info("stopped")
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

// setupSessionLog keeps the session audit log in Postgres when a DSN is configured.
func setupSessionLog(cfg config.DatabaseConfig, log *slog.Logger) (repository.SessionLogRepository, error) {
	if cfg.DSN == "" {
		log.Info("database dsn is empty, keeping session log in memory")
		return repository.NewInMemorySessionLogRepository(), nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&model.SessionRecord{}); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return repository.NewPostgresSessionLogRepository(db), nil
}
