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

	httpapi "github.com/apmvoice/peerlink/internal/api/http"
	"github.com/apmvoice/peerlink/internal/clock"
	"github.com/apmvoice/peerlink/internal/config"
	"github.com/apmvoice/peerlink/internal/housekeeping"
	"github.com/apmvoice/peerlink/internal/repository"
	"github.com/apmvoice/peerlink/internal/repository/model"
	"github.com/apmvoice/peerlink/internal/service"
	"github.com/apmvoice/peerlink/internal/signaling"
	"github.com/apmvoice/peerlink/lib/logger/sl"
	"github.com/apmvoice/peerlink/lib/logger/slogpretty"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)
	clk := clock.System()

	peerRepo, sessionRepo, err := buildRepositories(cfg.Database, log)
	if err != nil {
		log.Error("failed to initialize storage", sl.Err(err))
		os.Exit(1)
	}

	peerService := service.NewPeerService(peerRepo, clk, cfg.Peers.LocalName, log)
	sessionService := service.NewSessionService(
		sessionRepo,
		peerRepo,
		clk,
		cfg.Session.CallTimeout,
		cfg.Session.PurgeRetention,
		cfg.Session.AllowBlindOverwrite,
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Peers.SeedDemo {
		if err := peerService.SeedDemoPeers(ctx); err != nil {
			log.Error("failed to seed peers", sl.Err(err))
			os.Exit(1)
		}
	}
	local, err := peerService.EnsureLocal(ctx)
	if err != nil {
		log.Error("failed to ensure local peer", sl.Err(err))
		os.Exit(1)
	}
	log.Info("local peer ready", slog.String("peer_id", local.ID))

	hub := signaling.NewHub(signaling.Config{
		Token:             cfg.Signaling.Token,
		StaleTimeout:      cfg.Signaling.StaleTimeout,
		HeartbeatInterval: cfg.Signaling.HeartbeatInterval,
		WriteWait:         cfg.Signaling.WriteWait,
	}, clk, log)

	sweeper := housekeeping.NewSweeper(sessionService, hub, cfg.Session.SweepInterval, log)
	sweeper.Start(ctx)

	peerController := httpapi.NewPeerController(peerService)
	sessionController := httpapi.NewSessionController(sessionService)
	signalingController := httpapi.NewSignalingController(hub, log)

	router := httpapi.SetupRouter(peerController, sessionController, signalingController, cfg.HTTP.CORSOrigins)

	server := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	go func() {
		log.Info("starting application", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", sl.Err(err))
	}
	hub.Shutdown()
	sweeper.Stop(cfg.HTTP.ShutdownTimeout)

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

func buildRepositories(cfg config.DatabaseConfig, log *slog.Logger) (repository.PeerRepository, repository.SessionRepository, error) {
	switch cfg.Driver {
	case "memory":
		return repository.NewInMemoryPeerRepository(), repository.NewInMemorySessionRepository(), nil
	case "sqlite", "postgres":
		db, err := connectDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Info("database connected", slog.String("driver", cfg.Driver))
		return repository.NewGormPeerRepository(db), repository.NewGormSessionRepository(db), nil
	default:
		return nil, nil, errors.New("unknown database driver: " + cfg.Driver)
	}
}

func connectDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&model.Peer{}, &model.Session{}, &model.Metadata{}); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}
