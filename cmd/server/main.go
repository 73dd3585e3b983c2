package main

//go:generate swag init --dir ../../ --generalInfo cmd/server/main.go --output ../../docs --parseInternal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "polls-service/docs"
	"polls-service/internal/config"
	"polls-service/internal/domain/poll"
	"polls-service/internal/domain/user"
	"polls-service/internal/domain/vote"
	api "polls-service/internal/http"
	"polls-service/internal/metrics"
	"polls-service/internal/platform/database"
	jwtpkg "polls-service/internal/platform/jwt"
	"polls-service/internal/repository/sqlstore"
	"polls-service/internal/worker"
)

// @title                       Polls Service API
// @version                     1.0
// @description                 Poll creation, one-vote-per-user voting and live results with JWT auth
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Config{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DBDSN,
		MaxOpenConns: cfg.DBMaxOpen,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected", "driver", cfg.DBDriver)

	if cfg.DBAutoMigrate {
		if err := database.CreateSchema(ctx, db, cfg.DBDriver); err != nil {
			return err
		}
		logger.Info("schema ready")
	}

	store := sqlstore.New(db, cfg.DBDriver, logger)

	userSvc := user.NewService(store.Users)
	pollSvc := poll.NewService(store.Polls)
	voteSvc := vote.NewService(store.Votes)

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret, cfg.JWTIssuer)

	metrics.Register()

	voteCh := make(chan worker.VoteEvent, 100)
	statsWorker := worker.NewStatsWorker(voteCh, logger)

	router := api.NewRouter(userSvc, pollSvc, voteSvc, jwtMgr, voteCh, db, api.Options{
		TokenTTL:          cfg.TokenTTL,
		CORSOrigin:        cfg.CORSOrigin,
		APIRatePer15m:     cfg.APIRatePer15m,
		VoteRatePerMinute: cfg.VoteRatePerMinute,
		CreateRatePer15m:  cfg.CreateRatePer15m,
		AuthRatePer15m:    cfg.AuthRatePer15m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		statsWorker.Run(workerCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		cancelWorker()
		wg.Wait()
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	err = srv.Shutdown(shutdownCtx)
	cancelWorker()
	wg.Wait()
	if err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
