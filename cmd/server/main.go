package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StudyVault/internal/auth"
	"StudyVault/internal/blobstore"
	"StudyVault/internal/config"
	"StudyVault/internal/handlers"
	"StudyVault/internal/middleware"
	"StudyVault/internal/repo"
	"StudyVault/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	newLogger := zap.NewDevelopment
	if cfg.LogFormat == "json" {
		newLogger = zap.NewProduction
	}
	logger, err := newLogger()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(cfg, sugar); err != nil {
		sugar.Errorw("Server failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, sugar *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN, sugar)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	blobs, err := blobstore.NewFromConfig(ctx, cfg, gormDB)
	if err != nil {
		return err
	}

	gate, err := auth.NewGate(auth.Options{
		Secret:       cfg.AuthSecret,
		Password:     cfg.AdminPassword,
		PasswordHash: cfg.AdminPasswordHash,
		TTL:          cfg.TokenTTL,
	})
	if err != nil {
		return fmt.Errorf("set ADMIN_PASSWORD or ADMIN_PASSWORD_HASH: %w", err)
	}
	if cfg.UsesDevSecret() {
		sugar.Warnw("AUTH_SECRET is not set, tokens are signed with the development key")
	}

	notes := repo.NewNoteRepository(gormDB, repo.Options{
		SlugPolicy:      repo.SlugPolicy(cfg.SlugPolicy),
		MaxSlugAttempts: cfg.SlugMaxAttempts,
	})
	catalog := service.NewCatalogService(notes, blobs, gate, cfg.Categories, sugar)

	h := handlers.NewHandler(catalog, gate, sugar, cfg)
	srv := &http.Server{
		Addr:              cfg.BaseURL,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sugar.Infow("Starting server", "addr", cfg.BaseURL)
	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"PublicURL", cfg.PublicURL,
		"BlobBackend", cfg.BlobBackend,
		"BlobMaxSizeMB", cfg.BlobMaxSizeMB,
		"SlugPolicy", cfg.SlugPolicy,
		"SweepInterval", cfg.SweepInterval,
	)

	var sweeper *service.Sweeper
	if cfg.SweepInterval > 0 {
		sweeper = service.NewSweeper(catalog, cfg.SweepGrace, sugar)
		if _, err := sweeper.Schedule(cfg.SweepInterval); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if sweeper != nil {
		g.Go(func() error { return sweeper.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		sugar.Infow("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
