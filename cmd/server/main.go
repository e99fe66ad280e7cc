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

	"github.com/google/uuid"

	"studentrecords/internal/config"
	"studentrecords/internal/crypto"
	internalhttp "studentrecords/internal/http"
	"studentrecords/internal/model"
	"studentrecords/internal/storage"
	"studentrecords/internal/storage/memory"
	"studentrecords/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := setupLogger(cfg.Env)
	log.Info("starting studentrecords",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.StorageDriver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	switch cfg.StorageDriver {
	case "memory":
		store = memory.New()
	default:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("db connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pg.Close()
		store = pg
	}

	if err := seedAdmin(ctx, store, cfg, log); err != nil {
		log.Error("admin seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server := internalhttp.NewServer(cfg, store, log)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
}

// seedAdmin guarantees one Admin credential exists so the directory is
// reachable on a fresh database.
func seedAdmin(ctx context.Context, store storage.Store, cfg config.Config, log *slog.Logger) error {
	_, err := store.GetIdentityByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	hash, err := crypto.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	identity := model.Identity{
		ID:         uuid.NewString(),
		Name:       cfg.AdminName,
		Email:      cfg.AdminEmail,
		SecretHash: hash,
		Role:       model.RoleAdmin,
		CreatedAt:  time.Now().UTC(),
	}
	if err := store.CreateIdentity(ctx, identity); err != nil {
		// A concurrent boot may have seeded first.
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return nil
		}
		return err
	}

	log.Info("seeded admin", slog.String("email", cfg.AdminEmail))
	return nil
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
