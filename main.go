package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"recipebox/config"
	"recipebox/likes"
	"recipebox/middleware"
	"recipebox/recipes"
	"recipebox/storage"
	"recipebox/store"
	"recipebox/users"
	"recipebox/web"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.MySQL.DSN)
	if err != nil {
		return err
	}
	if err := store.Migrate(db); err != nil {
		return err
	}

	images, err := storage.New(cfg.Minio)
	if err != nil {
		return err
	}
	if err := images.EnsureBucket(ctx); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	recipeStore := store.NewRecipeStore(db)
	go likes.NewSyncer(rdb, recipeStore, cfg.Likes.SyncInterval).Run(ctx)

	counter := likes.NewCounter(rdb)
	tokens := middleware.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL)
	svc := recipes.NewService(recipeStore, images, counter)
	dir := users.NewDirectory(store.NewUserStore(db), recipeStore, tokens, counter, images)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: web.NewServer(svc, dir, tokens, images).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	slog.Info("Shutting down")
	return srv.Shutdown(shutdownCtx)
}
