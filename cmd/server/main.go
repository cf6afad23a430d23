package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gitea.jw6.us/james/teamtasks/internal/api"
	appauth "gitea.jw6.us/james/teamtasks/internal/auth"
	"gitea.jw6.us/james/teamtasks/internal/calendar"
	"gitea.jw6.us/james/teamtasks/internal/chat"
	"gitea.jw6.us/james/teamtasks/internal/config"
	"gitea.jw6.us/james/teamtasks/internal/events"
	"gitea.jw6.us/james/teamtasks/internal/http"
	"gitea.jw6.us/james/teamtasks/internal/storage"
	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/tasks"
	"gitea.jw6.us/james/teamtasks/internal/ui"
)

func main() {
	log.Println("Starting TeamTasks server...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("failed to create db pool: %v", err)
	}
	defer pool.Close()

	if err := store.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}
	stor := store.New(pool)

	objects, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}
	if c, ok := objects.(io.Closer); ok {
		defer c.Close()
	}

	broker, err := newBroker(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize event broker: %v", err)
	}
	defer broker.Close()
	notifier := events.Notifier{Broker: broker}

	sessionManager := appauth.NewSessionManager(cfg)
	authService := appauth.NewService(cfg, stor, sessionManager, appauth.NewTokens(cfg.JWT.Secret))
	profiles := appauth.NewProfiles(stor, objects)
	taskService := tasks.NewService(stor, objects, notifier)
	chatService := chat.NewService(stor.Chat, objects, notifier)
	calendarService := calendar.NewService(stor.Calendar)

	r := httpserver.NewRouter(httpserver.Deps{
		Config:  cfg,
		Store:   stor,
		Auth:    authService,
		Objects: objects,
		API: api.NewHandler(api.Deps{
			Auth:           authService,
			Profiles:       profiles,
			Store:          stor,
			Tasks:          taskService,
			Chat:           chatService,
			Calendar:       calendarService,
			Broker:         broker,
			MaxUploadBytes: cfg.MaxUploadBytes,
		}),
		UI: ui.NewHandler(cfg, stor, ui.Services{
			Auth:     authService,
			Profiles: profiles,
			Tasks:    taskService,
			Chat:     chatService,
			Calendar: calendarService,
		}),
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

// newBroker fans events out through Redis when configured so several server
// replicas share one stream. A single replica can use the in-process broker.
func newBroker(ctx context.Context, cfg *config.Config) (events.Broker, error) {
	if cfg.RedisURL == "" {
		log.Printf("[INFO] events: APP_REDIS_URL not set, using in-process broker")
		return events.NewMemory(), nil
	}
	client, err := events.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return events.NewRedis(client), nil
}
