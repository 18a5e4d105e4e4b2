package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Pjt727/homeroom/config"
	serverfeeds "github.com/Pjt727/homeroom/server/feeds"
	serversync "github.com/Pjt727/homeroom/server/sync"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const shutdownGrace = 10 * time.Second

type Deps struct {
	Syncer serversync.Syncer
	// optional, enables /sync/watch
	Hub *serversync.Hub
	// optional, enables /feeds
	Feeds  serverfeeds.Renderer
	Logger *slog.Logger
}

func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := chi.NewRouter()
	cors := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type", "X-CSRF-Token",
			serversync.UserIDHeader, serversync.UserEmailHeader,
		},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum age for preflight requests
	})
	r.Use(cors.Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	r.Route("/sync", func(r chi.Router) {
		serversync.PopulateSyncRoutes(&r, deps.Syncer, deps.Hub, deps.Logger)
	})
	if deps.Feeds != nil {
		r.Route("/feeds", func(r chi.Router) {
			serverfeeds.PopulateFeedRoutes(&r, deps.Feeds, deps.Logger)
		})
	}
	return r
}

// Serve blocks until ctx is done, then drains in flight requests
func Serve(ctx context.Context, cfg *config.Config, deps Deps) error {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewRouter(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Running server on", "addr", listenAddr(cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func listenAddr(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "localhost" + listen
	}
	return listen
}
