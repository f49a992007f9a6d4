package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/unblurai/unblur/config"
	"github.com/unblurai/unblur/pkg/auth"
	"github.com/unblurai/unblur/pkg/navigator"
	"github.com/unblurai/unblur/pkg/session"
	"github.com/unblurai/unblur/server/api"
	"github.com/unblurai/unblur/server/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	*config.Config

	http.Handler

	store *session.Store

	api *api.Handler
	web *web.Handler
}

func New(cfg *config.Config) (*Server, error) {
	store := session.NewStore()

	apiHandler, err := api.New(cfg.Recognizer)

	if err != nil {
		return nil, err
	}

	webHandler, err := web.New(navigator.Default(), store, cfg.Recognizer)

	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	s := &Server{
		Config: cfg,

		store: store,

		api: apiHandler,
		web: webHandler,
	}

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.NotFound(webHandler.NotFound)

	r.Route("/api", func(r chi.Router) {
		apiHandler.AttachPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Authorizers...))

			apiHandler.Attach(r)
			webHandler.AttachSession(r)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Authorizers...))

		webHandler.Attach(r)
	})

	s.Handler = otelhttp.NewHandler(r, "unblur",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/api/health"
		}),
	)

	return s, nil
}

// ListenAndServe serves until ctx is cancelled and then drains running
// requests and recognitions.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Address,
		Handler: s,
	}

	go s.prune(ctx)

	errCh := make(chan error, 1)

	go func() {
		slog.Info("server listening", "address", s.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err

	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)

	s.web.Wait()

	return err
}

func (s *Server) prune(ctx context.Context) {
	interval := min(s.SessionTTL, time.Hour)

	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if n := s.store.Prune(s.SessionTTL); n > 0 {
				slog.Info("pruned idle sessions", "count", n)
			}
		}
	}
}
