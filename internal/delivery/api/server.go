// Package api exposes the progression worker over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
	"github.com/aliskhannn/chorequest-bot/internal/service"
)

// TransitionHandler applies upstream chore transitions.
type TransitionHandler interface {
	HandleTransition(ctx context.Context, t entities.ChoreTransition) (*service.Outcome, error)
}

// ProgressReader reads user progress.
type ProgressReader interface {
	GetProgress(ctx context.Context, userID string) (*entities.UserProgress, error)
}

// AchievementLister lists user achievements.
type AchievementLister interface {
	List(ctx context.Context, userID string) ([]*entities.Achievement, error)
}

// PraiseSender delivers praise messages.
type PraiseSender interface {
	Send(ctx context.Context, req entities.PraiseRequest) (*service.PraiseResult, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Transitions  TransitionHandler
	Progress     ProgressReader
	Achievements AchievementLister
	Praise       PraiseSender
	Ready        func(ctx context.Context) error // optional readiness probe
}

// Server represents the HTTP API server.
type Server struct {
	deps    Deps
	router  *chi.Mux
	timeout time.Duration
	logger  *zap.Logger
}

// NewServer creates a new API server.
func NewServer(deps Deps, timeout time.Duration, logger *zap.Logger) *Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Server{
		deps:    deps,
		timeout: timeout,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/transitions", s.handleTransition)
		r.Post("/praises", s.handlePraise)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/progress", s.handleGetProgress)
			r.Get("/achievements", s.handleListAchievements)
		})
	})

	s.router = r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// ListenAndServe runs the server until ctx is cancelled, then shuts it down.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("http server stopped")
	return nil
}
