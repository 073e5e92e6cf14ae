// Package server exposes the survey over HTTP: session bookkeeping, AI
// generation triggers, the lyric mix, votes, and a couple of HTML pages.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/TobiSchelling/segasurvey/internal/config"
	"github.com/TobiSchelling/segasurvey/internal/database"
	"github.com/TobiSchelling/segasurvey/internal/generate"
	"github.com/TobiSchelling/segasurvey/internal/mixer"
	"github.com/TobiSchelling/segasurvey/internal/ratelimit"
)

// Deps are the collaborators a Server is built from. Pool may be nil, in
// which case generation triggers are refused.
type Deps struct {
	DB        *database.DB
	Mixer     *mixer.Mixer
	Generator *generate.Generator
	Pool      *generate.Pool
	Config    *config.Config
	Logger    *slog.Logger
}

// Server is the HTTP server for the survey.
type Server struct {
	db        *database.DB
	mixer     *mixer.Mixer
	gen       *generate.Generator
	pool      *generate.Pool
	cfg       *config.Config
	limiter   *ratelimit.KeyedRateLimiter
	validator *Validator
	pages     map[string]*template.Template
	router    *chi.Mux
	logger    *slog.Logger
}

// New creates a new Server.
func New(d Deps) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	rpm := d.Config.Server.RequestsPerMinute
	if rpm <= 0 {
		rpm = 5
	}

	s := &Server{
		db:        d.DB,
		mixer:     d.Mixer,
		gen:       d.Generator,
		pool:      d.Pool,
		cfg:       d.Config,
		limiter:   ratelimit.PerMinute(rpm),
		validator: NewValidator(),
		pages:     pages,
		router:    chi.NewRouter(),
		logger:    d.Logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases background resources.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/", s.handleAbout)
	s.router.Get("/corpus", s.handleCorpus)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.handleUpsertSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Post("/generate", s.handleGenerate)
			r.Get("/ai-status", s.handleAIStatus)
			r.Get("/ai-lyrics", s.handleAILyrics)
		})
		r.Post("/mix", s.handleMix)
		r.Post("/votes", s.handleSaveVotes)
		r.Post("/opinion", s.handleOpinion)
		r.Post("/vote-lock", s.handleVoteLock)
		r.Post("/vote-status", s.handleVoteStatus)
	})
}

// requestLogger logs each request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) isWhitelisted(ip string) bool {
	return slices.Contains(s.cfg.Survey.WhitelistIPs, ip)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", "error", err)
		Error(w, http.StatusServiceUnavailable, "database unavailable", s.logger)
		return
	}
	Success(w, map[string]string{"status": "ok"}, s.logger)
}

// Serve runs the server on addr until ctx is canceled, then shuts down
// gracefully.
func Serve(ctx context.Context, s *Server, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", fmt.Sprintf("http://%s", addr))
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

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
