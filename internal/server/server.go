package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/desertthunder/tunebox/internal/tasks"
)

const shutdownGrace = 10 * time.Second

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, request ids, CORS and panic recovery.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own one or more routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Server is the tunebox HTTP server.
type Server struct {
	config shared.ServerConfig
	router *BasicRouter
	http   *http.Server
	logger *log.Logger
}

// New builds the router with every route and middleware registered.
func New(config shared.ServerConfig, library *tasks.Library, botToken string, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "server")

	router := NewBasicRouter()
	router.Use(RequestID(), Recover(logger), Logging(logger), CORS(config.AllowedOrigins))

	verifyToken := ""
	if config.VerifyInitData {
		verifyToken = botToken
		if verifyToken == "" {
			logger.Warn("verify_init_data is enabled but no bot token is configured; signatures are not checked")
		}
	}

	router.Handler(NewAuthHandler(verifyToken, logger))
	router.Handler(NewPlaylistHandler(library, logger))
	router.Handler(NewTrackHandler(library, config.MaxUploadBytes(), logger))
	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	if config.StaticDir != "" {
		router.Handle(http.MethodGet, "/", NewStaticHandler(config.StaticDir))
	}

	return &Server{
		config: config,
		router: router,
		logger: logger,
		http: &http.Server{
			Addr:              config.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the root handler, used by tests and embedding callers.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.http.Addr }

// Run listens until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.http.Addr)
		errc <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "grace", shutdownGrace)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
