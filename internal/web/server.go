package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/justestif/go-movie-watchlist/internal/auth"
	"github.com/justestif/go-movie-watchlist/internal/catalog"
	"github.com/justestif/go-movie-watchlist/internal/watchlist"
)

const (
	// DefaultAddr is the default server address.
	DefaultAddr = "127.0.0.1:8080"

	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	TemplatesFS fs.FS
	StaticFS    fs.FS

	// Secret signs flash cookies. Session cookies are signed by Sessions.
	Secret       []byte
	SecureCookie bool

	// LoginRate and LoginBurst configure the per-client login attempt limiter.
	LoginRate  rate.Limit
	LoginBurst int

	// ImageBaseURL is prefixed to poster paths.
	ImageBaseURL string

	Accounts *auth.Store
	Catalog  *catalog.Mirror
	Watches  *watchlist.Service
	Sessions SessionManager
	Health   Pinger
	Logger   *log.Logger
}

// Server is the HTTP server for the web application.
type Server struct {
	router          chi.Router
	server          *http.Server
	handlers        *Handlers
	logger          *log.Logger
	shutdownTimeout time.Duration
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr)
	}

	handlers := &Handlers{
		accounts:     cfg.Accounts,
		catalog:      cfg.Catalog,
		watches:      cfg.Watches,
		sessions:     cfg.Sessions,
		flashes:      newFlashes(cfg.Secret, cfg.SecureCookie),
		templates:    templates,
		limiter:      newLoginLimiter(cfg.LoginRate, cfg.LoginBurst),
		health:       cfg.Health,
		imageBaseURL: cfg.ImageBaseURL,
		logger:       logger.With("component", "web"),
	}

	router := chi.NewRouter()

	s := &Server{
		router:          router,
		handlers:        handlers,
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = defaultShutdownTimeout
	}

	// Configure middleware
	s.setupMiddleware(cfg.Sessions)

	// Configure routes
	s.setupRoutes(cfg.StaticFS)

	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s, nil
}

// ServeHTTP lets the server be driven directly, as in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware(sessions SessionManager) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger.With("component", "http")))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(loadSession(sessions))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(staticFS fs.FS) {
	h := s.handlers

	s.router.NotFound(h.NotFound)
	s.router.MethodNotAllowed(h.NotFound)

	// Static files
	if staticFS != nil {
		fileServer := http.FileServer(http.FS(staticFS))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	s.router.Get("/healthz", h.Health)

	// Pages
	s.router.Get("/", h.Home)
	s.router.With(requireAuth("/")).Post("/", h.Create)

	// Auth routes
	s.router.Get("/login", h.LoginForm)
	s.router.Post("/login", h.Login)

	s.router.Group(func(r chi.Router) {
		r.Use(requireAuth("/login"))

		r.Get("/logout", h.Logout)
		r.Get("/watch/edit/{id}", h.EditForm)
		r.Post("/watch/edit/{id}", h.EditSubmit)
		r.Post("/watch/delete/{id}", h.Delete)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "url", "http://"+s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals
// or when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
