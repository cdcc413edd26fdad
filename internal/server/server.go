// Package server exposes the layout and onboarding services over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/goliatone/go-formwizard/pkg/account"
	"github.com/goliatone/go-formwizard/pkg/layout"
)

// LayoutService is the layout half of the backend.
type LayoutService interface {
	FetchAdminLayout(ctx context.Context) (*layout.Form, error)
	FetchFrontendLayout(ctx context.Context) (*layout.Form, error)
	SaveLayout(ctx context.Context, form *layout.Form) (*layout.Form, error)
}

// UserService is the onboarding half of the backend.
type UserService interface {
	UpdateFieldValue(ctx context.Context, update account.FieldUpdate) (account.User, error)
	Authenticate(ctx context.Context, email, password string) (account.AuthResult, error)
	ListUsers(ctx context.Context) ([]account.User, error)
	UserExists(ctx context.Context, email string) (bool, error)
	UserByEmail(ctx context.Context, email string) (account.User, error)
}

// Server routes API requests to the services.
type Server struct {
	layouts  LayoutService
	users    UserService
	contract *Contract
	spec     []byte
	logger   *slog.Logger
	maxBody  int64
	router   *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithContract enables request validation against contract and serves the
// raw document at /openapi.yaml.
func WithContract(contract *Contract, raw []byte) Option {
	return func(s *Server) {
		s.contract = contract
		s.spec = raw
	}
}

// WithMaxBodyBytes caps request bodies. Defaults to 1 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// New builds the server and its routes.
func New(layouts LayoutService, users UserService, opts ...Option) *Server {
	s := &Server{
		layouts: layouts,
		users:   users,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxBody: 1 << 20,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverPanics, s.requestID, s.logRequests, s.limitBodies)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.spec != nil {
		r.HandleFunc("/openapi.yaml", s.handleSpec).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.validateRequests)
	api.HandleFunc("/layout/admin", s.handleAdminLayout).Methods(http.MethodGet)
	api.HandleFunc("/layout/frontend", s.handleFrontendLayout).Methods(http.MethodGet)
	api.HandleFunc("/layout", s.handleSaveLayout).Methods(http.MethodPut)
	api.HandleFunc("/users/onboarding", s.handleUpdateField).Methods(http.MethodPost)
	api.HandleFunc("/auth", s.handleAuthenticate).Methods(http.MethodPost)
	api.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/exists", s.handleUserExists).Methods(http.MethodGet)
	api.HandleFunc("/users/by-email", s.handleUserByEmail).Methods(http.MethodGet)
	return r
}

func (s *Server) limitBodies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests for up to grace.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
