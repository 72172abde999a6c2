package httpapi

import (
	"errors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openshelf/circulation-go/catalog"
	"github.com/openshelf/circulation-go/circulation"
	"github.com/openshelf/circulation-go/projection"
)

// Errors returned by the constructor.
var (
	ErrNilCatalogManager     = errors.New("catalog manager must not be nil")
	ErrNilCirculationManager = errors.New("circulation manager must not be nil")
	ErrNilLogger             = errors.New("logger must not be nil")
)

// Logger is a minimal leveled logging interface.
// Intentionally identical to the one the inventory package defines, so the
// same logger instance (slog included) can serve both.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Option configures the Server.
type Option func(*Server) error

// WithReconciliationCache makes GET endpoints serve from the given cache
// instead of reading the store through the managers.
func WithReconciliationCache(cache *projection.ReconciliationCache) Option {
	return func(s *Server) error {
		s.cache = cache
		return nil
	}
}

// WithLogger supplies a logger for request failures.
func WithLogger(logger Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			return ErrNilLogger
		}

		s.logger = logger

		return nil
	}
}

// Server holds the handler dependencies and builds the router.
type Server struct {
	catalog     *catalog.Manager
	circulation *circulation.Manager
	cache       *projection.ReconciliationCache
	logger      Logger
}

// NewServer creates a Server for the given managers.
// Without WithReconciliationCache all reads go through the managers.
func NewServer(
	catalogManager *catalog.Manager,
	circulationManager *circulation.Manager,
	options ...Option,
) (*Server, error) {

	if catalogManager == nil {
		return nil, ErrNilCatalogManager
	}

	if circulationManager == nil {
		return nil, ErrNilCirculationManager
	}

	server := &Server{
		catalog:     catalogManager,
		circulation: circulationManager,
	}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, err
		}
	}

	return server, nil
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Route("/libraries", func(r chi.Router) {
		r.Get("/", s.handleListLibraries)
		r.Post("/", s.handleCreateLibrary)

		r.Route("/{libraryID}", func(r chi.Router) {
			r.Get("/", s.handleGetLibrary)
			r.Patch("/", s.handleUpdateLibrary)
			r.Delete("/", s.handleDeleteLibrary)
			r.Get("/books", s.handleListBooks)
		})
	})

	router.Route("/books", func(r chi.Router) {
		r.Post("/", s.handleCreateBook)

		r.Route("/{bookID}", func(r chi.Router) {
			r.Get("/", s.handleGetBook)
			r.Patch("/", s.handleUpdateBook)
			r.Patch("/status", s.handleUpdateBookStatus)
			r.Delete("/", s.handleDeleteBook)
			r.Get("/loans", s.handleLoansForBook)
		})
	})

	router.Route("/loans", func(r chi.Router) {
		r.Post("/", s.handleCreateLoan)
		r.Get("/overdue", s.handleOverdueLoans)
		r.Get("/{loanID}", s.handleGetLoan)
		r.Post("/{loanID}/return", s.handleReturnLoan)
	})

	router.Get("/users/{userID}/loans", s.handleActiveLoansForUser)

	return router
}

func (s *Server) logError(msg string) {
	if s.logger != nil {
		s.logger.Error(msg)
	}
}
