package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bookkeeping/internal/core"
	"bookkeeping/internal/log"
	"bookkeeping/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Options configures NewServer. Recorders left nil are not mounted.
type Options struct {
	Addr           string
	Reimbursements *services.Recorder[core.Reimbursement]
	Expenses       *services.Recorder[core.Expense]
	DefaultUser    string
	WriteRateLimit int
	ForceSSL       bool
	// Ready is called by /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
}

// Server is the JSON API in front of the two ledgers.
type Server struct {
	http.Server
	opts         Options
	roster       core.Roster
	started      time.Time
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.WriteRateLimit <= 0 {
		opts.WriteRateLimit = 30
	}

	s := &Server{
		opts:    opts,
		started: time.Now(),
		logger:  logger.WithComponent(log.ComponentHTTP),
	}
	switch {
	case opts.Reimbursements != nil:
		s.roster = opts.Reimbursements.Roster()
	case opts.Expenses != nil:
		s.roster = opts.Expenses.Roster()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(log.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(opts.ForceSSL))
	r.Use(rejectProbes)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		limit := writeLimiter(opts.WriteRateLimit)
		if opts.Reimbursements != nil {
			h := &ledgerHandler[core.Reimbursement]{
				rec:   opts.Reimbursements,
				parse: parseReimbursement,
				dims:  []core.Dimension{core.DimProject, core.DimUser, core.DimCategory},
			}
			r.Mount("/ledgers/"+string(core.KindReimbursement), h.routes(limit))
		}
		if opts.Expenses != nil {
			h := &ledgerHandler[core.Expense]{
				rec:   opts.Expenses,
				parse: parseExpense,
				dims:  []core.Dimension{core.DimItem},
			}
			r.Mount("/ledgers/"+string(core.KindExpense), h.routes(limit))
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", "")
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutting down HTTP server")
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
