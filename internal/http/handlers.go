package http

import (
	"context"
	"net/http"
	"time"

	"bookkeeping/internal/core"
	"bookkeeping/internal/ledger"
	"bookkeeping/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the ledgers can still be opened.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := s.opts.Ready(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type ledgerInfo struct {
	Kind   core.LedgerKind `json:"kind"`
	Name   string          `json:"name"`
	Title  string          `json:"title"`
	Header []string        `json:"header"`
}

type optionsResponse struct {
	Users        []string           `json:"users"`
	DefaultUser  string             `json:"default_user,omitempty"`
	Categories   []core.Category    `json:"categories"`
	ProjectKinds []core.ProjectKind `json:"project_kinds"`
	Ledgers      []ledgerInfo       `json:"ledgers"`
}

func info[R core.Record](l *ledger.Ledger[R]) ledgerInfo {
	schema := l.Schema()
	return ledgerInfo{Kind: l.Kind(), Name: l.Name(), Title: schema.Title, Header: schema.Header}
}

// handleOptions returns what an entry form needs to render.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	resp := optionsResponse{
		Users:        s.roster,
		DefaultUser:  s.opts.DefaultUser,
		Categories:   core.Categories,
		ProjectKinds: core.ProjectKinds,
		Ledgers:      []ledgerInfo{},
	}
	if s.opts.Reimbursements != nil {
		resp.Ledgers = append(resp.Ledgers, info(s.opts.Reimbursements.Ledger()))
	}
	if s.opts.Expenses != nil {
		resp.Ledgers = append(resp.Ledgers, info(s.opts.Expenses.Ledger()))
	}
	if resp.Users == nil {
		resp.Users = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}
