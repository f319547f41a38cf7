package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bookkeeping/internal/core"
	"bookkeeping/internal/ledger"
	"bookkeeping/internal/log"
	"bookkeeping/internal/sheets"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// writeDomainError maps a domain error to its status code. This is the only
// place that does so.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, r, http.StatusUnprocessableEntity, ve.Error(), ve.Field)
	case errors.Is(err, core.ErrValidation):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error(), "")
	case errors.Is(err, ledger.ErrWriteRejected):
		writeError(w, r, http.StatusServiceUnavailable, "the ledger rejected the write, please retry", "")
	case errors.Is(err, ledger.ErrStoreNotFound):
		writeError(w, r, http.StatusServiceUnavailable, "ledger store is unavailable, ask the operator to run ledger-init", "")
	case errors.Is(err, sheets.ErrTransient),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, "ledger store is busy, please retry", "")
	case errors.Is(err, context.Canceled):
		// client went away
		return
	case errors.Is(err, ledger.ErrSchemaMismatch):
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Ledger header mismatch", log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "ledger header does not match its schema", "")
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "internal error", "")
	}
}
