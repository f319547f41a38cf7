package log

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentLedger, Format: "json", Output: &buf})
	l.Info("ledger opened", FieldLedger, "报销记录")
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"component":"ledger"`)
	assert.Contains(t, out, `"ledger":"报销记录"`)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentApp, Output: &buf})

	var fromCtx *Logger
	h := middleware.RequestID(RequestLogger(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/options?x=1", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	if assert.NotNil(t, fromCtx) {
		assert.Equal(t, ComponentHTTP, fromCtx.Component())
	}
	out := buf.String()
	assert.Contains(t, out, "HTTP request completed")
	assert.Contains(t, out, "status_code=418")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "request_id=")
}

func TestFieldsSorted(t *testing.T) {
	s := NewFields().WithOperation(OpAppend).WithLedger("expense", "bookkeeping", "支出记录").ToSlice()
	assert.Equal(t, []any{
		FieldKind, "expense",
		FieldLedger, "支出记录",
		FieldOperation, OpAppend,
		FieldStore, "bookkeeping",
	}, s)
}
