package http

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"bookkeeping/internal/aggregate"
	"bookkeeping/internal/core"
	"bookkeeping/internal/export"
	"bookkeeping/internal/ledger"
	"bookkeeping/internal/log"
	"bookkeeping/internal/services"

	"github.com/go-chi/chi/v5"
)

// ledgerHandler serves one ledger kind.
type ledgerHandler[R core.Record] struct {
	rec   *services.Recorder[R]
	parse func(p *RequestBodyParser, user string) (R, error)
	// dims are the dimensions the record variant can be grouped on; the
	// first is the default.
	dims []core.Dimension
}

func (h *ledgerHandler[R]) routes(limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(limit).Post("/records", h.handleCreate)
	r.Get("/records", h.handleList)
	r.Get("/summary", h.handleSummary)
	r.Get("/export.csv", h.handleExportCSV)
	r.Get("/export.xlsx", h.handleExportXLSX)
	return r
}

func (h *ledgerHandler[R]) session(user string) services.Session {
	return services.Session{User: user, Kind: h.rec.Ledger().Kind()}
}

type createResponse[R core.Record] struct {
	Ledger string   `json:"ledger"`
	Record R        `json:"record"`
	Cells  []string `json:"cells"`
}

func (h *ledgerHandler[R]) handleCreate(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body", "")
		return
	}

	user := p.Get("user")
	if user == "" {
		user = sanitizeInput(r.URL.Query().Get("user"))
	}

	rec, err := h.parse(p, user)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	l := h.rec.Ledger()
	if err := h.rec.Submit(r.Context(), h.session(user), rec); err != nil {
		writeDomainError(w, r, err)
		return
	}

	log.FromContext(r.Context()).DebugContext(r.Context(), "Submitted record",
		log.FieldLedger, l.Name(), log.FieldUser, user, log.FieldAmount, rec.Value().String())
	writeJSON(w, http.StatusCreated, createResponse[R]{Ledger: l.Name(), Record: rec, Cells: l.Row(rec)})
}

type entryView[R core.Record] struct {
	Row             int    `json:"row"`
	Record          R      `json:"record"`
	MalformedAmount bool   `json:"malformed_amount,omitempty"`
	MalformedDate   bool   `json:"malformed_date,omitempty"`
	RawAmount       string `json:"raw_amount,omitempty"`
}

type listResponse[R core.Record] struct {
	Ledger  string          `json:"ledger"`
	Header  []string        `json:"header"`
	Entries []entryView[R]  `json:"entries"`
	Total   aggregate.Group `json:"total"`
}

// snapshot reads the ledger and applies the query filters.
func (h *ledgerHandler[R]) snapshot(w http.ResponseWriter, r *http.Request) ([]ledger.Entry[R], bool) {
	preds, err := ParsePredicates(r.URL.Query())
	if err != nil {
		writeDomainError(w, r, err)
		return nil, false
	}
	entries, err := h.rec.Snapshot(r.Context(), h.session(""))
	if err != nil {
		writeDomainError(w, r, err)
		return nil, false
	}
	if preds.Empty() {
		return entries, true
	}
	kept := entries[:0]
	for _, e := range entries {
		if preds.Match(e.Record) {
			kept = append(kept, e)
		}
	}
	return kept, true
}

func (h *ledgerHandler[R]) handleList(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	l := h.rec.Ledger()
	resp := listResponse[R]{
		Ledger:  l.Name(),
		Header:  l.Schema().Header,
		Entries: make([]entryView[R], 0, len(entries)),
		Total:   aggregate.Total(ledger.Records(entries)),
	}
	for _, e := range entries {
		v := entryView[R]{
			Row:             e.Row,
			Record:          e.Record,
			MalformedAmount: e.MalformedAmount(),
			MalformedDate:   e.MalformedDate(),
		}
		if v.MalformedAmount {
			v.RawAmount = e.Record.Value().Raw
		}
		resp.Entries = append(resp.Entries, v)
	}
	writeJSON(w, http.StatusOK, resp)
}

type summaryResponse struct {
	Ledger string            `json:"ledger"`
	By     core.Dimension    `json:"by"`
	Groups []aggregate.Group `json:"groups"`
	Total  aggregate.Group   `json:"total"`
	From   core.Date         `json:"from"`
	To     core.Date         `json:"to"`
}

func (h *ledgerHandler[R]) handleSummary(w http.ResponseWriter, r *http.Request) {
	by := h.dims[0]
	if v := strings.TrimSpace(r.URL.Query().Get("by")); v != "" {
		by = core.Dimension(v)
		if !slices.Contains(h.dims, by) {
			writeError(w, r, http.StatusBadRequest, "cannot group this ledger by "+strconv.Quote(v), "by")
			return
		}
	}

	entries, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	records := ledger.Records(entries)
	from, to, _ := aggregate.DateBounds(records)
	writeJSON(w, http.StatusOK, summaryResponse{
		Ledger: h.rec.Ledger().Name(),
		By:     by,
		Groups: aggregate.Summarize(records, by),
		Total:  aggregate.Total(records),
		From:   from,
		To:     to,
	})
}

func (h *ledgerHandler[R]) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "csv", "text/csv; charset=utf-8", export.WriteCSV[R])
}

func (h *ledgerHandler[R]) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.WriteXLSX[R])
}

func (h *ledgerHandler[R]) export(w http.ResponseWriter, r *http.Request, ext, contentType string,
	write func(w io.Writer, schema ledger.Schema[R], records []R) error) {
	entries, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	l := h.rec.Ledger()
	// Buffered so a failed render still gets a proper error status.
	var buf bytes.Buffer
	if err := write(&buf, l.Schema(), ledger.Records(entries)); err != nil {
		writeDomainError(w, r, err)
		return
	}

	name := export.Filename(l.Schema().Title, time.Now(), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
