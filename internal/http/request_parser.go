// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// record bodies (JSON or form encoded) and listing filters.

package http

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bookkeeping/internal/aggregate"
	"bookkeeping/internal/core"
)

const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := bytes.TrimSpace(p.body)
	if len(body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func amountField(s string) (core.Amount, error) {
	a, err := core.ParseAmount(s)
	if err != nil {
		return core.Amount{}, &core.ValidationError{Field: "amount", Reason: err.Error()}
	}
	return a, nil
}

func dateField(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: "date", Reason: err.Error()}
	}
	return d, nil
}

// parseReimbursement builds a record from the body. The person reimbursed is
// reimbursement_user when given, otherwise the submitter.
func parseReimbursement(p *RequestBodyParser, user string) (core.Reimbursement, error) {
	date, err := dateField(p.Get("date"))
	if err != nil {
		return core.Reimbursement{}, err
	}
	amount, err := amountField(p.Get("amount"))
	if err != nil {
		return core.Reimbursement{}, err
	}
	return core.Reimbursement{
		ProjectCode: strings.ToUpper(p.Get("project_code")),
		Date:        date,
		Category:    core.Category(p.Get("category")),
		Amount:      amount,
		User:        cmp.Or(p.Get("reimbursement_user"), user),
		Note:        p.Get("note"),
	}, nil
}

func parseExpense(p *RequestBodyParser, _ string) (core.Expense, error) {
	date, err := dateField(p.Get("date"))
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := amountField(p.Get("amount"))
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Date:   date,
		Item:   p.Get("item"),
		Amount: amount,
		Note:   p.Get("note"),
	}, nil
}

var filterDimensions = []core.Dimension{core.DimProject, core.DimUser, core.DimCategory, core.DimItem}

// ParsePredicates reads the listing filters from a query string. Every
// dimension may repeat; from and to are inclusive dates.
func ParsePredicates(query url.Values) (aggregate.Predicates, error) {
	p := aggregate.Predicates{Sets: make(map[core.Dimension][]string)}
	for _, d := range filterDimensions {
		for _, v := range query[string(d)] {
			if v = sanitizeInput(v); v != "" {
				p.Sets[d] = append(p.Sets[d], v)
			}
		}
	}

	for _, bound := range []struct {
		key string
		dst *core.Date
	}{{"from", &p.From}, {"to", &p.To}} {
		v := strings.TrimSpace(query.Get(bound.key))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return aggregate.Predicates{}, &core.ValidationError{Field: bound.key, Reason: err.Error()}
		}
		*bound.dst = d
	}

	if !p.From.IsZero() && !p.To.IsZero() && p.To.Before(p.From.Time) {
		return aggregate.Predicates{}, &core.ValidationError{Field: "to", Reason: "must not be before from"}
	}
	return p, nil
}
