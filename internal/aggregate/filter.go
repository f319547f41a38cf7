package aggregate

import (
	"slices"

	"bookkeeping/internal/core"
)

// Predicates are ANDed together. An empty set for a dimension, or a
// dimension the record variant does not have, filters nothing. From and To
// are inclusive; a zero bound is open.
type Predicates struct {
	Sets map[core.Dimension][]string
	From core.Date
	To   core.Date
}

// Empty reports whether p would keep every record.
func (p Predicates) Empty() bool {
	for _, vals := range p.Sets {
		if len(vals) > 0 {
			return false
		}
	}
	return p.From.IsZero() && p.To.IsZero()
}

// Match reports whether r satisfies every predicate.
func (p Predicates) Match(r core.Record) bool {
	for d, vals := range p.Sets {
		if len(vals) == 0 {
			continue
		}
		v, ok := r.Field(d)
		if !ok {
			continue
		}
		if !slices.Contains(vals, v) {
			return false
		}
	}
	if p.From.IsZero() && p.To.IsZero() {
		return true
	}
	return r.When().Between(p.From, p.To)
}

// Filter keeps the records matching p, preserving input order.
func Filter[R core.Record](records []R, p Predicates) []R {
	out := make([]R, 0, len(records))
	for _, r := range records {
		if p.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
