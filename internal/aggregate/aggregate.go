// Package aggregate computes grouped totals and filtered views over a
// snapshot of ledger records. Everything here is pure: nothing reads from or
// writes back to a store.
package aggregate

import (
	"cmp"
	"slices"

	"bookkeeping/internal/core"

	"github.com/shopspring/decimal"
)

// Group is the total for one key. Sum skips missing amounts, Count does not.
type Group struct {
	Key     string          `json:"key"`
	Sum     decimal.Decimal `json:"sum"`
	Count   int             `json:"count"`
	Missing int             `json:"missing"`
}

// KeyFunc extracts a grouping key. Keys are compared as exact strings.
type KeyFunc[R core.Record] func(R) string

// Key returns the KeyFunc for a dimension. Records without that column
// group under the empty key.
func Key[R core.Record](d core.Dimension) KeyFunc[R] {
	return func(r R) string {
		v, _ := r.Field(d)
		return v
	}
}

func ByProject[R core.Record](r R) string  { return Key[R](core.DimProject)(r) }
func ByUser[R core.Record](r R) string     { return Key[R](core.DimUser)(r) }
func ByCategory[R core.Record](r R) string { return Key[R](core.DimCategory)(r) }
func ByItem[R core.Record](r R) string     { return Key[R](core.DimItem)(r) }

// GroupSumCount groups records by key, in first-seen key order.
func GroupSumCount[R core.Record](records []R, key KeyFunc[R]) []Group {
	index := map[string]int{}
	var groups []Group
	for _, r := range records {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		add(&groups[i], r.Value())
	}
	return groups
}

// Total folds every record into a single group with an empty key.
func Total[R core.Record](records []R) Group {
	var g Group
	for _, r := range records {
		add(&g, r.Value())
	}
	return g
}

func add(g *Group, a core.Amount) {
	g.Count++
	if a.Missing() {
		g.Missing++
		return
	}
	g.Sum = g.Sum.Add(a.Decimal)
}

// SortBySumDesc orders groups by descending sum. Ties keep their input order.
func SortBySumDesc(groups []Group) {
	slices.SortStableFunc(groups, func(a, b Group) int {
		return b.Sum.Cmp(a.Sum)
	})
}

// SortByKey orders groups by ascending key.
func SortByKey(groups []Group) {
	slices.SortStableFunc(groups, func(a, b Group) int {
		return cmp.Compare(a.Key, b.Key)
	})
}

// Summarize groups by dimension and applies the summary order used for that
// dimension: amounts first for categories and items, alphabetical otherwise.
func Summarize[R core.Record](records []R, d core.Dimension) []Group {
	groups := GroupSumCount(records, Key[R](d))
	switch d {
	case core.DimCategory, core.DimItem:
		SortBySumDesc(groups)
	default:
		SortByKey(groups)
	}
	return groups
}

// Distinct lists keys in first-seen order, skipping empty ones.
func Distinct[R core.Record](records []R, key KeyFunc[R]) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range records {
		k := key(r)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// DateBounds returns the earliest and latest non-zero dates. ok is false when
// no record has a usable date.
func DateBounds[R core.Record](records []R) (from, to core.Date, ok bool) {
	for _, r := range records {
		d := r.When()
		if d.IsZero() {
			continue
		}
		if !ok || d.Before(from.Time) {
			from = d
		}
		if !ok || d.After(to.Time) {
			to = d
		}
		ok = true
	}
	return from, to, ok
}
