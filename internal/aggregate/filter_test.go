package aggregate

import (
	"testing"

	"bookkeeping/internal/core"

	"github.com/stretchr/testify/assert"
)

func TestFilterAllInclusiveIsIdentity(t *testing.T) {
	recs := sample()
	from, to, _ := DateBounds(recs)
	p := Predicates{
		Sets: map[core.Dimension][]string{
			core.DimProject:  Distinct(recs, ByProject[core.Reimbursement]),
			core.DimUser:     Distinct(recs, ByUser[core.Reimbursement]),
			core.DimCategory: Distinct(recs, ByCategory[core.Reimbursement]),
		},
		From: from,
		To:   to,
	}
	assert.Equal(t, recs, Filter(recs, p))
	assert.Equal(t, recs, Filter(recs, Predicates{}))
	assert.True(t, Predicates{Sets: map[core.Dimension][]string{core.DimUser: nil}}.Empty())
}

func TestFilterPredicatesAreANDed(t *testing.T) {
	recs := sample()
	got := Filter(recs, Predicates{Sets: map[core.Dimension][]string{
		core.DimProject: {"FHJ1620004"},
		core.DimUser:    {"王大伟"},
	}})
	assert.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "王大伟", r.User)
	}
}

func TestFilterDateRangeInclusive(t *testing.T) {
	recs := sample()
	got := Filter(recs, Predicates{From: core.NewDate(2024, 1, 10), To: core.NewDate(2024, 1, 12)})
	assert.Len(t, got, 2)
	assert.Equal(t, "2024-01-10", got[0].Date.String())
	assert.Equal(t, "2024-01-12", got[1].Date.String())

	open := Filter(recs, Predicates{From: core.NewDate(2024, 1, 12)})
	assert.Len(t, open, 2)
}

func TestFilterIgnoresInapplicableDimension(t *testing.T) {
	recs := []core.Expense{
		{Date: core.NewDate(2024, 3, 1), Item: "打印纸", Amount: core.MustAmount("25")},
		{Date: core.NewDate(2024, 3, 2), Item: "墨盒", Amount: core.MustAmount("90")},
	}
	got := Filter(recs, Predicates{Sets: map[core.Dimension][]string{
		core.DimUser: {"王大伟"},
		core.DimItem: {"墨盒"},
	}})
	assert.Len(t, got, 1)
	assert.Equal(t, "墨盒", got[0].Item)
}
