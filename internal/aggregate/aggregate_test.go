package aggregate

import (
	"testing"

	"bookkeeping/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reimbursement(code, user string, cat core.Category, amount string, day int) core.Reimbursement {
	return core.Reimbursement{
		ProjectCode: code,
		Date:        core.NewDate(2024, 1, day),
		Category:    cat,
		Amount:      core.CoerceAmount(amount),
		User:        user,
	}
}

func sample() []core.Reimbursement {
	return []core.Reimbursement{
		reimbursement("KHJ1625606", "林依爽", core.CategoryLabour, "300", 5),
		reimbursement("FHJ1620004", "王大伟", core.CategoryTransport, "88.5", 10),
		reimbursement("FHJ1620004", "王大伟", core.CategoryOther, "100", 12),
		reimbursement("FHJ1620004", "林依爽", core.CategoryTransport, "abc", 20),
	}
}

func TestGroupSumCountSingleRecord(t *testing.T) {
	recs := []core.Reimbursement{reimbursement("FHJ1620004", "王大伟", core.CategoryTransport, "88.5", 10)}
	groups := GroupSumCount(recs, ByProject[core.Reimbursement])
	require.Len(t, groups, 1)
	assert.Equal(t, "FHJ1620004", groups[0].Key)
	assert.True(t, groups[0].Sum.Equal(decimal.RequireFromString("88.5")))
	assert.Equal(t, 1, groups[0].Count)
}

func TestGroupSumCountSkipsMissingInSum(t *testing.T) {
	recs := []core.Reimbursement{
		reimbursement("FHJ1620004", "王大伟", core.CategoryOther, "100", 1),
		reimbursement("FHJ1620004", "王大伟", core.CategoryOther, "abc", 2),
	}
	groups := GroupSumCount(recs, ByUser[core.Reimbursement])
	require.Len(t, groups, 1)
	assert.Equal(t, "100", groups[0].Sum.String())
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, 1, groups[0].Missing)
}

func TestGroupSumCountFirstSeenOrder(t *testing.T) {
	groups := GroupSumCount(sample(), ByProject[core.Reimbursement])
	require.Len(t, groups, 2)
	assert.Equal(t, "KHJ1625606", groups[0].Key)
	assert.Equal(t, "FHJ1620004", groups[1].Key)
	assert.Equal(t, "188.5", groups[1].Sum.String())
	assert.Equal(t, 3, groups[1].Count)
}

func TestTotalsMatchRecordSum(t *testing.T) {
	recs := sample()[:3]
	total := Total(recs)
	assert.Equal(t, "488.5", total.Sum.String())
	assert.Equal(t, 3, total.Count)

	var sum decimal.Decimal
	for _, g := range GroupSumCount(recs, ByCategory[core.Reimbursement]) {
		sum = sum.Add(g.Sum)
	}
	assert.True(t, sum.Equal(total.Sum))
}

func TestSortBySumDescIsStable(t *testing.T) {
	groups := []Group{
		{Key: "a", Sum: decimal.NewFromInt(5)},
		{Key: "b", Sum: decimal.NewFromInt(10)},
		{Key: "c", Sum: decimal.NewFromInt(5)},
		{Key: "d", Sum: decimal.NewFromInt(10)},
	}
	SortBySumDesc(groups)
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, keys)
}

func TestSummarizeOrdering(t *testing.T) {
	byCategory := Summarize(sample(), core.DimCategory)
	require.Len(t, byCategory, 3)
	assert.Equal(t, string(core.CategoryLabour), byCategory[0].Key)
	assert.Equal(t, string(core.CategoryOther), byCategory[1].Key)
	assert.Equal(t, string(core.CategoryTransport), byCategory[2].Key)

	byProject := Summarize(sample(), core.DimProject)
	assert.Equal(t, "FHJ1620004", byProject[0].Key)
	assert.Equal(t, "KHJ1625606", byProject[1].Key)
}

func TestDistinctAndDateBounds(t *testing.T) {
	recs := sample()
	assert.Equal(t, []string{"林依爽", "王大伟"}, Distinct(recs, ByUser[core.Reimbursement]))

	recs = append(recs, core.Reimbursement{ProjectCode: "X"})
	from, to, ok := DateBounds(recs)
	require.True(t, ok)
	assert.Equal(t, "2024-01-05", from.String())
	assert.Equal(t, "2024-01-20", to.String())

	_, _, ok = DateBounds([]core.Expense{{Item: "no date"}})
	assert.False(t, ok)
}

func TestExpenseHasNoProjectDimension(t *testing.T) {
	recs := []core.Expense{
		{Date: core.NewDate(2024, 3, 1), Item: "打印纸", Amount: core.MustAmount("25")},
		{Date: core.NewDate(2024, 3, 2), Item: "打印纸", Amount: core.MustAmount("5")},
	}
	groups := GroupSumCount(recs, ByProject[core.Expense])
	require.Len(t, groups, 1)
	assert.Equal(t, "", groups[0].Key)

	byItem := Summarize(recs, core.DimItem)
	require.Len(t, byItem, 1)
	assert.Equal(t, "30", byItem[0].Sum.String())
}
