package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"bookkeeping/internal/amqp"
	"bookkeeping/internal/ledger"
	"bookkeeping/internal/log"
	"bookkeeping/internal/sheets"
	"bookkeeping/internal/sheets/memory"
	"bookkeeping/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reimbursementEvent(amount string) *amqp.RecordAppended {
	return amqp.NewRecordAppended("bookkeeping", "报销记录", "reimbursement", "王大伟",
		ledger.ReimbursementSchema.Header,
		[]string{"FHJ1620004", "2024-01-10", "交通费", amount, "王大伟", ""})
}

func readRows(t *testing.T, s sheets.Store, ledgerName string) [][]string {
	t.Helper()
	ctx := context.Background()
	tbl, err := s.Open(ctx, "mirror", ledgerName)
	require.NoError(t, err)
	rows, err := s.ReadAllRows(ctx, tbl)
	require.NoError(t, err)
	return rows
}

func TestMirrorCreatesLedgerAndAppends(t *testing.T) {
	ctx := context.Background()
	store := memory.New("mirror")
	m := NewMirror(store, "mirror", log.Discard())

	require.NoError(t, m.HandleRecordAppended(ctx, reimbursementEvent("88.5")))
	require.NoError(t, m.HandleRecordAppended(ctx, reimbursementEvent("11.5")))

	exp := amqp.NewRecordAppended("bookkeeping", "支出记录", "expense", "林依爽",
		ledger.ExpenseSchema.Header, []string{"2024-01-11", "打印", "100", ""})
	require.NoError(t, m.HandleRecordAppended(ctx, exp))

	assert.Equal(t, [][]string{
		ledger.ReimbursementSchema.Header,
		{"FHJ1620004", "2024-01-10", "交通费", "88.5", "王大伟", ""},
		{"FHJ1620004", "2024-01-10", "交通费", "11.5", "王大伟", ""},
	}, readRows(t, store, "报销记录"))
	assert.Len(t, readRows(t, store, "支出记录"), 2)
}

func TestMirrorSkipsRedelivery(t *testing.T) {
	ctx := context.Background()
	store := memory.New("mirror")
	m := NewMirror(store, "mirror", log.Discard())

	ev := reimbursementEvent("88.5")
	require.NoError(t, m.HandleRecordAppended(ctx, ev))
	require.NoError(t, m.HandleRecordAppended(ctx, ev))
	assert.Len(t, readRows(t, store, "报销记录"), 2, "header plus one row")
}

func TestMirrorDiscardsUnusableEvents(t *testing.T) {
	ctx := context.Background()
	m := NewMirror(memory.New("mirror"), "mirror", log.Discard())

	unknownKind := reimbursementEvent("1")
	unknownKind.Kind = "income"

	wrongHeader := reimbursementEvent("1")
	wrongHeader.Header = []string{"a", "b"}

	shortRow := reimbursementEvent("1")
	shortRow.Row = shortRow.Row[:3]

	badAmount := reimbursementEvent("abc")

	badCategory := reimbursementEvent("1")
	badCategory.Row[2] = "午餐"

	noLedger := reimbursementEvent("1")
	noLedger.Ledger = ""

	for name, ev := range map[string]*amqp.RecordAppended{
		"unknown kind": unknownKind,
		"wrong header": wrongHeader,
		"short row":    shortRow,
		"bad amount":   badAmount,
		"bad category": badCategory,
		"no ledger":    noLedger,
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, m.HandleRecordAppended(ctx, ev), amqp.ErrDiscard)
		})
	}
}

type flakyStore struct {
	sheets.Store
	fail int
}

func (f *flakyStore) AppendRow(ctx context.Context, t sheets.Table, values []string) error {
	if f.fail > 0 {
		f.fail--
		return fmt.Errorf("locked: %w", sheets.ErrTransient)
	}
	return f.Store.AppendRow(ctx, t, values)
}

func TestMirrorTransientFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.New("mirror")}
	m := NewMirror(store, "mirror", log.Discard())

	ev := reimbursementEvent("88.5")
	// the header goes in with Create, so only the data row fails
	store.fail = 1
	err := m.HandleRecordAppended(ctx, ev)
	require.Error(t, err)
	assert.NotErrorIs(t, err, amqp.ErrDiscard)
	assert.False(t, m.seen.Contains(ev.ID.String()), "failed message is forgotten")

	require.NoError(t, m.HandleRecordAppended(ctx, ev), "not marked seen after a failure")
	assert.True(t, m.seen.Contains(ev.ID.String()))
	assert.Len(t, readRows(t, store, "报销记录"), 2)
}

func TestMirrorIntoSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "mirror.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.EnsureStore(ctx, "mirror"))

	m := NewMirror(store, "mirror", log.Discard())
	require.NoError(t, m.HandleRecordAppended(ctx, reimbursementEvent("88.5")))
	assert.Len(t, readRows(t, store, "报销记录"), 2)
}
