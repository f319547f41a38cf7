package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bookkeeping/internal/amqp"
	"bookkeeping/internal/core"
	"bookkeeping/internal/ledger"
	"bookkeeping/internal/log"
	"bookkeeping/internal/sheets"
	"bookkeeping/internal/sheets/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	sheets.Store
	mu          sync.Mutex
	failAppends int
	appends     int
}

func (f *flakyStore) AppendRow(ctx context.Context, t sheets.Table, values []string) error {
	f.mu.Lock()
	f.appends++
	fail := f.failAppends > 0
	if fail {
		f.failAppends--
	}
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("rate limited: %w", sheets.ErrTransient)
	}
	return f.Store.AppendRow(ctx, t, values)
}

type recordingNotifier struct {
	msgs []*amqp.RecordAppended
	err  error
}

func (n *recordingNotifier) PublishRecordAppended(_ context.Context, msg *amqp.RecordAppended) error {
	n.msgs = append(n.msgs, msg)
	return n.err
}

var roster = core.NewRoster("林依爽", "王大伟")

func setup(t *testing.T, notifier Notifier) (*Recorder[core.Reimbursement], *flakyStore) {
	t.Helper()
	store := &flakyStore{Store: memory.New("bookkeeping")}
	g := ledger.NewGateway(store, log.Discard())
	l, err := ledger.OpenOrCreate(context.Background(), g, "bookkeeping", "报销记录", ledger.ReimbursementSchema)
	require.NoError(t, err)
	rec := NewRecorder(l, RecorderConfig{
		Roster:     roster,
		RetryDelay: time.Millisecond,
		Notifier:   notifier,
		Logger:     log.Discard(),
	})
	store.appends = 0
	return rec, store
}

func validRecord() core.Reimbursement {
	return core.Reimbursement{
		ProjectCode: "FHJ1620004",
		Date:        core.NewDate(2024, 1, 10),
		Category:    core.CategoryTransport,
		Amount:      core.MustAmount("88.5"),
		User:        "王大伟",
	}
}

var session = Session{User: "王大伟", Kind: core.KindReimbursement}

func TestSubmitAppendsAndNotifies(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	rec, store := setup(t, n)

	require.NoError(t, rec.Submit(ctx, session, validRecord()))
	assert.Equal(t, 1, store.appends)

	entries, err := rec.Snapshot(ctx, session)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "FHJ1620004", entries[0].Record.ProjectCode)

	require.Len(t, n.msgs, 1)
	assert.Equal(t, "报销记录", n.msgs[0].Ledger)
	assert.Equal(t, "王大伟", n.msgs[0].SubmittedBy)
	assert.Equal(t, []string{"FHJ1620004", "2024-01-10", "交通费", "88.5", "王大伟", ""}, n.msgs[0].Row)
}

func TestSubmitRetriesOnceAfterRejection(t *testing.T) {
	ctx := context.Background()
	rec, store := setup(t, nil)
	store.failAppends = 1

	require.NoError(t, rec.Submit(ctx, session, validRecord()))
	assert.Equal(t, 2, store.appends)

	entries, err := rec.Snapshot(ctx, session)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSubmitSurfacesSecondRejection(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	rec, store := setup(t, n)
	store.failAppends = 2

	err := rec.Submit(ctx, session, validRecord())
	require.ErrorIs(t, err, ledger.ErrWriteRejected)
	assert.Equal(t, 2, store.appends, "exactly one retry")
	assert.Empty(t, n.msgs)
}

func TestSubmitValidationNeverReachesStore(t *testing.T) {
	ctx := context.Background()
	rec, store := setup(t, nil)

	bad := validRecord()
	bad.Amount = core.MustAmount("-1")
	require.ErrorIs(t, rec.Submit(ctx, session, bad), core.ErrValidation)

	stranger := validRecord()
	stranger.User = "用户123"
	require.ErrorIs(t, rec.Submit(ctx, session, stranger), core.ErrValidation)

	require.ErrorIs(t, rec.Submit(ctx, Session{User: "用户123"}, validRecord()), core.ErrValidation)
	require.ErrorIs(t, rec.Submit(ctx, Session{}, validRecord()), core.ErrValidation)

	assert.Equal(t, 0, store.appends)
}

func TestSubmitRejectsWrongLedgerSession(t *testing.T) {
	rec, store := setup(t, nil)
	err := rec.Submit(context.Background(), Session{User: "王大伟", Kind: core.KindExpense}, validRecord())
	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "ledger", ve.Field)
	assert.Equal(t, 0, store.appends)
}

func TestNotifierFailureDoesNotFailSubmit(t *testing.T) {
	n := &recordingNotifier{err: errors.New("broker down")}
	rec, _ := setup(t, n)
	assert.NoError(t, rec.Submit(context.Background(), session, validRecord()))
	assert.Len(t, n.msgs, 1)
}

func TestSubmitRetryHonoursContext(t *testing.T) {
	store := &flakyStore{Store: memory.New("bookkeeping"), failAppends: 0}
	g := ledger.NewGateway(store, log.Discard())
	l, err := ledger.OpenOrCreate(context.Background(), g, "bookkeeping", "报销记录", ledger.ReimbursementSchema)
	require.NoError(t, err)
	rec := NewRecorder(l, RecorderConfig{Roster: roster, RetryDelay: time.Hour, Logger: log.Discard()})

	store.failAppends = 1
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = rec.Submit(ctx, session, validRecord())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
