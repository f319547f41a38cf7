package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bookkeeping/internal/config"
	"bookkeeping/internal/log"
	"bookkeeping/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMemoryBackend(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(log.Discard()).CreateBackend(ctx, Config{Type: MemoryBackend, StoreName: "bookkeeping"})
	require.NoError(t, err)
	assert.Nil(t, res.Cleanup)

	_, err = res.Store.Open(ctx, "bookkeeping", "报销记录")
	assert.ErrorIs(t, err, sheets.ErrLedgerNotFound, "memory store is registered up front")
}

func TestCreateSQLiteBackendProvisioning(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	f := NewFactory(log.Discard())

	res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, StoreName: "bookkeeping", SQLiteDBPath: path})
	require.NoError(t, err)
	_, err = res.Store.Open(ctx, "bookkeeping", "报销记录")
	assert.ErrorIs(t, err, sheets.ErrStoreNotFound, "server must not provision")
	require.NoError(t, res.Cleanup())

	res, err = f.CreateBackend(ctx, Config{
		Type:           SQLiteBackend,
		StoreName:      "bookkeeping",
		SQLiteDBPath:   path,
		ProvisionStore: true,
		StoreTimeout:   time.Second,
	})
	require.NoError(t, err)
	defer res.Cleanup()
	_, err = res.Store.Open(ctx, "bookkeeping", "报销记录")
	assert.ErrorIs(t, err, sheets.ErrLedgerNotFound)
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	f := NewFactory(nil)
	_, err := f.CreateBackend(context.Background(), Config{Type: "ftp", StoreName: "x"})
	assert.Error(t, err)
	_, err = f.CreateBackend(context.Background(), Config{Type: SheetsBackend, StoreName: "x"})
	assert.Error(t, err)
	_, err = f.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	assert.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:         "sheets",
		StoreName:           "bookkeeping",
		StoreTimeout:        7 * time.Second,
		GoogleSpreadsheetID: "sid",
	}
	bc, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, SheetsBackend, bc.Type)
	assert.Equal(t, "sid", bc.GoogleSpreadsheetID)
	assert.False(t, bc.ProvisionStore)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
	_, err = FromAppConfig(&config.Config{DataBackend: "nope"})
	assert.Error(t, err)
}

func TestMirrorFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:        "sheets",
		MirrorBackend:      "sqlite",
		MirrorSQLiteDBPath: "/tmp/mirror.db",
		MirrorStoreName:    "bookkeeping",
	}
	bc, err := MirrorFromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, bc.Type)
	assert.Equal(t, "/tmp/mirror.db", bc.SQLiteDBPath)
	assert.True(t, bc.ProvisionStore)

	cfg.MirrorBackend = "sheets"
	_, err = MirrorFromAppConfig(cfg)
	assert.Error(t, err)
}

type slowStore struct{ sheets.Store }

func (slowStore) ReadAllRows(ctx context.Context, _ sheets.Table) ([][]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWithTimeoutBoundsCalls(t *testing.T) {
	s := WithTimeout(slowStore{}, 10*time.Millisecond)
	_, err := s.ReadAllRows(context.Background(), sheets.Table{})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
