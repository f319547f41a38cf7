package memory

import (
	"context"
	"errors"
	"testing"

	"bookkeeping/internal/sheets"
)

func TestMemoryStoreCreateAppendRead(t *testing.T) {
	ctx := context.Background()
	s := New("bookkeeping")

	if _, err := s.Open(ctx, "bookkeeping", "报销记录"); !errors.Is(err, sheets.ErrLedgerNotFound) {
		t.Fatalf("expected ErrLedgerNotFound, got %v", err)
	}

	tbl, err := s.Create(ctx, "bookkeeping", "报销记录", []string{"a", "b"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, "bookkeeping", "报销记录", []string{"a", "b"}); !errors.Is(err, sheets.ErrLedgerExists) {
		t.Fatalf("expected ErrLedgerExists, got %v", err)
	}

	if err := s.AppendRow(ctx, tbl, []string{"1", "2"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	rows, err := s.ReadAllRows(ctx, tbl)
	if err != nil || len(rows) != 2 || rows[1][0] != "1" {
		t.Fatalf("unexpected rows=%v err=%v", rows, err)
	}

	// Mutating the returned snapshot must not leak back into the store.
	rows[1][0] = "x"
	again, _ := s.ReadAllRows(ctx, tbl)
	if again[1][0] != "1" {
		t.Fatalf("snapshot aliasing: %v", again)
	}
}

func TestMemoryStoreUnknownStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Open(ctx, "missing", "x"); !errors.Is(err, sheets.ErrStoreNotFound) {
		t.Fatalf("expected ErrStoreNotFound, got %v", err)
	}
	if _, err := s.Create(ctx, "missing", "x", nil); !errors.Is(err, sheets.ErrStoreNotFound) {
		t.Fatalf("expected ErrStoreNotFound on create, got %v", err)
	}
}

func TestMemoryStoreSeed(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed("bookkeeping", "支出记录", [][]string{{"h"}, {"v"}})
	tbl, err := s.Open(ctx, "bookkeeping", "支出记录")
	if err != nil {
		t.Fatalf("open seeded: %v", err)
	}
	rows, _ := s.ReadAllRows(ctx, tbl)
	if len(rows) != 2 {
		t.Fatalf("unexpected rows %v", rows)
	}
}
