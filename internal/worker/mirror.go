// Package worker replays append events into a second ledger store, keeping a
// copy of every ledger outside the primary spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"bookkeeping/internal/amqp"
	"bookkeeping/internal/cache"
	"bookkeeping/internal/core"
	"bookkeeping/internal/ledger"
	"bookkeeping/internal/log"
	"bookkeeping/internal/sheets"
)

const (
	seenSize = 4096
	seenTTL  = 24 * time.Hour
)

// Mirror appends every RecordAppended event to the ledger of the same name
// in its own store. Delivery is at least once; redeliveries seen by this
// process are skipped.
type Mirror struct {
	gw        *ledger.Gateway
	storeName string
	logger    *log.Logger
	seen      *cache.Recent

	mu             sync.Mutex
	reimbursements map[string]*ledger.Ledger[core.Reimbursement]
	expenses       map[string]*ledger.Ledger[core.Expense]
}

func NewMirror(store sheets.Store, storeName string, logger *log.Logger) *Mirror {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Mirror{
		gw:             ledger.NewGateway(store, logger),
		storeName:      storeName,
		logger:         logger.WithComponent(log.ComponentWorker),
		seen:           cache.NewRecent(seenSize, seenTTL),
		reimbursements: make(map[string]*ledger.Ledger[core.Reimbursement]),
		expenses:       make(map[string]*ledger.Ledger[core.Expense]),
	}
}

// HandleRecordAppended is an amqp.RecordHandler. Events that can never be
// applied are wrapped with amqp.ErrDiscard.
func (m *Mirror) HandleRecordAppended(ctx context.Context, msg *amqp.RecordAppended) error {
	id := msg.ID.String()
	if msg.Ledger == "" {
		return fmt.Errorf("message %s has no ledger: %w", id, amqp.ErrDiscard)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seen.Contains(id) {
		m.logger.InfoContext(ctx, "Skipping already mirrored message", log.FieldMessageID, id)
		return nil
	}
	// Claimed up front and released on failure so a redelivery can retry.
	m.seen.Add(id)

	var err error
	switch core.LedgerKind(msg.Kind) {
	case core.KindReimbursement:
		err = mirrorRow(ctx, m, m.reimbursements, ledger.ReimbursementSchema, msg)
	case core.KindExpense:
		err = mirrorRow(ctx, m, m.expenses, ledger.ExpenseSchema, msg)
	default:
		err = fmt.Errorf("unknown ledger kind %q: %w", msg.Kind, amqp.ErrDiscard)
	}
	if err != nil {
		m.seen.Remove(id)
		return err
	}

	m.logger.InfoContext(ctx, "Mirrored record",
		log.FieldMessageID, id,
		log.FieldStore, m.storeName,
		log.FieldLedger, msg.Ledger,
		log.FieldUser, msg.SubmittedBy)
	return nil
}

// mirrorRow is called with m.mu held.
func mirrorRow[R core.Record](ctx context.Context, m *Mirror, opened map[string]*ledger.Ledger[R], schema ledger.Schema[R], msg *amqp.RecordAppended) error {
	if !slices.Equal(msg.Header, schema.Header) {
		return fmt.Errorf("message header %q does not match %s schema: %w", msg.Header, schema.Kind, amqp.ErrDiscard)
	}
	if len(msg.Row) != schema.Width() {
		return fmt.Errorf("row has %d cells, want %d: %w", len(msg.Row), schema.Width(), amqp.ErrDiscard)
	}

	rec, issue := schema.Decode(msg.Row)
	if issue != nil {
		return fmt.Errorf("decode row: %w: %w", amqp.ErrDiscard, issue)
	}

	l, ok := opened[msg.Ledger]
	if !ok {
		var err error
		l, err = ledger.OpenOrCreate(ctx, m.gw, m.storeName, msg.Ledger, schema)
		if errors.Is(err, ledger.ErrSchemaMismatch) {
			return fmt.Errorf("%w: %w", amqp.ErrDiscard, err)
		}
		if err != nil {
			return err
		}
		if l.Created {
			m.logger.InfoContext(ctx, "Created mirror ledger", log.FieldStore, m.storeName, log.FieldLedger, msg.Ledger)
		}
		opened[msg.Ledger] = l
	}

	if err := l.Append(ctx, rec); err != nil {
		if errors.Is(err, core.ErrValidation) {
			return fmt.Errorf("%w: %w", amqp.ErrDiscard, err)
		}
		return err
	}
	return nil
}
