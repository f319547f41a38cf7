package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookkeeping/internal/amqp"
	"bookkeeping/internal/core"
	"bookkeeping/internal/ledger"
	"bookkeeping/internal/log"
)

const DefaultRetryDelay = time.Second

// Session is the per-request context: who is submitting and to which ledger.
// There is no process-wide current user.
type Session struct {
	User string
	Kind core.LedgerKind
}

// Notifier receives an event after every successful append.
type Notifier interface {
	PublishRecordAppended(ctx context.Context, msg *amqp.RecordAppended) error
}

type RecorderConfig struct {
	Roster core.Roster
	// RetryDelay is the pause before the single retry of a rejected write.
	// Zero means DefaultRetryDelay; a negative value retries immediately.
	RetryDelay time.Duration
	// Notifier is optional.
	Notifier Notifier
	Logger   *log.Logger
}

// Recorder validates and appends records to one ledger.
type Recorder[R core.Record] struct {
	ledger     *ledger.Ledger[R]
	roster     core.Roster
	retryDelay time.Duration
	notifier   Notifier
	logger     *log.Logger
}

func NewRecorder[R core.Record](l *ledger.Ledger[R], cfg RecorderConfig) *Recorder[R] {
	delay := cfg.RetryDelay
	switch {
	case delay == 0:
		delay = DefaultRetryDelay
	case delay < 0:
		delay = 0
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Recorder[R]{
		ledger:     l,
		roster:     cfg.Roster,
		retryDelay: delay,
		notifier:   cfg.Notifier,
		logger:     logger.WithComponent(log.ComponentRecorder),
	}
}

func (r *Recorder[R]) Ledger() *ledger.Ledger[R] { return r.ledger }

func (r *Recorder[R]) Roster() core.Roster { return r.roster }

func (r *Recorder[R]) checkSession(s Session) error {
	if s.Kind != "" && s.Kind != r.ledger.Kind() {
		return &core.ValidationError{Field: "ledger", Reason: fmt.Sprintf("session is bound to %q", s.Kind)}
	}
	return nil
}

// Submit validates rec and appends it. A rejected write is retried exactly
// once after the retry delay. Nothing reaches the store when validation
// fails.
func (r *Recorder[R]) Submit(ctx context.Context, s Session, rec R) error {
	if err := r.checkSession(s); err != nil {
		return err
	}
	if err := r.roster.Check("submitted_by", s.User); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	if user, ok := rec.Field(core.DimUser); ok {
		if err := r.roster.Check("user", user); err != nil {
			return err
		}
	}

	err := r.ledger.Append(ctx, rec)
	if errors.Is(err, ledger.ErrWriteRejected) {
		r.logger.WarnContext(ctx, "Write rejected, retrying once",
			log.FieldLedger, r.ledger.Name(), "delay", r.retryDelay, log.FieldError, err)
		if r.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry append: %w", ctx.Err())
			case <-time.After(r.retryDelay):
			}
		}
		err = r.ledger.Append(ctx, rec)
	}
	if err != nil {
		return err
	}

	r.notify(ctx, s, rec)
	return nil
}

// notify is best effort; the append already happened.
func (r *Recorder[R]) notify(ctx context.Context, s Session, rec R) {
	if r.notifier == nil {
		return
	}
	schema := r.ledger.Schema()
	msg := amqp.NewRecordAppended(r.ledger.Store(), r.ledger.Name(), string(schema.Kind), s.User, schema.Header, r.ledger.Row(rec))
	if err := r.notifier.PublishRecordAppended(ctx, msg); err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish append notification",
			log.FieldMessageID, msg.ID.String(), log.FieldLedger, r.ledger.Name(), log.FieldError, err)
	}
}

// Snapshot lists the ledger as it is now. Every call reads the store.
func (r *Recorder[R]) Snapshot(ctx context.Context, s Session) ([]ledger.Entry[R], error) {
	if err := r.checkSession(s); err != nil {
		return nil, err
	}
	return r.ledger.List(ctx)
}
