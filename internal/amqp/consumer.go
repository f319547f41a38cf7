package amqp

import (
	"context"
	"errors"
	"fmt"

	"bookkeeping/internal/log"

	"github.com/rabbitmq/amqp091-go"
)

// ErrDiscard marks a handler failure that retrying cannot fix. Such messages
// are rejected without requeue.
var ErrDiscard = errors.New("discard message")

// RecordHandler processes one append event.
type RecordHandler func(ctx context.Context, msg *RecordAppended) error

// ConsumeRecordAppended consumes append events from the configured queue
// until ctx is done. Messages are acknowledged after handler returns nil.
func (c *Client) ConsumeRecordAppended(ctx context.Context, prefetch int, handler RecordHandler) error {
	if c.queueName == "" {
		return errors.New("no queue configured to consume from")
	}

	c.mu.Lock()
	ch, err := c.channelLocked()
	if err == nil && prefetch > 0 {
		err = ch.Qos(prefetch, 0, false)
	}
	var msgs <-chan amqp091.Delivery
	if err == nil {
		msgs, err = ch.Consume(
			c.queueName, // queue
			"",          // consumer
			false,       // auto-ack (we want manual ack)
			false,       // exclusive
			false,       // no-local
			false,       // no-wait
			nil,         // args
		)
	}
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming record appended messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler RecordHandler) {
	msg, err := RecordAppendedFromJSON(delivery.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to unmarshal message",
			log.FieldMessageID, delivery.MessageId, log.FieldError, err)
		_ = delivery.Nack(false, false) // reject and don't requeue
		return
	}

	if err := handler(ctx, msg); err != nil {
		requeue := !errors.Is(err, ErrDiscard) && !delivery.Redelivered
		c.logger.ErrorContext(ctx, "Failed to handle message",
			log.FieldMessageID, msg.ID.String(), log.FieldLedger, msg.Ledger,
			"requeue", requeue, log.FieldError, err)
		_ = delivery.Nack(false, requeue)
		return
	}

	_ = delivery.Ack(false)
	c.logger.DebugContext(ctx, "Processed record appended message",
		log.FieldMessageID, msg.ID.String(), log.FieldLedger, msg.Ledger)
}
