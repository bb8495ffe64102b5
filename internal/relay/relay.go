package relay

import (
	"context"
	"strconv"
	"time"

	"github.com/richardliu001/org-wallet/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Outbox is the subset of the repository the relay drains.
type Outbox interface {
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
}

// Publisher is satisfied by *kafka.Writer.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Relay forwards committed outbox rows to the broker. Delivery is at least
// once: a row is marked processed only after the write succeeds.
type Relay struct {
	outbox    Outbox
	pub       Publisher
	interval  time.Duration
	batchSize int
	log       *zap.SugaredLogger
}

func New(outbox Outbox, pub Publisher, interval time.Duration, batchSize int, log *zap.SugaredLogger) *Relay {
	return &Relay{outbox: outbox, pub: pub, interval: interval, batchSize: batchSize, log: log}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Infow("outbox relay started", "interval", r.interval, "batchSize", r.batchSize)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.Errorw("poll outbox", "err", err)
			}
		}
	}
}

// RunOnce drains one batch and returns how many events were delivered. It
// stops at the first publish failure so later events are not sent ahead of it.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, err := r.outbox.PollOutbox(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, evt := range events {
		if err := r.pub.WriteMessages(ctx, Message(evt)); err != nil {
			r.log.Errorw("publish event", "id", evt.ID, "type", evt.EventType, "err", err)
			return sent, nil
		}
		if err := r.outbox.MarkOutboxProcessed(ctx, evt.ID); err != nil {
			r.log.Errorw("mark processed", "id", evt.ID, "err", err)
			return sent, nil
		}
		sent++
		r.log.Debugw("event sent", "id", evt.ID, "type", evt.EventType, "aggregateID", evt.AggregateID)
	}
	return sent, nil
}

// Message keys by aggregate so one wallet's events stay on one partition.
func Message(evt model.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(evt.AggregateID, 10)),
		Value: []byte(evt.Payload),
		Time:  evt.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.EventType)},
			{Key: "event-id", Value: []byte(strconv.FormatUint(evt.ID, 10))},
			{Key: "aggregate", Value: []byte(evt.Aggregate)},
		},
	}
}
