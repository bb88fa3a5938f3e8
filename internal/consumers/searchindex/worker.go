package searchindex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/basketwise/basketwise-backend/pkg/enums"
	"github.com/basketwise/basketwise-backend/pkg/logger"
	"github.com/basketwise/basketwise-backend/pkg/outbox"
	"github.com/basketwise/basketwise-backend/pkg/outbox/registry"
)

type envelopeHandler interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, aggregateID uuid.UUID, envelope outbox.PayloadEnvelope) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

// Worker drains the catalog subscription into the search index.
type Worker struct {
	subscription receiver
	handler      envelopeHandler
	logg         *logger.Logger
}

func NewWorker(subscription *gcppubsub.Subscriber, handler envelopeHandler, logg *logger.Logger) (*Worker, error) {
	if subscription == nil {
		return nil, errors.New("catalog subscription is required")
	}
	return newWorker(subscription, handler, logg)
}

func newWorker(subscription receiver, handler envelopeHandler, logg *logger.Logger) (*Worker, error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Worker{subscription: subscription, handler: handler, logg: logg}, nil
}

// Run consumes messages until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	return w.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if w.process(innerCtx, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process returns true when the message should be redelivered. Messages that
// can never succeed are acked and logged.
func (w *Worker) process(ctx context.Context, msg *gcppubsub.Message) bool {
	logCtx := w.logg.WithField(ctx, "message_id", msg.ID)

	eventType, aggregateID, envelope, err := decodeMessage(msg)
	if err != nil {
		w.logg.Warn(w.logg.WithField(logCtx, "error", err.Error()), "invalid catalog message")
		return false
	}
	if err := w.handler.Process(logCtx, eventType, aggregateID, envelope); err != nil {
		return true
	}
	return false
}

func decodeMessage(msg *gcppubsub.Message) (enums.OutboxEventType, uuid.UUID, outbox.PayloadEnvelope, error) {
	envelope, err := registry.DecodeEnvelope(msg.Data)
	if err != nil {
		return "", uuid.Nil, envelope, err
	}
	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if err != nil {
		return "", uuid.Nil, envelope, fmt.Errorf("event_type: %w", err)
	}
	aggregateID := uuid.Nil
	if raw := strings.TrimSpace(msg.Attributes["aggregate_id"]); raw != "" {
		if aggregateID, err = uuid.Parse(raw); err != nil {
			return "", uuid.Nil, envelope, fmt.Errorf("aggregate_id: %w", err)
		}
	}
	return eventType, aggregateID, envelope, nil
}
