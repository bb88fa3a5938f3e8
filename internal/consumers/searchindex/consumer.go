package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/basketwise/basketwise-backend/internal/products"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
	"github.com/basketwise/basketwise-backend/pkg/enums"
	"github.com/basketwise/basketwise-backend/pkg/logger"
	"github.com/basketwise/basketwise-backend/pkg/outbox"
	"github.com/basketwise/basketwise-backend/pkg/outbox/payloads"
	"github.com/basketwise/basketwise-backend/pkg/search"
)

const consumerName = "search-indexer"

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type indexWriter interface {
	Upsert(ctx context.Context, docs ...search.ProductDocument) error
}

type idempotencyProcessor interface {
	Process(ctx context.Context, consumer, eventID string, fn func(context.Context) error) (bool, error)
}

// Consumer keeps the product search index in step with catalog events. The
// document is always rebuilt from the stored row so out of order deliveries
// converge on the latest state.
type Consumer struct {
	products productLoader
	index    indexWriter
	manager  idempotencyProcessor
	logg     *logger.Logger
	handled  map[enums.OutboxEventType]struct{}
}

func NewConsumer(products productLoader, index indexWriter, manager idempotencyProcessor, logg *logger.Logger) (*Consumer, error) {
	if products == nil {
		return nil, errors.New("product loader required")
	}
	if index == nil {
		return nil, errors.New("search index required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Consumer{
		products: products,
		index:    index,
		manager:  manager,
		logg:     logg,
		handled: map[enums.OutboxEventType]struct{}{
			enums.EventProductCreated:  {},
			enums.EventProductEnriched: {},
			enums.EventProductRenamed:  {},
		},
	}, nil
}

// Handles reports whether the consumer acts on eventType.
func (c *Consumer) Handles(eventType enums.OutboxEventType) bool {
	_, ok := c.handled[eventType]
	return ok
}

// Process indexes the product an envelope refers to, at most once per event id.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, aggregateID uuid.UUID, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})
	if !c.Handles(eventType) {
		c.logg.Debug(logCtx, "event not handled by search indexer")
		return nil
	}
	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}

	productID, err := productIDFrom(aggregateID, envelope)
	if err != nil {
		return err
	}
	logCtx = c.logg.WithProductID(logCtx, productID.String())

	skipped, err := c.manager.Process(logCtx, consumerName, envelope.EventID, func(ctx context.Context) error {
		return c.reindex(ctx, productID)
	})
	if err != nil {
		c.logg.Error(logCtx, "failed to index product", err)
		return err
	}
	if skipped {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}
	c.logg.Info(logCtx, "product indexed")
	return nil
}

func (c *Consumer) reindex(ctx context.Context, productID uuid.UUID) error {
	p, err := c.products.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.logg.Warn(ctx, "product no longer exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	return c.index.Upsert(ctx, product.ToSearchDocument(p))
}

func productIDFrom(aggregateID uuid.UUID, envelope outbox.PayloadEnvelope) (uuid.UUID, error) {
	if len(envelope.Data) > 0 {
		var payload payloads.ProductEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return uuid.Nil, fmt.Errorf("decode product payload: %w", err)
		}
		if payload.ProductID != uuid.Nil {
			return payload.ProductID, nil
		}
	}
	if aggregateID == uuid.Nil {
		return uuid.Nil, errors.New("product id missing")
	}
	return aggregateID, nil
}
