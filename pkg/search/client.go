package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"github.com/basketwise/basketwise-backend/pkg/config"
	"github.com/basketwise/basketwise-backend/pkg/logger"
)

// ErrDisabled is returned by New when no Meilisearch host is configured.
var ErrDisabled = errors.New("search not configured")

// ProductDocument is what the products index stores per catalog product.
type ProductDocument struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	NormalizedName string  `json:"normalizedName"`
	Slug           string  `json:"slug"`
	Barcode        *string `json:"barcode,omitempty"`
	Brand          *string `json:"brand,omitempty"`
	Size           *string `json:"size,omitempty"`
	Unit           *string `json:"unit,omitempty"`
	ImageURL       *string `json:"imageUrl,omitempty"`
	UpdatedAt      int64   `json:"updatedAt"`
}

// Client talks to one Meilisearch index.
type Client struct {
	index   meilisearch.IndexManager
	manager meilisearch.ServiceManager
	uid     string
	timeout time.Duration
	logg    *logger.Logger
}

// New connects to Meilisearch. It does not contact the server.
func New(cfg config.SearchConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("search index name is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	manager := meilisearch.New(cfg.MeiliURL, meilisearch.WithAPIKey(cfg.MeiliAPIKey))
	return &Client{
		index:   manager.Index(cfg.Index),
		manager: manager,
		uid:     cfg.Index,
		timeout: cfg.Timeout,
		logg:    logg,
	}, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// EnsureIndex creates the index if needed and applies its settings. Creating
// an index that exists is a no-op task on the server side.
func (c *Client) EnsureIndex(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if _, err := c.manager.CreateIndexWithContext(ctx, &meilisearch.IndexConfig{Uid: c.uid, PrimaryKey: "id"}); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "create search index failed")
	}
	settings := meilisearch.Settings{
		SearchableAttributes: []string{"name", "normalizedName", "brand", "barcode"},
		FilterableAttributes: []string{"brand", "barcode"},
		SortableAttributes:   []string{"updatedAt"},
	}
	if _, err := c.index.UpdateSettingsWithContext(ctx, &settings); err != nil {
		return fmt.Errorf("update search settings: %w", err)
	}
	return nil
}

// Upsert adds or replaces documents by id.
func (c *Client) Upsert(ctx context.Context, docs ...ProductDocument) error {
	if len(docs) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	pk := "id"
	if _, err := c.index.AddDocumentsWithContext(ctx, docs, &meilisearch.DocumentOptions{PrimaryKey: &pk}); err != nil {
		return fmt.Errorf("index %d products: %w", len(docs), err)
	}
	return nil
}

// Search returns up to limit products matching query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]ProductDocument, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := c.index.SearchWithContext(ctx, query, &meilisearch.SearchRequest{Limit: int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	raw, err := json.Marshal(res.Hits)
	if err != nil {
		return nil, fmt.Errorf("decode search hits: %w", err)
	}
	docs := []ProductDocument{}
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode search hits: %w", err)
	}
	return docs, nil
}

// Ping reports whether the server answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if _, err := c.manager.HealthWithContext(ctx); err != nil {
		return fmt.Errorf("search health: %w", err)
	}
	return nil
}
