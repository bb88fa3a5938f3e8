package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/basketwise/basketwise-backend/internal/catalog"
	product "github.com/basketwise/basketwise-backend/internal/products"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
	"github.com/basketwise/basketwise-backend/pkg/enums"
	"github.com/basketwise/basketwise-backend/pkg/logger"
	"github.com/basketwise/basketwise-backend/pkg/outbox"
	"github.com/basketwise/basketwise-backend/pkg/outbox/payloads"
)

const defaultRenormalizeBatch = 500

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type CatalogRenormalizeJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository *product.Repository
	Events     eventEmitter
	BatchSize  int
}

// NewCatalogRenormalizeJob rewrites normalized names and slugs that no longer
// match the current normalizer, one product per transaction.
func NewCatalogRenormalizeJob(params CatalogRenormalizeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultRenormalizeBatch
	}
	return &catalogRenormalizeJob{
		logg:   params.Logger,
		db:     params.DB,
		repo:   params.Repository,
		events: params.Events,
		batch:  batch,
	}, nil
}

type catalogRenormalizeJob struct {
	logg   *logger.Logger
	db     txRunner
	repo   *product.Repository
	events eventEmitter
	batch  int
}

func (j *catalogRenormalizeJob) Name() string { return "catalog_renormalize" }

func (j *catalogRenormalizeJob) Run(ctx context.Context) (int64, error) {
	var (
		after    = uuid.Nil
		scanned  int
		updated  int64
		conflict int
	)
	for {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		rows, err := j.repo.ListAfter(ctx, after, j.batch)
		if err != nil {
			return updated, fmt.Errorf("list products: %w", err)
		}
		for i := range rows {
			p := &rows[i]
			scanned++
			changed, err := j.renormalize(ctx, p)
			switch {
			case errors.Is(err, catalog.ErrDuplicateProduct):
				conflict++
				j.logg.Warn(j.logg.WithProductID(ctx, p.ID.String()), "renormalized name collides with another product")
			case err != nil:
				return updated, fmt.Errorf("renormalize %s: %w", p.ID, err)
			case changed:
				updated++
			}
		}
		if len(rows) < j.batch {
			break
		}
		after = rows[len(rows)-1].ID
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"scanned":   scanned,
		"updated":   updated,
		"conflicts": conflict,
	}), "catalog renormalize complete")
	return updated, nil
}

func (j *catalogRenormalizeJob) renormalize(ctx context.Context, p *models.Product) (bool, error) {
	normalized := catalog.Normalize(p.Name)
	slug := catalog.Slugify(p.Name)
	if normalized == p.NormalizedName && slug == p.Slug {
		return false, nil
	}
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := j.repo.WithTx(tx).UpdateNormalization(ctx, p.ID, normalized, slug); err != nil {
			return err
		}
		return j.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductRenamed,
			AggregateType: enums.AggregateProduct,
			AggregateID:   p.ID,
			Data: payloads.ProductEvent{
				ProductID:      p.ID,
				Name:           p.Name,
				NormalizedName: normalized,
				Slug:           slug,
				Barcode:        p.Barcode,
				Brand:          p.Brand,
			},
		})
	})
	return err == nil, err
}
