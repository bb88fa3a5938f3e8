package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/basketwise/basketwise-backend/internal/prices"
	"github.com/basketwise/basketwise-backend/pkg/config"
	pkgerrors "github.com/basketwise/basketwise-backend/pkg/errors"
	"github.com/basketwise/basketwise-backend/pkg/logger"
	"github.com/basketwise/basketwise-backend/pkg/metrics"
)

type priceFetcher interface {
	FetchPrices(ctx context.Context, productIDs []uuid.UUID) ([]prices.BranchPriceRecord, error)
}

// CalculateInput is a shopper basket as received at the boundary.
type CalculateInput struct {
	Items []LineItem
}

// Service compares a basket across branches.
type Service interface {
	Calculate(ctx context.Context, input CalculateInput) (*Calculation, error)
}

type service struct {
	index   priceFetcher
	cfg     config.CartConfig
	metrics *metrics.CartMetrics
	logg    *logger.Logger
}

// NewService builds the cart service.
func NewService(index priceFetcher, cfg config.CartConfig, m *metrics.CartMetrics, logg *logger.Logger) (Service, error) {
	if index == nil {
		return nil, fmt.Errorf("price index required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{index: index, cfg: cfg, metrics: m, logg: logg}, nil
}

// Calculate validates the basket, loads prices in one read and ranks branches.
func (s *service) Calculate(ctx context.Context, input CalculateInput) (*Calculation, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		calc := Optimize(nil, nil)
		return &calc, nil
	}

	started := time.Now()
	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.ProductID)
	}

	fetchCtx := ctx
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}
	records, err := s.index.FetchPrices(fetchCtx, ids)
	if err != nil {
		typed := pkgerrors.As(err)
		if typed == nil {
			typed = pkgerrors.Wrap(pkgerrors.CodeStorageUnavailable, err, "fetch branch prices")
		}
		s.metrics.IncFailure(string(typed.Code()))
		s.logg.Error(ctx, "cart price fetch failed", err)
		return nil, typed
	}

	calc := Optimize(input.Items, records)
	s.metrics.Observe(time.Since(started), len(calc.Stores))
	return &calc, nil
}

func (s *service) validate(input CalculateInput) error {
	if limit := s.cfg.MaxItems; limit > 0 && len(input.Items) > limit {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cart exceeds %d items", limit))
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].productId is required", i))
		}
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].quantity must be at least 1", i))
		}
	}
	return nil
}
