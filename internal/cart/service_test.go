package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/basketwise/basketwise-backend/internal/prices"
	"github.com/basketwise/basketwise-backend/pkg/config"
	pkgerrors "github.com/basketwise/basketwise-backend/pkg/errors"
	"github.com/basketwise/basketwise-backend/pkg/logger"
	"github.com/basketwise/basketwise-backend/pkg/metrics"
)

type stubIndex struct {
	records  []prices.BranchPriceRecord
	err      error
	calls    int
	deadline bool
}

func (s *stubIndex) FetchPrices(ctx context.Context, _ []uuid.UUID) ([]prices.BranchPriceRecord, error) {
	s.calls++
	_, s.deadline = ctx.Deadline()
	return s.records, s.err
}

func newTestService(t *testing.T, index *stubIndex) Service {
	t.Helper()
	svc, err := NewService(index, config.CartConfig{MaxItems: 3, FetchTimeout: time.Second},
		metrics.NewCartMetrics(prometheus.NewRegistry()), logger.Nop())
	require.NoError(t, err)
	return svc
}

func TestCalculateEmptyCartSkipsStorage(t *testing.T) {
	index := &stubIndex{}
	calc, err := newTestService(t, index).Calculate(context.Background(), CalculateInput{})
	require.NoError(t, err)
	require.Empty(t, calc.Stores)
	require.Nil(t, calc.CheapestBranchID)
	require.Zero(t, index.calls)
}

func TestCalculateRanksBranches(t *testing.T) {
	p1 := uuid.New()
	a, b := uuid.New(), uuid.New()
	index := &stubIndex{records: []prices.BranchPriceRecord{rec(a, p1, "2"), rec(b, p1, "1")}}

	calc, err := newTestService(t, index).Calculate(context.Background(), CalculateInput{Items: []LineItem{{p1, 2}}})
	require.NoError(t, err)
	require.Equal(t, b, *calc.CheapestBranchID)
	require.Equal(t, "2", calc.MaxSavings.String())
	require.True(t, index.deadline, "fetch should run under a timeout")
}

func TestCalculateValidation(t *testing.T) {
	svc := newTestService(t, &stubIndex{})
	cases := map[string][]LineItem{
		"zero quantity": {{uuid.New(), 0}},
		"nil product":   {{uuid.Nil, 1}},
		"too many":      {{uuid.New(), 1}, {uuid.New(), 1}, {uuid.New(), 1}, {uuid.New(), 1}},
	}
	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Calculate(context.Background(), CalculateInput{Items: items})
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestCalculateStorageFailurePropagates(t *testing.T) {
	index := &stubIndex{err: pkgerrors.Wrap(pkgerrors.CodeStorageUnavailable, errors.New("conn refused"), "fetch")}
	calc, err := newTestService(t, index).Calculate(context.Background(), CalculateInput{Items: []LineItem{{uuid.New(), 1}}})
	require.Nil(t, calc)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStorageUnavailable))
}

func TestCalculateUntypedFailureIsStorageUnavailable(t *testing.T) {
	index := &stubIndex{err: errors.New("boom")}
	_, err := newTestService(t, index).Calculate(context.Background(), CalculateInput{Items: []LineItem{{uuid.New(), 1}}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStorageUnavailable))
}

func TestNewServiceRequiresIndex(t *testing.T) {
	_, err := NewService(nil, config.CartConfig{}, nil, nil)
	require.Error(t, err)
}
