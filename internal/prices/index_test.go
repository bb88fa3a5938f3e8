package prices_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/basketwise/basketwise-backend/internal/prices"
	"github.com/basketwise/basketwise-backend/pkg/db/dbtest"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
	"github.com/basketwise/basketwise-backend/pkg/enums"
	pkgerrors "github.com/basketwise/basketwise-backend/pkg/errors"
)

func TestFetchPricesFiltersInvisibleRows(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()

	good := dbtest.SeedVendor(t, conn, "FreshMart", enums.ApprovalApproved, true)
	pending := dbtest.SeedVendor(t, conn, "Pending Foods", enums.ApprovalPending, true)
	dormant := dbtest.SeedVendor(t, conn, "Dormant Grocers", enums.ApprovalApproved, false)

	downtown := dbtest.SeedBranch(t, conn, good.ID, "Downtown", enums.ApprovalApproved, true)
	closed := dbtest.SeedBranch(t, conn, good.ID, "Closed", enums.ApprovalApproved, false)
	unapproved := dbtest.SeedBranch(t, conn, good.ID, "New", enums.ApprovalRejected, true)
	pendingBranch := dbtest.SeedBranch(t, conn, pending.ID, "P1", enums.ApprovalApproved, true)
	dormantBranch := dbtest.SeedBranch(t, conn, dormant.ID, "D1", enums.ApprovalApproved, true)

	milk := dbtest.SeedProduct(t, conn, "Milk 1 L", "milk 1 l", "milk-1-l", nil)
	bread := dbtest.SeedProduct(t, conn, "Bread", "bread", "bread", nil)

	visible := dbtest.SeedPrice(t, conn, downtown.ID, milk.ID, "1.99")
	dbtest.SeedPrice(t, conn, closed.ID, milk.ID, "1.50")
	dbtest.SeedPrice(t, conn, unapproved.ID, milk.ID, "1.40")
	dbtest.SeedPrice(t, conn, pendingBranch.ID, milk.ID, "1.30")
	dbtest.SeedPrice(t, conn, dormantBranch.ID, milk.ID, "1.20")
	inactive := dbtest.SeedPrice(t, conn, downtown.ID, bread.ID, "0.99")
	require.NoError(t, conn.Model(&models.BranchPrice{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)

	index := prices.NewIndex(conn)
	records, err := index.FetchPrices(context.Background(), []uuid.UUID{milk.ID, bread.ID, milk.ID})
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	require.Equal(t, visible.ID, got.BranchPriceID)
	require.Equal(t, downtown.ID, got.BranchID)
	require.Equal(t, good.ID, got.VendorID)
	require.Equal(t, "Downtown", got.BranchName)
	require.Equal(t, "FreshMart", got.VendorName)
	require.Equal(t, "1.99", got.Price.StringFixed(2))
	require.True(t, got.InStock)
}

func TestFetchPricesEmptyInput(t *testing.T) {
	index := prices.NewIndex(dbtest.Open(t).DB())
	records, err := index.FetchPrices(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, records)
	require.Empty(t, records)
}

func TestFetchPricesUnknownProductsYieldNothing(t *testing.T) {
	index := prices.NewIndex(dbtest.Open(t).DB())
	records, err := index.FetchPrices(context.Background(), []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestFetchPricesStorageFailureIsNotEmpty(t *testing.T) {
	client := dbtest.Open(t)
	require.NoError(t, client.Close())

	index := prices.NewIndex(client.DB())
	records, err := index.FetchPrices(context.Background(), []uuid.UUID{uuid.New()})
	require.Nil(t, records)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStorageUnavailable), "got %v", err)
}
