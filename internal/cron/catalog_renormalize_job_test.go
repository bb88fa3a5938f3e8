package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basketwise/basketwise-backend/internal/catalog"
	product "github.com/basketwise/basketwise-backend/internal/products"
	"github.com/basketwise/basketwise-backend/pkg/db/dbtest"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
	"github.com/basketwise/basketwise-backend/pkg/enums"
	"github.com/basketwise/basketwise-backend/pkg/logger"
	"github.com/basketwise/basketwise-backend/pkg/outbox"
)

func TestCatalogRenormalizeRewritesStaleRows(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()

	stale := dbtest.SeedProduct(t, conn, "Topscore 10KG", "topscore 10kg", "topscore-10kg", nil)
	current := dbtest.SeedProduct(t, conn, "Milk -- 2 Litres", catalog.Normalize("Milk -- 2 Litres"), catalog.Slugify("Milk -- 2 Litres"), nil)
	collides := dbtest.SeedProduct(t, conn, "MILK 2 L", "milk 2 litres legacy", "milk-2-l", nil)
	brand := "Acme"
	require.NoError(t, conn.Model(&stale).Update("brand", brand).Error)

	job, err := NewCatalogRenormalizeJob(CatalogRenormalizeJobParams{
		Logger:     logger.Nop(),
		DB:         client,
		Repository: product.NewRepository(conn),
		Events:     outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		BatchSize:  1,
	})
	require.NoError(t, err)

	updated, err := job.Run(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	var got models.Product
	require.NoError(t, conn.First(&got, "id = ?", stale.ID).Error)
	require.Equal(t, "topscore 10 kg", got.NormalizedName)
	require.Equal(t, "Topscore 10KG", got.Name)
	require.Equal(t, brand, *got.Brand)

	var untouched models.Product
	require.NoError(t, conn.First(&untouched, "id = ?", collides.ID).Error)
	require.Equal(t, "milk 2 litres legacy", untouched.NormalizedName, "colliding row is left alone")

	var unchanged models.Product
	require.NoError(t, conn.First(&unchanged, "id = ?", current.ID).Error)
	require.Equal(t, "milk 2 l", unchanged.NormalizedName)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventProductRenamed, events[0].EventType)
	require.Equal(t, stale.ID, events[0].AggregateID)

	again, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, again)
}

func TestCatalogRenormalizeRequiresDeps(t *testing.T) {
	_, err := NewCatalogRenormalizeJob(CatalogRenormalizeJobParams{Logger: logger.Nop()})
	require.Error(t, err)
}
