package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/basketwise/basketwise-backend/internal/catalog"
	"github.com/basketwise/basketwise-backend/pkg/db/dbtest"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
)

func TestRepositoryIdentityConstraints(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	ctx := context.Background()

	withBarcode := &models.Product{Name: "Tea", NormalizedName: "tea", Slug: "tea", Barcode: strPtr("4001234567890")}
	require.NoError(t, repo.Insert(ctx, withBarcode))

	// same name without barcode is a different identity slot
	noBarcode := &models.Product{Name: "Tea", NormalizedName: "tea", Slug: "tea"}
	require.NoError(t, repo.Insert(ctx, noBarcode))

	err := repo.Insert(ctx, &models.Product{Name: "Other", NormalizedName: "other", Slug: "other", Barcode: strPtr("4001234567890")})
	require.ErrorIs(t, err, catalog.ErrDuplicateProduct)

	err = repo.Insert(ctx, &models.Product{Name: "TEA", NormalizedName: "tea", Slug: "tea"})
	require.ErrorIs(t, err, catalog.ErrDuplicateProduct)

	found, err := repo.FindByBarcode(ctx, "4001234567890")
	require.NoError(t, err)
	require.Equal(t, withBarcode.ID, found.ID)

	missing, err := repo.FindByBarcode(ctx, "0000000000000")
	require.NoError(t, err)
	require.Nil(t, missing)

	byName, err := repo.FindByNormalizedName(ctx, "tea")
	require.NoError(t, err)
	require.Len(t, byName, 2)
	require.Equal(t, withBarcode.ID, byName[0].ID, "oldest first")
}

func TestRepositoryUpdateNormalizationAndWalk(t *testing.T) {
	repo := NewRepository(dbtest.Open(t).DB())
	ctx := context.Background()

	a := &models.Product{Name: "Kellogg's Corn Flakes", NormalizedName: "kellogg's corn flakes", Slug: "kellogg-s-corn-flakes"}
	b := &models.Product{Name: "Milk", NormalizedName: "milk", Slug: "milk"}
	require.NoError(t, repo.Insert(ctx, a))
	require.NoError(t, repo.Insert(ctx, b))

	require.NoError(t, repo.UpdateNormalization(ctx, a.ID, "kelloggs corn flakes", "kelloggs-corn-flakes"))
	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "kelloggs corn flakes", got.NormalizedName)
	require.Equal(t, "Kellogg's Corn Flakes", got.Name)

	err = repo.UpdateNormalization(ctx, a.ID, "milk", "milk")
	require.ErrorIs(t, err, catalog.ErrDuplicateProduct)

	var seen []uuid.UUID
	after := uuid.Nil
	for {
		batch, err := repo.ListAfter(ctx, after, 1)
		require.NoError(t, err)
		if len(batch) == 0 {
			break
		}
		seen = append(seen, batch[0].ID)
		after = batch[0].ID
	}
	require.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, seen)
}
