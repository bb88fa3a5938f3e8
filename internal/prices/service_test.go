package prices_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/basketwise/basketwise-backend/internal/prices"
	"github.com/basketwise/basketwise-backend/pkg/db"
	"github.com/basketwise/basketwise-backend/pkg/db/dbtest"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
	"github.com/basketwise/basketwise-backend/pkg/enums"
	pkgerrors "github.com/basketwise/basketwise-backend/pkg/errors"
	"github.com/basketwise/basketwise-backend/pkg/logger"
	"github.com/basketwise/basketwise-backend/pkg/outbox"
	"github.com/basketwise/basketwise-backend/pkg/outbox/payloads"
)

type linkFixture struct {
	client  *db.Client
	service *prices.LinkService
	branch  models.Branch
	oat     models.Product
	soy     models.Product
}

func newLinkFixture(t *testing.T) linkFixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	vendor := dbtest.SeedVendor(t, conn, "FreshMart", enums.ApprovalApproved, true)
	branch := dbtest.SeedBranch(t, conn, vendor.ID, "Downtown", enums.ApprovalApproved, true)
	oat := dbtest.SeedProduct(t, conn, "Oat Drink 1 L", "oat drink 1 l", "oat-drink-1-l", nil)
	soy := dbtest.SeedProduct(t, conn, "Soy Drink 1 L", "soy drink 1 l", "soy-drink-1-l", nil)

	svc, err := prices.NewLinkService(client, outbox.NewService(outbox.NewRepository(conn), logger.Nop()))
	require.NoError(t, err)
	return linkFixture{client: client, service: svc, branch: branch, oat: oat, soy: soy}
}

func (f linkFixture) outboxRows(t *testing.T) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.client.DB().Order("created_at").Find(&rows).Error)
	return rows
}

func TestRelinkMovesPriceAndEmitsEvent(t *testing.T) {
	f := newLinkFixture(t)
	row := dbtest.SeedPrice(t, f.client.DB(), f.branch.ID, f.oat.ID, "2.49")
	require.NoError(t, f.client.DB().Model(&row).Update("match_status", enums.MatchAutoMatched).Error)

	updated, err := f.service.Relink(context.Background(), row.ID, f.soy.ID)
	require.NoError(t, err)
	require.Equal(t, f.soy.ID, updated.ProductID)
	require.Equal(t, enums.MatchLinked, updated.MatchStatus)

	var stored models.BranchPrice
	require.NoError(t, f.client.DB().First(&stored, "id = ?", row.ID).Error)
	require.Equal(t, f.soy.ID, stored.ProductID)
	require.Equal(t, enums.MatchLinked, stored.MatchStatus)

	events := f.outboxRows(t)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventBranchPriceLinked, events[0].EventType)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var data payloads.BranchPriceLinkedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	require.NotNil(t, data.PreviousProductID)
	require.Equal(t, f.oat.ID, *data.PreviousProductID)
}

func TestRelinkRejectsSecondRowForSameProduct(t *testing.T) {
	f := newLinkFixture(t)
	row := dbtest.SeedPrice(t, f.client.DB(), f.branch.ID, f.oat.ID, "2.49")
	dbtest.SeedPrice(t, f.client.DB(), f.branch.ID, f.soy.ID, "2.29")

	_, err := f.service.Relink(context.Background(), row.ID, f.soy.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	require.Empty(t, f.outboxRows(t))
}

func TestRelinkNotFound(t *testing.T) {
	f := newLinkFixture(t)
	_, err := f.service.Relink(context.Background(), uuid.New(), f.soy.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	row := dbtest.SeedPrice(t, f.client.DB(), f.branch.ID, f.oat.ID, "2.49")
	_, err = f.service.Relink(context.Background(), row.ID, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestConfirmPromotesOnce(t *testing.T) {
	f := newLinkFixture(t)
	row := dbtest.SeedPrice(t, f.client.DB(), f.branch.ID, f.oat.ID, "2.49")
	require.NoError(t, f.client.DB().Model(&row).Update("match_status", enums.MatchNotLinked).Error)

	confirmed, err := f.service.Confirm(context.Background(), row.ID)
	require.NoError(t, err)
	require.Equal(t, enums.MatchLinked, confirmed.MatchStatus)
	require.Equal(t, f.oat.ID, confirmed.ProductID)

	_, err = f.service.Confirm(context.Background(), row.ID)
	require.NoError(t, err)
	require.Len(t, f.outboxRows(t), 1)
}

func TestNewLinkServiceValidatesDeps(t *testing.T) {
	_, err := prices.NewLinkService(nil, nil)
	require.Error(t, err)
}
