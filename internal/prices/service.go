package prices

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/basketwise/basketwise-backend/pkg/db"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
	"github.com/basketwise/basketwise-backend/pkg/enums"
	pkgerrors "github.com/basketwise/basketwise-backend/pkg/errors"
	"github.com/basketwise/basketwise-backend/pkg/outbox"
	"github.com/basketwise/basketwise-backend/pkg/outbox/payloads"
)

const uniqueBranchProduct = "ux_branch_prices_branch_product"

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// LinkService lets an operator confirm or correct the product a branch price points at.
type LinkService struct {
	db     *db.Client
	events eventEmitter
}

// NewLinkService wires the service.
func NewLinkService(dbClient *db.Client, events eventEmitter) (*LinkService, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &LinkService{db: dbClient, events: events}, nil
}

// Relink points the branch price at productID and marks it linked.
func (s *LinkService) Relink(ctx context.Context, branchPriceID, productID uuid.UUID) (*models.BranchPrice, error) {
	var out models.BranchPrice
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := loadForUpdate(tx, branchPriceID)
		if err != nil {
			return err
		}

		var productCount int64
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).Count(&productCount).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if productCount == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		previous := row.ProductID
		if previous != productID {
			var clash int64
			if err := tx.Model(&models.BranchPrice{}).
				Where("branch_id = ? AND product_id = ? AND id <> ?", row.BranchID, productID, row.ID).
				Count(&clash).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check branch price uniqueness")
			}
			if clash > 0 {
				return pkgerrors.New(pkgerrors.CodeConflict, "branch already has a price for this product")
			}
		}

		if err := tx.Model(row).Updates(map[string]any{
			"product_id":   productID,
			"match_status": enums.MatchLinked,
		}).Error; err != nil {
			if db.IsUniqueViolation(err, uniqueBranchProduct) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "branch already has a price for this product")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update branch price")
		}
		row.ProductID = productID
		row.MatchStatus = enums.MatchLinked

		var prev *uuid.UUID
		if previous != productID {
			prev = &previous
		}
		if err := s.emitLinked(ctx, tx, row, prev); err != nil {
			return err
		}
		out = *row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Confirm accepts the current product link as correct.
func (s *LinkService) Confirm(ctx context.Context, branchPriceID uuid.UUID) (*models.BranchPrice, error) {
	var out models.BranchPrice
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		row, err := loadForUpdate(tx, branchPriceID)
		if err != nil {
			return err
		}
		if row.MatchStatus == enums.MatchLinked {
			out = *row
			return nil
		}
		if err := tx.Model(row).Update("match_status", enums.MatchLinked).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirm branch price")
		}
		row.MatchStatus = enums.MatchLinked
		if err := s.emitLinked(ctx, tx, row, nil); err != nil {
			return err
		}
		out = *row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *LinkService) emitLinked(ctx context.Context, tx *gorm.DB, row *models.BranchPrice, previous *uuid.UUID) error {
	branchID := row.BranchID
	err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventBranchPriceLinked,
		AggregateType: enums.AggregateBranchPrice,
		AggregateID:   row.ID,
		Source:        &outbox.Source{BranchID: &branchID, Channel: "operator"},
		Data: payloads.BranchPriceLinkedEvent{
			BranchPriceID:     row.ID,
			BranchID:          row.BranchID,
			ProductID:         row.ProductID,
			PreviousProductID: previous,
			MatchStatus:       string(row.MatchStatus),
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit branch price event")
	}
	return nil
}

func loadForUpdate(tx *gorm.DB, id uuid.UUID) (*models.BranchPrice, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row models.BranchPrice
	if err := q.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "branch price not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load branch price")
	}
	return &row, nil
}
