package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/basketwise/basketwise-backend/api/responses"
	"github.com/basketwise/basketwise-backend/api/validators"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
	"github.com/basketwise/basketwise-backend/pkg/enums"
	pkgerrors "github.com/basketwise/basketwise-backend/pkg/errors"
	"github.com/basketwise/basketwise-backend/pkg/logger"
)

// BranchPriceLinker confirms or changes the product a price row points at.
type BranchPriceLinker interface {
	Relink(ctx context.Context, branchPriceID, productID uuid.UUID) (*models.BranchPrice, error)
	Confirm(ctx context.Context, branchPriceID uuid.UUID) (*models.BranchPrice, error)
}

type branchPriceResponse struct {
	ID          uuid.UUID         `json:"id"`
	BranchID    uuid.UUID         `json:"branchId"`
	ProductID   uuid.UUID         `json:"productId"`
	Price       string            `json:"price"`
	InStock     bool              `json:"inStock"`
	IsActive    bool              `json:"isActive"`
	MatchStatus enums.MatchStatus `json:"matchStatus"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func newBranchPriceResponse(bp *models.BranchPrice) branchPriceResponse {
	return branchPriceResponse{
		ID:          bp.ID,
		BranchID:    bp.BranchID,
		ProductID:   bp.ProductID,
		Price:       bp.Price.StringFixed(2),
		InStock:     bp.InStock,
		IsActive:    bp.IsActive,
		MatchStatus: bp.MatchStatus,
		UpdatedAt:   bp.UpdatedAt,
	}
}

type relinkRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
}

// RelinkBranchPrice points a price row at a different product and marks the
// link as confirmed.
func RelinkBranchPrice(svc BranchPriceLinker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "branch price service unavailable"))
			return
		}
		id, err := uuidParam(r, "branchPriceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload relinkRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Relink(r.Context(), id, payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBranchPriceResponse(row))
	}
}

// ConfirmBranchPrice promotes an automatic match to linked.
func ConfirmBranchPrice(svc BranchPriceLinker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "branch price service unavailable"))
			return
		}
		id, err := uuidParam(r, "branchPriceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Confirm(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBranchPriceResponse(row))
	}
}
