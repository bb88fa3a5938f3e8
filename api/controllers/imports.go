package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/basketwise/basketwise-backend/api/responses"
	"github.com/basketwise/basketwise-backend/api/validators"
	"github.com/basketwise/basketwise-backend/internal/imports"
	pkgerrors "github.com/basketwise/basketwise-backend/pkg/errors"
	"github.com/basketwise/basketwise-backend/pkg/logger"
)

// Row level problems (blank name, negative price) are reported per row by the
// import itself, so rows are only shape-checked here.
type importRequest struct {
	Rows []importRow `json:"rows" validate:"required,min=1,max=1000"`
}

type importRow struct {
	Name        string          `json:"name"`
	Barcode     *string         `json:"barcode,omitempty"`
	Brand       *string         `json:"brand,omitempty"`
	Size        *string         `json:"size,omitempty"`
	Unit        *string         `json:"unit,omitempty"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	InStock     *bool           `json:"inStock,omitempty"`
}

func (r importRequest) toRows() []imports.Row {
	rows := make([]imports.Row, 0, len(r.Rows))
	for _, row := range r.Rows {
		inStock := true
		if row.InStock != nil {
			inStock = *row.InStock
		}
		rows = append(rows, imports.Row{
			Name:        row.Name,
			Barcode:     row.Barcode,
			Brand:       row.Brand,
			Size:        row.Size,
			Unit:        row.Unit,
			ImageURL:    row.ImageURL,
			Description: row.Description,
			Price:       row.Price,
			InStock:     inStock,
		})
	}
	return rows
}

// BranchImporter loads a vendor price file into one branch.
type BranchImporter interface {
	Import(ctx context.Context, vendorID, branchID uuid.UUID, rows []imports.Row) (*imports.Report, error)
}

// ImportBranchPrices runs a vendor price file through product resolution and
// upserts the branch's price rows.
func ImportBranchPrices(svc BranchImporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable"))
			return
		}
		vendorID, err := uuidParam(r, "vendorID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		branchID, err := uuidParam(r, "branchID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload importRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithVendorID(r.Context(), vendorID.String())
		ctx = logg.WithBranchID(ctx, branchID.String())
		report, err := svc.Import(ctx, vendorID, branchID, payload.toRows())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
