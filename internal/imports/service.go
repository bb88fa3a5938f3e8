package imports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	product "github.com/basketwise/basketwise-backend/internal/products"
	"github.com/basketwise/basketwise-backend/pkg/db"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
	"github.com/basketwise/basketwise-backend/pkg/enums"
	pkgerrors "github.com/basketwise/basketwise-backend/pkg/errors"
	"github.com/basketwise/basketwise-backend/pkg/logger"
)

// MaxRows bounds one import request.
const MaxRows = 1000

// Row is one line of a vendor price file.
type Row struct {
	Name        string
	Barcode     *string
	Brand       *string
	Size        *string
	Unit        *string
	ImageURL    *string
	Description *string
	Price       decimal.Decimal
	InStock     bool
}

// RowResult reports what happened to a successfully imported row.
type RowResult struct {
	Row           int               `json:"row"`
	ProductID     uuid.UUID         `json:"productId"`
	BranchPriceID uuid.UUID         `json:"branchPriceId"`
	Created       bool              `json:"created"`
	MatchStatus   enums.MatchStatus `json:"matchStatus"`
}

// RowError is a row that could not be imported.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Report summarises an import.
type Report struct {
	Total    int         `json:"total"`
	Imported int         `json:"imported"`
	Created  int         `json:"created"`
	Matched  int         `json:"matched"`
	Failed   int         `json:"failed"`
	Rows     []RowResult `json:"rows"`
	Errors   []RowError  `json:"errors"`
}

type rowError struct {
	row int
	err error
}

func (e rowError) Error() string { return fmt.Sprintf("row %d: %v", e.row, e.err) }
func (e rowError) Unwrap() error { return e.err }

type productResolver interface {
	ResolveProduct(ctx context.Context, input product.ResolveProductInput) (*product.ProductDTO, bool, error)
}

// Service matches vendor price files against the catalog.
type Service struct {
	db       *db.Client
	products productResolver
	logg     *logger.Logger
}

// NewService wires the import service.
func NewService(dbClient *db.Client, products productResolver, logg *logger.Logger) (*Service, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if products == nil {
		return nil, fmt.Errorf("product resolver required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{db: dbClient, products: products, logg: logg}, nil
}

// Import resolves every row to a catalog product and upserts the branch
// price. A bad row is reported and skipped; it never aborts the batch.
func (s *Service) Import(ctx context.Context, vendorID, branchID uuid.UUID, rows []Row) (*Report, error) {
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rows are required")
	}
	if len(rows) > MaxRows {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d rows per import", MaxRows))
	}
	branch, err := s.loadBranch(ctx, vendorID, branchID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithBranchID(s.logg.WithVendorID(ctx, vendorID.String()), branchID.String())

	report := &Report{Total: len(rows), Rows: []RowResult{}, Errors: []RowError{}}
	var rowErrs error
	for i, row := range rows {
		result, err := s.importRow(ctx, branch, row)
		if err != nil {
			rowErrs = multierr.Append(rowErrs, rowError{row: i, err: err})
			continue
		}
		result.Row = i
		report.Rows = append(report.Rows, result)
		report.Imported++
		if result.Created {
			report.Created++
		} else {
			report.Matched++
		}
	}

	for _, err := range multierr.Errors(rowErrs) {
		var re rowError
		if errors.As(err, &re) {
			msg := re.err.Error()
			if typed := pkgerrors.As(re.err); typed != nil {
				msg = typed.Message()
			}
			report.Errors = append(report.Errors, RowError{Row: re.row, Message: msg})
		}
	}
	report.Failed = len(report.Errors)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"total":    report.Total,
		"imported": report.Imported,
		"created":  report.Created,
		"failed":   report.Failed,
	})
	if rowErrs != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "errors", rowErrs.Error()), "price import finished with row errors")
	} else {
		s.logg.Info(logCtx, "price import finished")
	}
	return report, nil
}

func (s *Service) loadBranch(ctx context.Context, vendorID, branchID uuid.UUID) (*models.Branch, error) {
	conn := s.db.DB().WithContext(ctx)

	var vendor models.Vendor
	if err := conn.First(&vendor, "id = ?", vendorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vendor")
	}
	var branch models.Branch
	if err := conn.First(&branch, "id = ? AND vendor_id = ?", branchID, vendorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "branch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load branch")
	}
	if !vendor.Visible() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "vendor is not approved and active")
	}
	if !branch.Visible() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "branch is not approved and active")
	}
	return &branch, nil
}

func (s *Service) importRow(ctx context.Context, branch *models.Branch, row Row) (RowResult, error) {
	if strings.TrimSpace(row.Name) == "" {
		return RowResult{}, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if row.Price.IsNegative() {
		return RowResult{}, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}

	dto, created, err := s.products.ResolveProduct(ctx, product.ResolveProductInput{
		Name:        row.Name,
		Barcode:     row.Barcode,
		Brand:       row.Brand,
		Size:        row.Size,
		Unit:        row.Unit,
		ImageURL:    row.ImageURL,
		Description: row.Description,
	})
	if err != nil {
		return RowResult{}, err
	}

	status := enums.MatchAutoMatched
	if created {
		status = enums.MatchNotLinked
	}
	price, err := s.upsertPrice(ctx, branch.ID, dto.ID, row, status)
	if err != nil {
		return RowResult{}, err
	}
	return RowResult{
		ProductID:     dto.ID,
		BranchPriceID: price.ID,
		Created:       created,
		MatchStatus:   price.MatchStatus,
	}, nil
}

// upsertPrice writes the branch price. An operator confirmed link survives a
// price refresh; any other status is replaced by the new match outcome.
func (s *Service) upsertPrice(ctx context.Context, branchID, productID uuid.UUID, row Row, status enums.MatchStatus) (*models.BranchPrice, error) {
	name := strings.TrimSpace(row.Name)
	record := models.BranchPrice{
		BranchID:    branchID,
		ProductID:   productID,
		Price:       row.Price.Round(2),
		InStock:     row.InStock,
		IsActive:    true,
		MatchStatus: status,
		SourceName:  &name,
	}
	var stored models.BranchPrice
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "branch_id"}, {Name: "product_id"}},
			DoUpdates: append(
				clause.AssignmentColumns([]string{"price", "in_stock", "is_active", "source_name", "updated_at"}),
				clause.Assignment{
					Column: clause.Column{Name: "match_status"},
					Value: gorm.Expr("CASE WHEN branch_prices.match_status = ? THEN branch_prices.match_status ELSE excluded.match_status END",
						enums.MatchLinked),
				},
			),
		}).Create(&record).Error
		if err != nil {
			return err
		}
		// gorm skips zero values on insert, so in_stock=false must be forced.
		if !row.InStock {
			if err := tx.Model(&models.BranchPrice{}).
				Where("branch_id = ? AND product_id = ?", branchID, productID).
				Update("in_stock", false).Error; err != nil {
				return err
			}
		}
		return tx.Where("branch_id = ? AND product_id = ?", branchID, productID).Take(&stored).Error
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert branch price")
	}
	return &stored, nil
}
