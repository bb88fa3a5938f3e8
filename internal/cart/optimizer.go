package cart

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/basketwise/basketwise-backend/internal/prices"
)

// LineItem is one requested product and how many of it.
type LineItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// ItemResult is a cart line that a branch can supply.
type ItemResult struct {
	ProductID     uuid.UUID
	BranchPriceID uuid.UUID
	Quantity      int
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
	InStock       bool
}

// BranchResult is the basket priced at a single branch.
type BranchResult struct {
	BranchID            uuid.UUID
	VendorID            uuid.UUID
	BranchName          string
	VendorName          string
	Items               []ItemResult
	Total               decimal.Decimal
	ItemCount           int
	TotalItemsRequested int
	HasAllItems         bool
}

// Calculation is the ranked comparison across branches.
type Calculation struct {
	Stores           []BranchResult
	CheapestBranchID *uuid.UUID
	MaxSavings       decimal.Decimal
}

// Optimize prices the cart at every branch present in records and ranks them.
// Branches stocking every item come first by ascending total, then partial
// branches by descending item count and ascending total. Branches with no
// cart item are left out. It never fails: unknown products simply match
// nothing.
func Optimize(items []LineItem, records []prices.BranchPriceRecord) Calculation {
	lines := mergeLines(items)
	if len(lines) == 0 {
		return Calculation{Stores: []BranchResult{}, MaxSavings: decimal.Zero}
	}

	byBranch := indexRecords(records)
	branchIDs := make([]uuid.UUID, 0, len(byBranch))
	for id := range byBranch {
		branchIDs = append(branchIDs, id)
	}
	slices.SortFunc(branchIDs, compareIDs)

	var full, partial []BranchResult
	for _, branchID := range branchIDs {
		result := priceBranch(lines, byBranch[branchID])
		switch {
		case result.ItemCount == 0:
		case result.HasAllItems:
			full = append(full, result)
		default:
			partial = append(partial, result)
		}
	}

	slices.SortStableFunc(full, func(a, b BranchResult) int {
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c
		}
		return compareIDs(a.BranchID, b.BranchID)
	})
	slices.SortStableFunc(partial, func(a, b BranchResult) int {
		if c := cmp.Compare(b.ItemCount, a.ItemCount); c != 0 {
			return c
		}
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c
		}
		return compareIDs(a.BranchID, b.BranchID)
	})

	calc := Calculation{
		Stores:     append(append(make([]BranchResult, 0, len(full)+len(partial)), full...), partial...),
		MaxSavings: decimal.Zero,
	}
	if len(calc.Stores) > 0 {
		cheapest := calc.Stores[0].BranchID
		calc.CheapestBranchID = &cheapest
	}
	if len(full) >= 2 {
		calc.MaxSavings = full[len(full)-1].Total.Sub(full[0].Total)
	}
	return calc
}

// mergeLines sums quantities of repeated products, keeping first-seen order,
// and drops lines that end up with no positive quantity.
func mergeLines(items []LineItem) []LineItem {
	pos := make(map[uuid.UUID]int, len(items))
	merged := make([]LineItem, 0, len(items))
	for _, item := range items {
		if i, ok := pos[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		pos[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return slices.DeleteFunc(merged, func(l LineItem) bool { return l.Quantity <= 0 })
}

type branchPrices struct {
	branchID   uuid.UUID
	vendorID   uuid.UUID
	branchName string
	vendorName string
	byProduct  map[uuid.UUID]prices.BranchPriceRecord
}

func indexRecords(records []prices.BranchPriceRecord) map[uuid.UUID]*branchPrices {
	out := make(map[uuid.UUID]*branchPrices)
	for _, rec := range records {
		bp, ok := out[rec.BranchID]
		if !ok {
			bp = &branchPrices{
				branchID:   rec.BranchID,
				vendorID:   rec.VendorID,
				branchName: rec.BranchName,
				vendorName: rec.VendorName,
				byProduct:  make(map[uuid.UUID]prices.BranchPriceRecord),
			}
			out[rec.BranchID] = bp
		}
		// one row per branch and product is expected; keep the cheapest if not
		if existing, dup := bp.byProduct[rec.ProductID]; dup && existing.Price.LessThanOrEqual(rec.Price) {
			continue
		}
		bp.byProduct[rec.ProductID] = rec
	}
	return out
}

func priceBranch(lines []LineItem, bp *branchPrices) BranchResult {
	result := BranchResult{
		BranchID:            bp.branchID,
		VendorID:            bp.vendorID,
		BranchName:          bp.branchName,
		VendorName:          bp.vendorName,
		Items:               []ItemResult{},
		Total:               decimal.Zero,
		TotalItemsRequested: len(lines),
	}
	for _, line := range lines {
		rec, ok := bp.byProduct[line.ProductID]
		if !ok {
			continue
		}
		lineTotal := rec.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		result.Items = append(result.Items, ItemResult{
			ProductID:     line.ProductID,
			BranchPriceID: rec.BranchPriceID,
			Quantity:      line.Quantity,
			UnitPrice:     rec.Price,
			LineTotal:     lineTotal,
			InStock:       rec.InStock,
		})
		result.Total = result.Total.Add(lineTotal)
		result.ItemCount++
	}
	result.HasAllItems = result.ItemCount == len(lines)
	return result
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
