package cart

import (
	cartdto "github.com/basketwise/basketwise-backend/api/controllers/cart/dto"
	"github.com/basketwise/basketwise-backend/internal/cart"
)

const moneyPlaces = 2

func newCalculateResponse(calc *cart.Calculation) cartdto.CalculateResponse {
	stores := make([]cartdto.StoreResult, 0, len(calc.Stores))
	for _, branch := range calc.Stores {
		items := make([]cartdto.ItemLine, 0, len(branch.Items))
		for _, item := range branch.Items {
			items = append(items, cartdto.ItemLine{
				ProductID:     item.ProductID,
				BranchPriceID: item.BranchPriceID,
				Quantity:      item.Quantity,
				UnitPrice:     item.UnitPrice.StringFixed(moneyPlaces),
				LineTotal:     item.LineTotal.StringFixed(moneyPlaces),
				InStock:       item.InStock,
			})
		}
		stores = append(stores, cartdto.StoreResult{
			BranchID:            branch.BranchID,
			VendorID:            branch.VendorID,
			BranchName:          branch.BranchName,
			VendorName:          branch.VendorName,
			Items:               items,
			Total:               branch.Total.StringFixed(moneyPlaces),
			ItemCount:           branch.ItemCount,
			TotalItemsRequested: branch.TotalItemsRequested,
			HasAllItems:         branch.HasAllItems,
		})
	}
	return cartdto.CalculateResponse{
		Stores:          stores,
		CheapestStoreID: calc.CheapestBranchID,
		MaxSavings:      calc.MaxSavings.StringFixed(moneyPlaces),
	}
}
