package cart

import (
	cartdto "github.com/basketwise/basketwise-backend/api/controllers/cart/dto"
	"github.com/basketwise/basketwise-backend/internal/cart"
)

func toCalculateInput(payload cartdto.CalculateRequest) cart.CalculateInput {
	items := make([]cart.LineItem, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, cart.LineItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return cart.CalculateInput{Items: items}
}
