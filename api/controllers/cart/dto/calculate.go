package cartdto

import "github.com/google/uuid"

// CalculateRequest is the wholesale cart a client wants priced.
type CalculateRequest struct {
	Items []CalculateItem `json:"items" validate:"dive"`
}

type CalculateItem struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// CalculateResponse keeps the long-standing wire names: branches are "stores".
type CalculateResponse struct {
	Stores          []StoreResult `json:"stores"`
	CheapestStoreID *uuid.UUID    `json:"cheapestStoreId"`
	MaxSavings      string        `json:"maxSavings"`
}

type StoreResult struct {
	BranchID            uuid.UUID  `json:"branchId"`
	VendorID            uuid.UUID  `json:"vendorId"`
	BranchName          string     `json:"branchName"`
	VendorName          string     `json:"vendorName"`
	Items               []ItemLine `json:"items"`
	Total               string     `json:"total"`
	ItemCount           int        `json:"itemCount"`
	TotalItemsRequested int        `json:"totalItemsRequested"`
	HasAllItems         bool       `json:"hasAllItems"`
}

type ItemLine struct {
	ProductID     uuid.UUID `json:"productId"`
	BranchPriceID uuid.UUID `json:"branchPriceId"`
	Quantity      int       `json:"quantity"`
	UnitPrice     string    `json:"unitPrice"`
	LineTotal     string    `json:"lineTotal"`
	InStock       bool      `json:"inStock"`
}
