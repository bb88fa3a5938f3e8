package payloads

import "github.com/google/uuid"

// ProductEvent is published whenever a catalog product is created or changes
// in a way search indexes care about.
type ProductEvent struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	Slug           string    `json:"slug"`
	Barcode        *string   `json:"barcode,omitempty"`
	Brand          *string   `json:"brand,omitempty"`
	MatchedBy      string    `json:"matched_by,omitempty"`
}

// BranchPriceLinkedEvent records a human confirmed product link.
type BranchPriceLinkedEvent struct {
	BranchPriceID     uuid.UUID  `json:"branch_price_id"`
	BranchID          uuid.UUID  `json:"branch_id"`
	ProductID         uuid.UUID  `json:"product_id"`
	PreviousProductID *uuid.UUID `json:"previous_product_id,omitempty"`
	MatchStatus       string     `json:"match_status"`
}
