package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateProduct     OutboxAggregateType = "product"
	AggregateBranchPrice OutboxAggregateType = "branch_price"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateProduct,
	AggregateBranchPrice,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event written through the outbox.
type OutboxEventType string

const (
	EventProductCreated    OutboxEventType = "product_created"
	EventProductEnriched   OutboxEventType = "product_enriched"
	EventProductRenamed    OutboxEventType = "product_renormalized"
	EventBranchPriceLinked OutboxEventType = "branch_price_linked"
)

var validOutboxEventTypes = []OutboxEventType{
	EventProductCreated,
	EventProductEnriched,
	EventProductRenamed,
	EventBranchPriceLinked,
}

// String implements fmt.Stringer.
func (e OutboxEventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
