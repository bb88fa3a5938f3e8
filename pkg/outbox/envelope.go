package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Source identifies the vendor flow that caused the event, when there is one.
type Source struct {
	VendorID *uuid.UUID `json:"vendorId,omitempty"`
	BranchID *uuid.UUID `json:"branchId,omitempty"`
	Channel  string     `json:"channel,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Source     *Source         `json:"source,omitempty"`
	Data       json.RawMessage `json:"data"`
}
