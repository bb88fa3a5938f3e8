package enums

import "testing"

func TestParseMatchStatus(t *testing.T) {
	for _, raw := range []string{"linked", "auto_matched", "not_linked"} {
		got, err := ParseMatchStatus(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if got.String() != raw || !got.IsValid() {
			t.Fatalf("round trip failed for %q", raw)
		}
	}
	if _, err := ParseMatchStatus("matched"); err == nil {
		t.Fatal("expected error for unknown match status")
	}
}

func TestParseApprovalStatus(t *testing.T) {
	if got, err := ParseApprovalStatus("approved"); err != nil || got != ApprovalApproved {
		t.Fatalf("unexpected parse result %q err=%v", got, err)
	}
	if ApprovalStatus("archived").IsValid() {
		t.Fatal("archived must not be a valid approval status")
	}
}

func TestOutboxEnums(t *testing.T) {
	if !EventProductCreated.IsValid() || !AggregateProduct.IsValid() {
		t.Fatal("expected product enums to be valid")
	}
	if _, err := ParseOutboxEventType("order_created"); err == nil {
		t.Fatal("expected unknown event type to fail")
	}
	if _, err := ParseOutboxAggregateType("branch_price"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
