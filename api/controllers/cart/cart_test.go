package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/basketwise/basketwise-backend/internal/cart"
	pkgerrors "github.com/basketwise/basketwise-backend/pkg/errors"
	"github.com/basketwise/basketwise-backend/pkg/logger"
)

type stubCartService struct {
	calc      *cartsvc.Calculation
	err       error
	lastInput cartsvc.CalculateInput
	calls     int
}

func (s *stubCartService) Calculate(_ context.Context, input cartsvc.CalculateInput) (*cartsvc.Calculation, error) {
	s.calls++
	s.lastInput = input
	return s.calc, s.err
}

func post(t *testing.T, svc cartsvc.Service, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	CartCalculate(svc, logger.Nop()).ServeHTTP(rec, req)
	return rec
}

func TestCartCalculateRendersStores(t *testing.T) {
	branchID := uuid.New()
	productID := uuid.New()
	svc := &stubCartService{calc: &cartsvc.Calculation{
		Stores: []cartsvc.BranchResult{{
			BranchID:   branchID,
			VendorID:   uuid.New(),
			BranchName: "Downtown",
			VendorName: "FreshMart",
			Items: []cartsvc.ItemResult{{
				ProductID: productID,
				Quantity:  2,
				UnitPrice: decimal.RequireFromString("5"),
				LineTotal: decimal.RequireFromString("10"),
				InStock:   true,
			}},
			Total:               decimal.RequireFromString("10"),
			ItemCount:           1,
			TotalItemsRequested: 1,
			HasAllItems:         true,
		}},
		CheapestBranchID: &branchID,
		MaxSavings:       decimal.Zero,
	}}

	rec := post(t, svc, `{"items":[{"productId":"`+productID.String()+`","quantity":2}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.lastInput.Items) != 1 || svc.lastInput.Items[0].Quantity != 2 {
		t.Fatalf("unexpected input %+v", svc.lastInput)
	}

	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data["cheapestStoreId"] != branchID.String() {
		t.Fatalf("unexpected cheapestStoreId %v", body.Data["cheapestStoreId"])
	}
	if body.Data["maxSavings"] != "0.00" {
		t.Fatalf("unexpected maxSavings %v", body.Data["maxSavings"])
	}
	store := body.Data["stores"].([]any)[0].(map[string]any)
	if store["total"] != "10.00" || store["hasAllItems"] != true {
		t.Fatalf("unexpected store %v", store)
	}
}

func TestCartCalculateEmptyCart(t *testing.T) {
	svc := &stubCartService{calc: &cartsvc.Calculation{Stores: []cartsvc.BranchResult{}, MaxSavings: decimal.Zero}}
	rec := post(t, svc, `{"items":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"stores":[]`) || !strings.Contains(rec.Body.String(), `"cheapestStoreId":null`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCartCalculateRejectsBadQuantity(t *testing.T) {
	svc := &stubCartService{}
	rec := post(t, svc, `{"items":[{"productId":"`+uuid.NewString()+`","quantity":0}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestCartCalculateRejectsUnknownFields(t *testing.T) {
	rec := post(t, &stubCartService{}, `{"items":[],"coupon":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCartCalculateStorageUnavailable(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.Wrap(pkgerrors.CodeStorageUnavailable, errors.New("dial"), "fetch branch prices")}
	rec := post(t, svc, `{"items":[{"productId":"`+uuid.NewString()+`","quantity":1}]}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
