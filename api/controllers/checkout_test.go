package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cropchain/cropchain-backend/api/middleware"
	cartsvc "github.com/cropchain/cropchain-backend/internal/cart"
	checkoutsvc "github.com/cropchain/cropchain-backend/internal/checkout"
	"github.com/cropchain/cropchain-backend/internal/i18n"
	pkgerrors "github.com/cropchain/cropchain-backend/pkg/errors"
	"github.com/cropchain/cropchain-backend/pkg/logger"
)

type stubCheckoutService struct {
	result *checkoutsvc.Result
	err    error
	got    checkoutsvc.Request
	items  []cartsvc.CartItem
}

func (s *stubCheckoutService) Execute(ctx context.Context, req checkoutsvc.Request) (*checkoutsvc.Result, error) {
	s.got = req
	if req.Cart != nil {
		s.items = req.Cart.Items()
	}
	return s.result, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newCartService(t *testing.T, userID string, items []cartsvc.CartItem) cartsvc.Service {
	t.Helper()
	repo := cartsvc.NewMemoryRepository()
	if len(items) > 0 {
		_ = repo.Save(context.Background(), userID, items)
	}
	svc, err := cartsvc.NewService(repo, nil)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	return svc
}

type checkoutEnvelope struct {
	Data  checkoutResponse `json:"data"`
	Error struct {
		Code    string           `json:"code"`
		Message string           `json:"message"`
		Details checkoutResponse `json:"details"`
	} `json:"error"`
}

func TestCheckoutPassesIdentityAndKey(t *testing.T) {
	seller := "farmer-1"
	carts := newCartService(t, "buyer-1", []cartsvc.CartItem{{ID: "l1", Name: "wheat", Quantity: 2, Price: decimal.NewFromInt(10), UserID: &seller}})
	svc := &stubCheckoutService{result: &checkoutsvc.Result{
		CheckoutID: "key-1",
		Sellers:    []checkoutsvc.SellerResult{{SellerID: seller, OrderID: "o1", Committed: true, Total: decimal.NewFromInt(20), ItemCount: 1}},
		MessageKey: checkoutsvc.MessageCheckoutSuccess,
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set(middleware.IdempotencyKeyHeader, "key-1")
	ctx := middleware.WithUserID(req.Context(), "buyer-1")
	ctx = middleware.WithDisplayName(ctx, "Asha")
	resp := httptest.NewRecorder()
	Checkout(svc, carts, i18n.MustLoad("en"), testLogger())(resp, req.WithContext(ctx))

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if svc.got.Buyer.ID != "buyer-1" || svc.got.Buyer.DisplayName != "Asha" {
		t.Fatalf("unexpected buyer %+v", svc.got.Buyer)
	}
	if svc.got.CheckoutID != "key-1" {
		t.Fatalf("unexpected checkout id %q", svc.got.CheckoutID)
	}
	if len(svc.items) != 1 || svc.items[0].ID != "l1" {
		t.Fatalf("expected session cart to be handed over, got %+v", svc.items)
	}

	var body checkoutEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Committed != 1 {
		t.Fatalf("expected one committed seller, got %d", body.Data.Committed)
	}
	if body.Data.Message != "Your orders have been sent to the farmers." {
		t.Fatalf("unexpected message %q", body.Data.Message)
	}
	if body.Data.Title != "Order placed" {
		t.Fatalf("unexpected title %q", body.Data.Title)
	}
}

func TestCheckoutPartialFailureReportsCommittedSellers(t *testing.T) {
	svc := &stubCheckoutService{
		result: &checkoutsvc.Result{
			Sellers: []checkoutsvc.SellerResult{
				{SellerID: "farmer-1", Committed: true},
				{SellerID: "farmer-2"},
			},
			MessageKey: checkoutsvc.MessageCheckoutFailed,
		},
		err: pkgerrors.Wrap(pkgerrors.CodeCheckout, errors.New("commit failed"), "checkout failed"),
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "buyer-1"))
	resp := httptest.NewRecorder()
	Checkout(svc, newCartService(t, "buyer-1", nil), i18n.MustLoad("en"), testLogger())(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", resp.Code)
	}
	var body checkoutEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeCheckout) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Message != "Some orders could not be placed. Please try again." {
		t.Fatalf("unexpected message %q", body.Error.Message)
	}
	if body.Error.Details.Committed != 1 || len(body.Error.Details.Sellers) != 2 {
		t.Fatalf("unexpected details %+v", body.Error.Details)
	}
}

func TestCheckoutRequiresBuyer(t *testing.T) {
	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req = req.WithContext(middleware.WithLanguage(req.Context(), "hi"))
	resp := httptest.NewRecorder()
	Checkout(svc, newCartService(t, "", nil), i18n.MustLoad("en"), testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if svc.got.Buyer.ID != "" {
		t.Fatal("checkout should not run without a buyer")
	}
	var body checkoutEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Message == "" || body.Error.Message == checkoutsvc.MessageAuthError {
		t.Fatalf("expected localized auth message, got %q", body.Error.Message)
	}
}

func TestCheckoutEmptyCartHasNoMessage(t *testing.T) {
	svc := &stubCheckoutService{result: &checkoutsvc.Result{}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "buyer-1"))
	resp := httptest.NewRecorder()
	Checkout(svc, newCartService(t, "buyer-1", nil), i18n.MustLoad("en"), testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var body checkoutEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Message != "" || body.Data.MessageKey != "" {
		t.Fatalf("expected no toast for an empty cart, got %+v", body.Data)
	}
	if body.Data.Sellers == nil {
		t.Fatal("sellers should encode as an empty list")
	}
}
