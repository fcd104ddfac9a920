package cart

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/cropchain/cropchain-backend/pkg/errors"
	"github.com/cropchain/cropchain-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

func strPtr(v string) *string { return &v }

func openSession(t *testing.T, repo Repository) *Session {
	t.Helper()
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	session, err := svc.Open(context.Background(), "buyer-1")
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(session.Close)
	return session
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	_ = repo.Save(context.Background(), "buyer-1", []CartItem{{ID: "x", Name: "wheat", Quantity: 1, Price: decimal.NewFromInt(10)}})
	session := openSession(t, repo)

	if err := session.AddItem(context.Background(), CartItem{ID: "x", Name: "wheat"}, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	items := session.Items()
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("expected single line with quantity 3, got %+v", items)
	}

	persisted, _ := repo.Load(context.Background(), "buyer-1")
	if len(persisted) != 1 || persisted[0].Quantity != 3 {
		t.Fatalf("expected persisted quantity 3, got %+v", persisted)
	}
}

func TestAddItemValidation(t *testing.T) {
	t.Parallel()

	session := openSession(t, NewMemoryRepository())
	cases := []struct {
		name string
		item CartItem
		qty  int
	}{
		{"missing id", CartItem{Name: "corn"}, 1},
		{"zero quantity", CartItem{ID: "a", Name: "corn"}, 0},
		{"negative price", CartItem{ID: "a", Name: "corn", Price: decimal.NewFromInt(-1)}, 1},
		{"seller id with slash", CartItem{ID: "a", Name: "corn", UserID: strPtr("bad/seller")}, 1},
		{"blank seller id", CartItem{ID: "a", Name: "corn", UserID: strPtr("  ")}, 1},
	}
	for _, tc := range cases {
		err := session.AddItem(context.Background(), tc.item, tc.qty)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
	if session.Count() != 0 {
		t.Fatalf("rejected items must not be added")
	}
}

func TestUpdateQuantityAndRemove(t *testing.T) {
	t.Parallel()

	session := openSession(t, NewMemoryRepository())
	ctx := context.Background()
	_ = session.AddItem(ctx, CartItem{ID: "a", Name: "corn", UserID: strPtr("s1")}, 1)
	_ = session.AddItem(ctx, CartItem{ID: "prod-01", Name: "prod-01"}, 2)

	session.UpdateItemQuantity(ctx, "a", 5)
	if session.Count() != 7 {
		t.Fatalf("expected count 7, got %d", session.Count())
	}

	session.UpdateItemQuantity(ctx, "a", 0)
	items := session.Items()
	if len(items) != 1 || items[0].ID != "prod-01" {
		t.Fatalf("qty 0 should remove the line, got %+v", items)
	}

	session.RemoveItem(ctx, "missing")
	session.RemoveItem(ctx, "prod-01")
	if session.Count() != 0 || len(session.Items()) != 0 {
		t.Fatalf("expected empty cart")
	}
}

func TestClearPersistsEmptyCart(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	session := openSession(t, repo)
	ctx := context.Background()
	_ = session.AddItem(ctx, CartItem{ID: "a", Name: "corn"}, 1)
	session.Clear(ctx)

	persisted, _ := repo.Load(ctx, "buyer-1")
	if len(persisted) != 0 {
		t.Fatalf("expected cleared cart, got %+v", persisted)
	}
}

func TestOpenRequiresSession(t *testing.T) {
	t.Parallel()

	svc, _ := NewService(NewMemoryRepository(), nil)
	_, err := svc.Open(context.Background(), " ")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestLoadAndSaveFailuresAreLogged(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	repo := &failingRepo{loadErr: errors.New("redis down"), saveErr: errors.New("redis down")}
	svc, _ := NewService(repo, logg)

	session, err := svc.Open(context.Background(), "buyer-1")
	if err != nil {
		t.Fatalf("open should not fail on load error: %v", err)
	}
	defer session.Close()

	if err := session.AddItem(context.Background(), CartItem{ID: "a", Name: "corn"}, 1); err != nil {
		t.Fatalf("save errors must not surface: %v", err)
	}
	if session.Count() != 1 {
		t.Fatalf("in-memory cart should still hold the item")
	}

	out := buf.String()
	if !strings.Contains(out, "cart.load_failed") || !strings.Contains(out, "cart.save_failed") {
		t.Fatalf("expected load and save failures in log, got %s", out)
	}
}

func TestSessionsForSameUserAreSerialized(t *testing.T) {
	t.Parallel()

	svc, _ := NewService(NewMemoryRepository(), nil)
	first, err := svc.Open(context.Background(), "buyer-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	opened := make(chan *Session)
	go func() {
		second, _ := svc.Open(context.Background(), "buyer-1")
		opened <- second
	}()

	_ = first.AddItem(context.Background(), CartItem{ID: "a", Name: "corn"}, 1)
	select {
	case <-opened:
		t.Fatal("second open must wait for the first session to close")
	case <-time.After(20 * time.Millisecond):
	}
	first.Close()

	second := <-opened
	defer second.Close()
	if second.Count() != 1 {
		t.Fatalf("second session should see the first session's write, got %d", second.Count())
	}
}

func TestOpenGivesUpWhenContextEnds(t *testing.T) {
	t.Parallel()

	svc, _ := NewService(NewMemoryRepository(), nil)
	first, err := svc.Open(context.Background(), "buyer-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	blocked, err := svc.Open(ctx, "buyer-1")
	if blocked != nil {
		t.Fatal("expected no session while the cart is held")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause, got %v", err)
	}

	first.Close()
	again, err := svc.Open(context.Background(), "buyer-1")
	if err != nil {
		t.Fatalf("open after release: %v", err)
	}
	again.Close()
}

func TestLineTotalAndSeller(t *testing.T) {
	t.Parallel()

	item := CartItem{ID: "a", Quantity: 3, Price: decimal.RequireFromString("2.50"), UserID: strPtr(" s1 ")}
	if !item.LineTotal().Equal(decimal.RequireFromString("7.5")) {
		t.Fatalf("unexpected line total %s", item.LineTotal())
	}
	if item.SellerID() != "s1" || item.IsShopItem() {
		t.Fatalf("expected marketplace item for seller s1")
	}
	if !(CartItem{ID: "prod-01", UserID: strPtr("")}).IsShopItem() {
		t.Fatal("blank seller id should count as a shop item")
	}
}

type failingRepo struct {
	loadErr error
	saveErr error
}

func (f *failingRepo) Load(context.Context, string) ([]CartItem, error) {
	return nil, f.loadErr
}

func (f *failingRepo) Save(context.Context, string, []CartItem) error {
	return f.saveErr
}
