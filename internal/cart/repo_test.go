package cart

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type fakeCartStore struct {
	data map[string]string
	ttl  time.Duration
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{data: map[string]string{}}
}

func (f *fakeCartStore) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeCartStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	f.ttl = ttl
	return nil
}

func (f *fakeCartStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeCartStore) CartKey(sessionID string) string {
	return "cropchain:cart:" + sessionID
}

func TestRedisRepositoryRoundTrip(t *testing.T) {
	store := newFakeCartStore()
	repo, err := NewRedisRepository(store, time.Hour)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	ctx := context.Background()

	items, err := repo.Load(ctx, "buyer-1")
	if err != nil || len(items) != 0 {
		t.Fatalf("missing cart should load empty, got %+v %v", items, err)
	}

	seller := "s1"
	want := []CartItem{{ID: "l1", Name: "wheat", Quantity: 2, Price: decimal.RequireFromString("12.5"), UserID: &seller}}
	if err := repo.Save(ctx, "buyer-1", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.ttl != time.Hour {
		t.Fatalf("expected ttl to be forwarded, got %v", store.ttl)
	}

	got, err := repo.Load(ctx, "buyer-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].SellerID() != "s1" || !got[0].Price.Equal(want[0].Price) {
		t.Fatalf("unexpected round trip %+v", got)
	}

	if err := repo.Save(ctx, "buyer-1", nil); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	if _, ok := store.data["cropchain:cart:buyer-1"]; ok {
		t.Fatal("saving an empty cart should delete the key")
	}
}

func TestRedisRepositoryRejectsCorruptPayload(t *testing.T) {
	store := newFakeCartStore()
	store.data["cropchain:cart:buyer-1"] = "{not json"
	repo, _ := NewRedisRepository(store, 0)

	if _, err := repo.Load(context.Background(), "buyer-1"); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := NewRedisRepository(nil, 0); err == nil {
		t.Fatal("expected error for nil store")
	}
}
