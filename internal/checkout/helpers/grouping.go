package helpers

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cropchain/cropchain-backend/internal/cart"
)

// SellerGroup is the slice of a cart belonging to one seller.
type SellerGroup struct {
	SellerID string
	Items    []cart.CartItem
}

// PartitionItems splits a cart into marketplace lines (with a seller) and shop
// lines, keeping the cart order within each side.
func PartitionItems(items []cart.CartItem) (marketplace, shop []cart.CartItem) {
	for _, item := range items {
		if item.IsShopItem() {
			shop = append(shop, item)
			continue
		}
		marketplace = append(marketplace, item)
	}
	return marketplace, shop
}

// GroupBySeller groups marketplace lines by seller. Groups follow the order in
// which each seller first appears in the cart.
func GroupBySeller(items []cart.CartItem) []SellerGroup {
	index := make(map[string]int)
	groups := make([]SellerGroup, 0)
	for _, item := range items {
		seller := item.SellerID()
		if seller == "" {
			continue
		}
		pos, ok := index[seller]
		if !ok {
			pos = len(groups)
			index[seller] = pos
			groups = append(groups, SellerGroup{SellerID: seller})
		}
		groups[pos].Items = append(groups[pos].Items, item)
	}
	return groups
}

// ComputeSellerTotal sums price times quantity across a seller's lines.
func ComputeSellerTotal(items []cart.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// DocumentID derives a stable document id for a buyer's checkout attempt,
// seller and document kind so a retried checkout overwrites its earlier
// writes. Checkout ids are only unique per buyer.
func DocumentID(buyerID, checkoutID, sellerID, kind string) string {
	id := uuid.NewSHA1(checkoutNamespace, []byte(buyerID+"\x00"+checkoutID+"\x00"+sellerID+"\x00"+kind))
	return strings.ReplaceAll(id.String(), "-", "")
}

var checkoutNamespace = uuid.MustParse("5b0c3f7e-6f1d-4c55-9a59-2f1f0f4b8a61")
