package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CartItem is one line of a session cart. UserID holds the seller; shop items
// from the platform catalog have none.
type CartItem struct {
	ID       string          `json:"id" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Unit     *string         `json:"unit,omitempty"`
	UserID   *string         `json:"userId,omitempty"`
	IsSample bool            `json:"isSample"`
	ImageID  *string         `json:"imageId,omitempty"`
	ImageURL *string         `json:"imageUrl,omitempty"`
}

// SellerID returns the seller id, or "" for shop items.
func (i CartItem) SellerID() string {
	if i.UserID == nil {
		return ""
	}
	return strings.TrimSpace(*i.UserID)
}

// IsShopItem reports whether the line has no seller.
func (i CartItem) IsShopItem() bool {
	return i.SellerID() == ""
}

// LineTotal is price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Count sums quantities across items.
func Count(items []CartItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

func cloneItems(items []CartItem) []CartItem {
	if len(items) == 0 {
		return []CartItem{}
	}
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}
