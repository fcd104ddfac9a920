package cart

import (
	"github.com/shopspring/decimal"

	cartsvc "github.com/cropchain/cropchain-backend/internal/cart"
	"github.com/cropchain/cropchain-backend/internal/i18n"
)

// ItemResponse is a cart line with its localized display name.
type ItemResponse struct {
	cartsvc.CartItem
	DisplayName string          `json:"displayName"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Response is the cart as returned to the client.
type Response struct {
	Items []ItemResponse  `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func newResponse(catalog *i18n.Catalog, lang string, items []cartsvc.CartItem) Response {
	resp := Response{
		Items: make([]ItemResponse, 0, len(items)),
		Count: cartsvc.Count(items),
		Total: decimal.Zero,
	}
	for _, item := range items {
		name := item.Name
		if catalog != nil {
			name = catalog.ItemDisplayName(lang, item.ID, item.Name, item.IsSample)
		}
		line := item.LineTotal()
		resp.Items = append(resp.Items, ItemResponse{CartItem: item, DisplayName: name, LineTotal: line})
		resp.Total = resp.Total.Add(line)
	}
	return resp
}
