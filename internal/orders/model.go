package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cropchain/cropchain-backend/pkg/docstore"
	"github.com/cropchain/cropchain-backend/pkg/enums"
)

const (
	usersCollection  = "users"
	ordersCollection = "orders"

	// AnonymousBuyer is stored when the buyer has no display name.
	AnonymousBuyer = "anonymous_buyer"
)

// Order is the seller-facing order document.
type Order struct {
	ID          string            `json:"id" firestore:"-"`
	UserID      string            `json:"userId" firestore:"userId"`
	BuyerID     string            `json:"buyerId" firestore:"buyerId"`
	BuyerName   string            `json:"buyerName" firestore:"buyerName"`
	OrderDate   time.Time         `json:"orderDate" firestore:"orderDate"`
	TotalAmount float64           `json:"totalAmount" firestore:"totalAmount"`
	Status      enums.OrderStatus `json:"status" firestore:"status"`
	Items       []Item            `json:"items" firestore:"items"`
}

// Item is the snapshot of a cart line taken at checkout.
type Item struct {
	ID       string  `json:"id" firestore:"id"`
	Name     string  `json:"name" firestore:"name"`
	Quantity int     `json:"quantity" firestore:"quantity"`
	Price    float64 `json:"price" firestore:"price"`
	Unit     *string `json:"unit" firestore:"unit"`
	IsSample bool    `json:"isSample" firestore:"isSample"`
	ImageID  *string `json:"imageId" firestore:"imageId"`
	ImageURL *string `json:"imageUrl" firestore:"imageUrl"`
}

// NewOrder carries what checkout knows about one seller's order.
type NewOrder struct {
	SellerID  string
	BuyerID   string
	BuyerName string
	Total     decimal.Decimal
	Items     []Item
}

// Collection returns users/{sellerID}/orders.
func Collection(sellerID string) (docstore.CollectionRef, error) {
	return docstore.Collection(usersCollection, sellerID, ordersCollection)
}

// BuyerNameOrAnonymous falls back to AnonymousBuyer for blank names.
func BuyerNameOrAnonymous(name string) string {
	if name == "" {
		return AnonymousBuyer
	}
	return name
}

// Fields renders the document written for a new order. orderDate is assigned
// by the store at commit.
func (o NewOrder) Fields() map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, map[string]any{
			"id":       item.ID,
			"name":     item.Name,
			"quantity": item.Quantity,
			"price":    item.Price,
			"unit":     optional(item.Unit),
			"isSample": item.IsSample,
			"imageId":  optional(item.ImageID),
			"imageUrl": optional(item.ImageURL),
		})
	}
	return map[string]any{
		"userId":      o.SellerID,
		"buyerId":     o.BuyerID,
		"buyerName":   BuyerNameOrAnonymous(o.BuyerName),
		"orderDate":   docstore.ServerTimestamp,
		"totalAmount": o.Total.InexactFloat64(),
		"status":      enums.OrderStatusProcessing.String(),
		"items":       items,
	}
}

func optional(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
