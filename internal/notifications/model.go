package notifications

import (
	"time"

	"github.com/cropchain/cropchain-backend/pkg/docstore"
	"github.com/cropchain/cropchain-backend/pkg/enums"
)

const (
	usersCollection         = "users"
	notificationsCollection = "notifications"

	dashboardLink = "/dashboard"
)

// Notification is a message addressed to one user.
type Notification struct {
	ID             string         `json:"id" firestore:"-"`
	UserID         string         `json:"userId" firestore:"userId"`
	MessageKey     string         `json:"messageKey" firestore:"messageKey"`
	MessagePayload map[string]any `json:"messagePayload" firestore:"messagePayload"`
	Message        string         `json:"message,omitempty" firestore:"message,omitempty"`
	Link           string         `json:"link" firestore:"link"`
	Read           bool           `json:"read" firestore:"read"`
	CreatedAt      time.Time      `json:"createdAt" firestore:"createdAt"`
}

// OrderItem is the short item form embedded in new-order payloads.
type OrderItem struct {
	Name     string
	Quantity int
	IsSample bool
}

// Collection returns users/{userID}/notifications.
func Collection(userID string) (docstore.CollectionRef, error) {
	return docstore.Collection(usersCollection, userID, notificationsCollection)
}

// NewOrderFields renders the notification written next to a new order.
func NewOrderFields(sellerID, buyerName string, items []OrderItem) map[string]any {
	payloadItems := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payloadItems = append(payloadItems, map[string]any{
			"name":     item.Name,
			"quantity": item.Quantity,
			"isSample": item.IsSample,
		})
	}
	return map[string]any{
		"userId":     sellerID,
		"messageKey": string(enums.NotificationNewOrder),
		"messagePayload": map[string]any{
			"buyerName": buyerName,
			"items":     payloadItems,
		},
		"link":      dashboardLink,
		"read":      false,
		"createdAt": docstore.ServerTimestamp,
	}
}
