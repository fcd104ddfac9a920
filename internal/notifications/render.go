package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/cropchain/cropchain-backend/internal/i18n"
	"github.com/cropchain/cropchain-backend/pkg/enums"
)

const anonymousBuyer = "anonymous_buyer"

// Rendered is a notification with its message resolved for one language.
type Rendered struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Renderer localizes notification messages.
type Renderer struct {
	catalog *i18n.Catalog
}

func NewRenderer(catalog *i18n.Catalog) (*Renderer, error) {
	if catalog == nil {
		return nil, fmt.Errorf("i18n catalog required")
	}
	return &Renderer{catalog: catalog}, nil
}

// Render resolves the message for lang. Notifications without a key or
// payload, or with an unknown key, use their stored message; an unknown key
// with no stored message renders as the key.
func (r *Renderer) Render(lang string, n Notification) Rendered {
	return Rendered{
		ID:        n.ID,
		Message:   r.message(lang, n),
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func (r *Renderer) message(lang string, n Notification) string {
	if n.MessageKey == "" || n.MessagePayload == nil {
		return n.Message
	}
	payload := n.MessagePayload

	switch enums.NotificationMessageKey(n.MessageKey) {
	case enums.NotificationOfferStatusUpdated:
		return r.catalog.T(lang, n.MessageKey, map[string]any{
			"cropName":  r.catalog.CropDisplayName(lang, stringField(payload, "cropName")),
			"newStatus": r.catalog.T(lang, "myOffers.status."+stringField(payload, "status"), nil),
		})
	case enums.NotificationNewOrder:
		return r.catalog.T(lang, n.MessageKey, map[string]any{
			"buyerName":    r.buyerName(lang, payload),
			"itemsSummary": r.itemsSummary(lang, payload),
		})
	case enums.NotificationNewOfferReceived:
		return r.catalog.T(lang, n.MessageKey, map[string]any{
			"buyerName": r.buyerName(lang, payload),
			"cropName":  r.catalog.CropDisplayName(lang, stringField(payload, "cropName")),
		})
	default:
		if n.Message != "" {
			return n.Message
		}
		return r.catalog.T(lang, n.MessageKey, nil)
	}
}

func (r *Renderer) buyerName(lang string, payload map[string]any) string {
	name := stringField(payload, "buyerName")
	if name == "" || strings.EqualFold(name, anonymousBuyer) {
		return r.catalog.T(lang, "dashboard.anonymous_buyer", nil)
	}
	return name
}

func (r *Renderer) itemsSummary(lang string, payload map[string]any) string {
	raw, ok := payload["items"]
	if !ok || raw == nil {
		// older notifications carry a prebuilt summary
		return stringField(payload, "itemsSummary")
	}
	items, ok := raw.([]any)
	if !ok {
		return stringField(payload, "itemsSummary")
	}
	parts := make([]string, 0, len(items))
	for _, entry := range items {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name := r.catalog.CropDisplayName(lang, stringField(item, "name"))
		if sample, _ := item["isSample"].(bool); sample {
			name = r.catalog.SampleName(lang, name)
		}
		parts = append(parts, fmt.Sprintf("%s (x%v)", name, item["quantity"]))
	}
	return strings.Join(parts, ", ")
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
