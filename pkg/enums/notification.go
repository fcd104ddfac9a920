package enums

import "fmt"

// NotificationMessageKey names the localized template a notification renders with.
type NotificationMessageKey string

const (
	NotificationNewOrder           NotificationMessageKey = "notifications.newOrder"
	NotificationNewOfferReceived   NotificationMessageKey = "notifications.newOfferReceived"
	NotificationOfferStatusUpdated NotificationMessageKey = "dashboard.offerStatusUpdate"
)

var validNotificationMessageKeys = []NotificationMessageKey{
	NotificationNewOrder,
	NotificationNewOfferReceived,
	NotificationOfferStatusUpdated,
}

// IsValid checks whether the key matches a known template.
func (k NotificationMessageKey) IsValid() bool {
	for _, candidate := range validNotificationMessageKeys {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseNotificationMessageKey converts raw strings into NotificationMessageKey.
func ParseNotificationMessageKey(value string) (NotificationMessageKey, error) {
	for _, candidate := range validNotificationMessageKeys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification message key %q", value)
}
