package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("Processing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != OrderStatusProcessing || !status.IsActive() {
		t.Fatalf("expected active processing status, got %s", status)
	}
	if OrderStatusDelivered.IsActive() {
		t.Fatalf("delivered orders are not active")
	}
	if _, err := ParseOrderStatus("processing"); err == nil {
		t.Fatalf("expected case-sensitive parse to fail")
	}
}

func TestNotificationMessageKeys(t *testing.T) {
	if !NotificationNewOrder.IsValid() {
		t.Fatalf("expected new order key to be valid")
	}
	if NotificationMessageKey("notifications.unknown").IsValid() {
		t.Fatalf("unexpected valid key")
	}
	key, err := ParseNotificationMessageKey("dashboard.offerStatusUpdate")
	if err != nil || key != NotificationOfferStatusUpdated {
		t.Fatalf("unexpected parse result %q err=%v", key, err)
	}
}
