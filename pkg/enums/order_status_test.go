package enums

import "testing"

func TestOrderStatusFromPayment(t *testing.T) {
	cases := map[string]OrderStatus{
		"approved":     OrderStatusPaid,
		"pending":      OrderStatusPending,
		"in_process":   OrderStatusPending,
		"authorized":   OrderStatusPending,
		"rejected":     OrderStatusRejected,
		"cancelled":    OrderStatusCancelled,
		"refunded":     OrderStatusRefunded,
		"charged_back": OrderStatusRefunded,
		"weird":        OrderStatusPending,
	}
	for in, want := range cases {
		if got := OrderStatusFromPayment(in); got != want {
			t.Fatalf("payment status %q mapped to %q, want %q", in, got, want)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	if s, err := ParseOrderStatus("paid"); err != nil || s != OrderStatusPaid {
		t.Fatalf("expected paid, got %q err=%v", s, err)
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatalf("expected invalid status error")
	}
	if !OrderStatusRefunded.IsFinal() || OrderStatusPaid.IsFinal() {
		t.Fatalf("unexpected final flags")
	}
}
