package enums

import "fmt"

// OrderStatus tracks an order from checkout start to payment outcome.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusRejected,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsFinal reports whether no later payment notification may change the status.
func (o OrderStatus) IsFinal() bool {
	return o == OrderStatusRefunded
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// OrderStatusFromPayment maps a gateway payment status onto an order status.
// Unknown statuses keep the order pending.
func OrderStatusFromPayment(paymentStatus string) OrderStatus {
	switch paymentStatus {
	case "approved":
		return OrderStatusPaid
	case "rejected":
		return OrderStatusRejected
	case "cancelled":
		return OrderStatusCancelled
	case "refunded", "charged_back":
		return OrderStatusRefunded
	default:
		return OrderStatusPending
	}
}

// OrderStatuses lists every known status.
func OrderStatuses() []OrderStatus {
	return append([]OrderStatus(nil), validOrderStatuses...)
}
