package enums

import "fmt"

// PaymentStatus is the provider-side payment state reported by MercadoPago.
type PaymentStatus string

const (
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusInProcess PaymentStatus = "in_process"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusApproved,
	PaymentStatusPending,
	PaymentStatusInProcess,
	PaymentStatusRejected,
	PaymentStatusCancelled,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// OrderStatus maps the provider payment state onto the local order state.
func (p PaymentStatus) OrderStatus() (OrderStatus, error) {
	switch p {
	case PaymentStatusApproved:
		return OrderStatusPaid, nil
	case PaymentStatusPending, PaymentStatusInProcess:
		return OrderStatusPending, nil
	case PaymentStatusRejected, PaymentStatusCancelled:
		return OrderStatusCancelled, nil
	default:
		return "", fmt.Errorf("unmapped payment status %q", p)
	}
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
