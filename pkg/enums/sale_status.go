package enums

import "fmt"

// SaleStatus reflects how much of an accounting sale has been collected.
// Values stay in Spanish to match the back-office vocabulary.
type SaleStatus string

const (
	SaleStatusPagado    SaleStatus = "pagado"
	SaleStatusParcial   SaleStatus = "parcial"
	SaleStatusPendiente SaleStatus = "pendiente"
)

var validSaleStatuses = []SaleStatus{
	SaleStatusPagado,
	SaleStatusParcial,
	SaleStatusPendiente,
}

// String implements fmt.Stringer.
func (s SaleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleStatus.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// RequiresAmountPaid reports whether the status carries a partial collection.
func (s SaleStatus) RequiresAmountPaid() bool {
	return s == SaleStatusParcial || s == SaleStatusPendiente
}

// ParseSaleStatus converts raw input into a SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}
