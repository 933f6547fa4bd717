package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiendamx/tienda-backend/pkg/enums"
)

// AccountingSale is a ledger entry for something sold, either a catalog
// product or an external item. Exactly one of ProductID/ExternalItemID is set;
// the guard lives in the accounting service.
type AccountingSale struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      *uuid.UUID              `gorm:"column:product_id;type:uuid"`
	Product        *Product                `gorm:"foreignKey:ProductID"`
	ExternalItemID *uuid.UUID              `gorm:"column:external_item_id;type:uuid"`
	ExternalItem   *AccountingExternalItem `gorm:"foreignKey:ExternalItemID"`
	Quantity       int                     `gorm:"column:quantity;not null"`
	Amount         decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Status         enums.SaleStatus        `gorm:"column:status;type:text;not null;default:'pagado'"`
	ClientName     *string                 `gorm:"column:client_name"`
	AmountPaid     *decimal.Decimal        `gorm:"column:amount_paid;type:numeric(12,2)"`
	PaymentDate    *time.Time              `gorm:"column:payment_date"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *AccountingSale) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Outstanding is the uncollected remainder for partial/pending sales.
func (s *AccountingSale) Outstanding() decimal.Decimal {
	if !s.Status.RequiresAmountPaid() {
		return decimal.Zero
	}
	paid := decimal.Zero
	if s.AmountPaid != nil {
		paid = *s.AmountPaid
	}
	remainder := s.Amount.Sub(paid)
	if remainder.IsNegative() {
		return decimal.Zero
	}
	return remainder
}
