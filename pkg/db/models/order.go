package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiendamx/tienda-backend/pkg/enums"
)

// Order is created eagerly at checkout (status PENDING) and advanced by the
// payment webhook and admin actions.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     string            `gorm:"column:order_number;uniqueIndex;not null"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	PaymentMethod   *string           `gorm:"column:payment_method"`
	PaymentID       *string           `gorm:"column:payment_id"`
	PreferenceID    *string           `gorm:"column:preference_id"`
	ShippingAddress string            `gorm:"column:shipping_address;not null;default:''"`
	CustomerID      uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	Customer        *Customer         `gorm:"foreignKey:CustomerID"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
