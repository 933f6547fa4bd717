package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the canonical catalog listing. A nil Stock marks the product as
// made-to-order (pre-order); it is never decremented and never bounds cart
// quantities.
type Product struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name           string           `gorm:"column:name;not null"`
	Slug           string           `gorm:"column:slug;uniqueIndex;not null"`
	Description    string           `gorm:"column:description;not null;default:''"`
	Price          decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	CompareAtPrice *decimal.Decimal `gorm:"column:compare_at_price;type:numeric(12,2)"`
	Images         pq.StringArray   `gorm:"column:images;type:text[];not null;default:ARRAY[]::text[]"`
	Stock          *int             `gorm:"column:stock"`
	IsPreOrder     bool             `gorm:"column:is_pre_order;not null;default:false"`
	PreOrderDays   *string          `gorm:"column:pre_order_days"`
	CategoryID     uuid.UUID        `gorm:"column:category_id;type:uuid;not null"`
	Category       *Category        `gorm:"foreignKey:CategoryID"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	Variants       []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// EffectiveStock returns the sellable quantity ceiling, or nil when the
// product is made to order.
func (p *Product) EffectiveStock() *int {
	if p.Stock == nil {
		return nil
	}
	stock := *p.Stock
	return &stock
}
