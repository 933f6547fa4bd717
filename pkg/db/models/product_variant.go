package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductVariant is a color/size combination of a product. Variant stock is
// tracked independently of the parent: a pre-order product may still carry
// in-stock variants.
type ProductVariant struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID        `gorm:"column:product_id;type:uuid;not null"`
	Color     *string          `gorm:"column:color"`
	Size      *string          `gorm:"column:size"`
	SKU       *string          `gorm:"column:sku"`
	Price     *decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Stock     int              `gorm:"column:stock;not null;default:0"`
	ImageURL  *string          `gorm:"column:image_url"`
	IsActive  bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// EffectivePrice returns the variant price override, or the parent price.
func (v *ProductVariant) EffectivePrice(parent *Product) decimal.Decimal {
	if v.Price != nil {
		return *v.Price
	}
	if parent != nil {
		return parent.Price
	}
	return decimal.Zero
}
