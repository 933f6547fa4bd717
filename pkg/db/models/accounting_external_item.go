package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountingExternalItem names something sold outside the catalog, such as a
// service or a one-off item.
type AccountingExternalItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description *string   `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *AccountingExternalItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
