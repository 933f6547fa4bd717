package customers

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tiendamx/tienda-backend/pkg/db/models"
)

// Repository manages persistence for storefront customers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertByEmail(ctx context.Context, customer *models.Customer) error
	GetByEmail(ctx context.Context, email string) (*models.Customer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a customer repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// UpsertByEmail creates the customer or refreshes the contact fields of the
// existing row with the same email. Email is the dedupe key so repeat buyers
// keep a single customer record.
func (r *repository) UpsertByEmail(ctx context.Context, customer *models.Customer) error {
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "phone", "address", "zip_code", "updated_at",
			}),
		}).
		Create(customer).Error
	if err != nil {
		return err
	}

	// On conflict the insert id is discarded; reload the canonical row id.
	var existing models.Customer
	if err := r.db.WithContext(ctx).
		Select("id").
		First(&existing, "email = ?", customer.Email).Error; err != nil {
		return err
	}
	customer.ID = existing.ID
	return nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		First(&customer, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
