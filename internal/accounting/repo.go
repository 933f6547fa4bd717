package accounting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiendamx/tienda-backend/pkg/db/models"
	"github.com/tiendamx/tienda-backend/pkg/enums"
)

// Repository manages persistence for the accounting ledger: sales, expenses
// and external items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateSale(ctx context.Context, sale *models.AccountingSale) error
	UpdateSale(ctx context.Context, sale *models.AccountingSale) error
	DeleteSale(ctx context.Context, id uuid.UUID) error
	GetSaleByID(ctx context.Context, id uuid.UUID) (*models.AccountingSale, error)
	ListSales(ctx context.Context) ([]models.AccountingSale, error)

	CreateExpense(ctx context.Context, expense *models.AccountingExpense) error
	UpdateExpense(ctx context.Context, expense *models.AccountingExpense) error
	DeleteExpense(ctx context.Context, id uuid.UUID) error
	GetExpenseByID(ctx context.Context, id uuid.UUID) (*models.AccountingExpense, error)
	ListExpenses(ctx context.Context) ([]models.AccountingExpense, error)

	CreateExternalItem(ctx context.Context, item *models.AccountingExternalItem) error
	DeleteExternalItem(ctx context.Context, id uuid.UUID) error
	GetExternalItemByID(ctx context.Context, id uuid.UUID) (*models.AccountingExternalItem, error)
	ListExternalItems(ctx context.Context) ([]models.AccountingExternalItem, error)
	CountSalesForExternalItem(ctx context.Context, id uuid.UUID) (int64, error)

	SalesTotal(ctx context.Context, from, to *time.Time) (decimal.Decimal, error)
	ExpensesTotal(ctx context.Context, from, to *time.Time) (decimal.Decimal, error)
	OutstandingTotal(ctx context.Context) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an accounting repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSale(ctx context.Context, sale *models.AccountingSale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) UpdateSale(ctx context.Context, sale *models.AccountingSale) error {
	return r.db.WithContext(ctx).Save(sale).Error
}

func (r *repository) DeleteSale(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.AccountingSale{}, "id = ?", id).Error
}

func (r *repository) GetSaleByID(ctx context.Context, id uuid.UUID) (*models.AccountingSale, error) {
	var sale models.AccountingSale
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("ExternalItem").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) ListSales(ctx context.Context) ([]models.AccountingSale, error) {
	var sales []models.AccountingSale
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("ExternalItem").
		Order("created_at DESC").
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *repository) CreateExpense(ctx context.Context, expense *models.AccountingExpense) error {
	return r.db.WithContext(ctx).Create(expense).Error
}

func (r *repository) UpdateExpense(ctx context.Context, expense *models.AccountingExpense) error {
	return r.db.WithContext(ctx).Save(expense).Error
}

func (r *repository) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.AccountingExpense{}, "id = ?", id).Error
}

func (r *repository) GetExpenseByID(ctx context.Context, id uuid.UUID) (*models.AccountingExpense, error) {
	var expense models.AccountingExpense
	if err := r.db.WithContext(ctx).First(&expense, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *repository) ListExpenses(ctx context.Context) ([]models.AccountingExpense, error) {
	var expenses []models.AccountingExpense
	err := r.db.WithContext(ctx).Order("date DESC").Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *repository) CreateExternalItem(ctx context.Context, item *models.AccountingExternalItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) DeleteExternalItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.AccountingExternalItem{}, "id = ?", id).Error
}

func (r *repository) GetExternalItemByID(ctx context.Context, id uuid.UUID) (*models.AccountingExternalItem, error) {
	var item models.AccountingExternalItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListExternalItems(ctx context.Context) ([]models.AccountingExternalItem, error) {
	var items []models.AccountingExternalItem
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CountSalesForExternalItem(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AccountingSale{}).
		Where("external_item_id = ?", id).
		Count(&count).Error
	return count, err
}

type sumRow struct {
	Total decimal.Decimal `gorm:"column:total"`
}

func (r *repository) SalesTotal(ctx context.Context, from, to *time.Time) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AccountingSale{}).
		Select("COALESCE(SUM(amount), 0) AS total")
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at < ?", *to)
	}
	var row sumRow
	if err := query.Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

func (r *repository) ExpensesTotal(ctx context.Context, from, to *time.Time) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AccountingExpense{}).
		Select("COALESCE(SUM(amount), 0) AS total")
	if from != nil {
		query = query.Where("date >= ?", *from)
	}
	if to != nil {
		query = query.Where("date < ?", *to)
	}
	var row sumRow
	if err := query.Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// OutstandingTotal sums the uncollected remainder over partial and pending
// sales.
func (r *repository) OutstandingTotal(ctx context.Context) (decimal.Decimal, error) {
	var row sumRow
	err := r.db.WithContext(ctx).
		Model(&models.AccountingSale{}).
		Select("COALESCE(SUM(amount - COALESCE(amount_paid, 0)), 0) AS total").
		Where("status IN ?", []enums.SaleStatus{enums.SaleStatusParcial, enums.SaleStatusPendiente}).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
