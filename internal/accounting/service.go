package accounting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiendamx/tienda-backend/internal/products"
	"github.com/tiendamx/tienda-backend/pkg/config"
	"github.com/tiendamx/tienda-backend/pkg/db"
	"github.com/tiendamx/tienda-backend/pkg/db/models"
	"github.com/tiendamx/tienda-backend/pkg/enums"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
	"github.com/tiendamx/tienda-backend/pkg/logger"
)

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SaleInput is the payload for creating or editing a ledger sale. Exactly one
// of ProductID/ExternalItemID must be set.
type SaleInput struct {
	ProductID      *uuid.UUID       `json:"productId"`
	ExternalItemID *uuid.UUID       `json:"externalItemId"`
	Quantity       int              `json:"quantity" validate:"required,min=1"`
	Amount         decimal.Decimal  `json:"amount" validate:"required"`
	Status         string           `json:"status"`
	ClientName     *string          `json:"clientName"`
	AmountPaid     *decimal.Decimal `json:"amountPaid"`
	PaymentDate    *time.Time       `json:"paymentDate"`
}

// ExpenseInput is the payload for creating or editing an expense.
type ExpenseInput struct {
	Description string          `json:"description" validate:"required,max=300"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Date        *time.Time      `json:"date"`
}

// ExternalItemInput names an off-catalog sellable.
type ExternalItemInput struct {
	Name        string  `json:"name" validate:"required,min=2,max=120"`
	Description *string `json:"description"`
}

// Summary is the ledger aggregation the back office renders.
type Summary struct {
	Revenue       decimal.Decimal `json:"revenue"`
	Expenses      decimal.Decimal `json:"expenses"`
	Balance       decimal.Decimal `json:"balance"`
	TodayRevenue  decimal.Decimal `json:"todayRevenue"`
	TodayExpenses decimal.Decimal `json:"todayExpenses"`
	TodayBalance  decimal.Decimal `json:"todayBalance"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// Service defines the accounting back-office operations.
type Service interface {
	ListSales(ctx context.Context) ([]models.AccountingSale, error)
	CreateSale(ctx context.Context, input SaleInput) (*models.AccountingSale, error)
	UpdateSale(ctx context.Context, id uuid.UUID, input SaleInput) (*models.AccountingSale, error)
	DeleteSale(ctx context.Context, id uuid.UUID) error

	ListExpenses(ctx context.Context) ([]models.AccountingExpense, error)
	CreateExpense(ctx context.Context, input ExpenseInput) (*models.AccountingExpense, error)
	UpdateExpense(ctx context.Context, id uuid.UUID, input ExpenseInput) (*models.AccountingExpense, error)
	DeleteExpense(ctx context.Context, id uuid.UUID) error

	ListExternalItems(ctx context.Context) ([]models.AccountingExternalItem, error)
	CreateExternalItem(ctx context.Context, input ExternalItemInput) (*models.AccountingExternalItem, error)
	DeleteExternalItem(ctx context.Context, id uuid.UUID) error

	Summary(ctx context.Context) (*Summary, error)
}

type service struct {
	tx       TxRunner
	repo     Repository
	products products.Repository
	cfg      config.AccountingConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the accounting service.
func NewService(
	tx TxRunner,
	repo Repository,
	productRepo products.Repository,
	cfg config.AccountingConfig,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("accounting repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       tx,
		repo:     repo,
		products: productRepo,
		cfg:      cfg,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) ListSales(ctx context.Context) ([]models.AccountingSale, error) {
	return s.repo.ListSales(ctx)
}

// CreateSale records a ledger sale. Catalog-product sales decrement stock in
// the same transaction; products with NULL stock are left untouched.
func (s *service) CreateSale(ctx context.Context, input SaleInput) (*models.AccountingSale, error) {
	status, err := s.validateSale(&input)
	if err != nil {
		return nil, err
	}

	sale := &models.AccountingSale{
		ProductID:      input.ProductID,
		ExternalItemID: input.ExternalItemID,
		Quantity:       input.Quantity,
		Amount:         input.Amount,
		Status:         status,
		ClientName:     trimmedPtr(input.ClientName),
		AmountPaid:     input.AmountPaid,
		PaymentDate:    input.PaymentDate,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productRepo := s.products.WithTx(tx)

		if input.ProductID != nil {
			if _, err := productRepo.GetByID(ctx, *input.ProductID); err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.New(pkgerrors.CodeValidation, "sale references an unknown product")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
			}
			if err := productRepo.DecrementStock(ctx, *input.ProductID, input.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "decrementing product stock")
			}
		}
		if input.ExternalItemID != nil {
			if _, err := repo.GetExternalItemByID(ctx, *input.ExternalItemID); err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.New(pkgerrors.CodeValidation, "sale references an unknown external item")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading external item")
			}
		}

		if err := repo.CreateSale(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating sale")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "sale_id", sale.ID.String()), "ledger sale recorded")
	return sale, nil
}

// UpdateSale edits amounts and collection status. It never re-decrements
// stock; inventory moved when the sale was first recorded.
func (s *service) UpdateSale(ctx context.Context, id uuid.UUID, input SaleInput) (*models.AccountingSale, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	status, err := s.validateSale(&input)
	if err != nil {
		return nil, err
	}

	sale, err := s.repo.GetSaleByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading sale")
	}

	sale.ProductID = input.ProductID
	sale.ExternalItemID = input.ExternalItemID
	sale.Quantity = input.Quantity
	sale.Amount = input.Amount
	sale.Status = status
	sale.ClientName = trimmedPtr(input.ClientName)
	sale.AmountPaid = input.AmountPaid
	sale.PaymentDate = input.PaymentDate
	sale.Product = nil
	sale.ExternalItem = nil

	if err := s.repo.UpdateSale(ctx, sale); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating sale")
	}
	return sale, nil
}

func (s *service) DeleteSale(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	if _, err := s.repo.GetSaleByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading sale")
	}
	if err := s.repo.DeleteSale(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting sale")
	}
	return nil
}

func (s *service) ListExpenses(ctx context.Context) ([]models.AccountingExpense, error) {
	return s.repo.ListExpenses(ctx)
}

func (s *service) CreateExpense(ctx context.Context, input ExpenseInput) (*models.AccountingExpense, error) {
	if err := validateExpense(input); err != nil {
		return nil, err
	}
	date := s.now()
	if input.Date != nil {
		date = *input.Date
	}
	expense := &models.AccountingExpense{
		Description: strings.TrimSpace(input.Description),
		Amount:      input.Amount,
		Date:        date,
	}
	if err := s.repo.CreateExpense(ctx, expense); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating expense")
	}
	return expense, nil
}

func (s *service) UpdateExpense(ctx context.Context, id uuid.UUID, input ExpenseInput) (*models.AccountingExpense, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense id is required")
	}
	if err := validateExpense(input); err != nil {
		return nil, err
	}

	expense, err := s.repo.GetExpenseByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "expense not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading expense")
	}

	expense.Description = strings.TrimSpace(input.Description)
	expense.Amount = input.Amount
	if input.Date != nil {
		expense.Date = *input.Date
	}
	if err := s.repo.UpdateExpense(ctx, expense); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating expense")
	}
	return expense, nil
}

func (s *service) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "expense id is required")
	}
	if _, err := s.repo.GetExpenseByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "expense not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading expense")
	}
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting expense")
	}
	return nil
}

func (s *service) ListExternalItems(ctx context.Context) ([]models.AccountingExternalItem, error) {
	return s.repo.ListExternalItems(ctx)
}

func (s *service) CreateExternalItem(ctx context.Context, input ExternalItemInput) (*models.AccountingExternalItem, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external item name is required")
	}
	item := &models.AccountingExternalItem{
		Name:        name,
		Description: trimmedPtr(input.Description),
	}
	if err := s.repo.CreateExternalItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating external item")
	}
	return item, nil
}

// DeleteExternalItem refuses to remove an item still referenced by sales.
func (s *service) DeleteExternalItem(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "external item id is required")
	}
	if _, err := s.repo.GetExternalItemByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "external item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading external item")
	}

	count, err := s.repo.CountSalesForExternalItem(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting item sales")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("external item still has %d sales", count))
	}

	if err := s.repo.DeleteExternalItem(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting external item")
	}
	return nil
}

// Summary aggregates the ledger. Same-day figures use the configured business
// timezone so the day boundary matches the shop, not the server.
func (s *service) Summary(ctx context.Context) (*Summary, error) {
	location, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading accounting timezone")
	}
	now := s.now().In(location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	revenue, err := s.repo.SalesTotal(ctx, nil, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing sales")
	}
	expenses, err := s.repo.ExpensesTotal(ctx, nil, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing expenses")
	}
	todayRevenue, err := s.repo.SalesTotal(ctx, &dayStart, &dayEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing same-day sales")
	}
	todayExpenses, err := s.repo.ExpensesTotal(ctx, &dayStart, &dayEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing same-day expenses")
	}
	outstanding, err := s.repo.OutstandingTotal(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing outstanding sales")
	}

	return &Summary{
		Revenue:       revenue,
		Expenses:      expenses,
		Balance:       revenue.Sub(expenses),
		TodayRevenue:  todayRevenue,
		TodayExpenses: todayExpenses,
		TodayBalance:  todayRevenue.Sub(todayExpenses),
		Outstanding:   outstanding,
	}, nil
}

// validateSale normalizes the status and checks the exactly-one-of reference
// and partial-payment rules.
func (s *service) validateSale(input *SaleInput) (enums.SaleStatus, error) {
	hasProduct := input.ProductID != nil && *input.ProductID != uuid.Nil
	hasExternal := input.ExternalItemID != nil && *input.ExternalItemID != uuid.Nil
	if hasProduct == hasExternal {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "sale must reference exactly one of product or external item")
	}
	if !hasProduct {
		input.ProductID = nil
	}
	if !hasExternal {
		input.ExternalItemID = nil
	}

	if input.Quantity <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "sale quantity must be positive")
	}
	if !input.Amount.IsPositive() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "sale amount must be positive")
	}

	status := enums.SaleStatusPagado
	if raw := strings.TrimSpace(input.Status); raw != "" {
		parsed, err := enums.ParseSaleStatus(raw)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sale status")
		}
		status = parsed
	}

	if status.RequiresAmountPaid() {
		if input.AmountPaid == nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("status %q requires amountPaid", status))
		}
		if input.AmountPaid.IsNegative() {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "amountPaid must not be negative")
		}
		if input.AmountPaid.GreaterThan(input.Amount) {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "amountPaid cannot exceed the sale amount")
		}
	} else {
		input.AmountPaid = nil
	}
	return status, nil
}

func validateExpense(input ExpenseInput) error {
	if strings.TrimSpace(input.Description) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "expense description is required")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "expense amount must be positive")
	}
	return nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
