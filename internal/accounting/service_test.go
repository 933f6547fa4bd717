package accounting

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiendamx/tienda-backend/internal/products"
	"github.com/tiendamx/tienda-backend/pkg/config"
	"github.com/tiendamx/tienda-backend/pkg/db/models"
	"github.com/tiendamx/tienda-backend/pkg/enums"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
	"github.com/tiendamx/tienda-backend/pkg/logger"
)

type fakeTx struct {
	rolledBack bool
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := fn(nil); err != nil {
		f.rolledBack = true
		return err
	}
	return nil
}

type fakeRepo struct {
	Repository
	sales         map[uuid.UUID]*models.AccountingSale
	expenses      []*models.AccountingExpense
	externalItems map[uuid.UUID]*models.AccountingExternalItem
	externalRefs  int64

	salesTotal      decimal.Decimal
	expensesTotal   decimal.Decimal
	todaySales      decimal.Decimal
	todayExpenses   decimal.Decimal
	outstanding     decimal.Decimal
	lastSalesRange  [2]*time.Time
	deletedExternal []uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sales:         map[uuid.UUID]*models.AccountingSale{},
		externalItems: map[uuid.UUID]*models.AccountingExternalItem{},
	}
}

func (f *fakeRepo) WithTx(_ *gorm.DB) Repository { return f }

func (f *fakeRepo) CreateSale(_ context.Context, sale *models.AccountingSale) error {
	sale.ID = uuid.New()
	f.sales[sale.ID] = sale
	return nil
}

func (f *fakeRepo) UpdateSale(_ context.Context, sale *models.AccountingSale) error {
	f.sales[sale.ID] = sale
	return nil
}

func (f *fakeRepo) DeleteSale(_ context.Context, id uuid.UUID) error {
	delete(f.sales, id)
	return nil
}

func (f *fakeRepo) GetSaleByID(_ context.Context, id uuid.UUID) (*models.AccountingSale, error) {
	sale, ok := f.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *sale
	return &clone, nil
}

func (f *fakeRepo) CreateExpense(_ context.Context, expense *models.AccountingExpense) error {
	expense.ID = uuid.New()
	f.expenses = append(f.expenses, expense)
	return nil
}

func (f *fakeRepo) GetExternalItemByID(_ context.Context, id uuid.UUID) (*models.AccountingExternalItem, error) {
	item, ok := f.externalItems[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (f *fakeRepo) CountSalesForExternalItem(_ context.Context, _ uuid.UUID) (int64, error) {
	return f.externalRefs, nil
}

func (f *fakeRepo) DeleteExternalItem(_ context.Context, id uuid.UUID) error {
	delete(f.externalItems, id)
	f.deletedExternal = append(f.deletedExternal, id)
	return nil
}

func (f *fakeRepo) SalesTotal(_ context.Context, from, to *time.Time) (decimal.Decimal, error) {
	if from == nil && to == nil {
		return f.salesTotal, nil
	}
	f.lastSalesRange = [2]*time.Time{from, to}
	return f.todaySales, nil
}

func (f *fakeRepo) ExpensesTotal(_ context.Context, from, to *time.Time) (decimal.Decimal, error) {
	if from == nil && to == nil {
		return f.expensesTotal, nil
	}
	return f.todayExpenses, nil
}

func (f *fakeRepo) OutstandingTotal(_ context.Context) (decimal.Decimal, error) {
	return f.outstanding, nil
}

type stockCall struct {
	id       uuid.UUID
	quantity int
}

type fakeProductRepo struct {
	products.Repository
	byID       map[uuid.UUID]*models.Product
	decrements []stockCall
}

func (f *fakeProductRepo) WithTx(_ *gorm.DB) products.Repository { return f }

func (f *fakeProductRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (f *fakeProductRepo) DecrementStock(_ context.Context, productID uuid.UUID, quantity int) error {
	f.decrements = append(f.decrements, stockCall{productID, quantity})
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type fixture struct {
	svc      Service
	repo     *fakeRepo
	products *fakeProductRepo
	tx       *fakeTx
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newFakeRepo(),
		products: &fakeProductRepo{byID: map[uuid.UUID]*models.Product{}},
		tx:       &fakeTx{},
		now:      time.Date(2025, 3, 15, 22, 30, 0, 0, time.UTC),
	}
	svc, err := NewService(f.tx, f.repo, f.products,
		config.AccountingConfig{Timezone: "America/Mexico_City"}, testLogger())
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	svc.(*service).now = func() time.Time { return f.now }
	f.svc = svc
	return f
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }

func decPtr(v decimal.Decimal) *decimal.Decimal { return &v }

func TestCreateSaleForProductDecrementsStock(t *testing.T) {
	f := newFixture(t)
	product := &models.Product{ID: uuid.New(), Name: "Playera"}
	f.products.byID[product.ID] = product

	sale, err := f.svc.CreateSale(context.Background(), SaleInput{
		ProductID: uuidPtr(product.ID),
		Quantity:  3,
		Amount:    decimal.NewFromInt(750),
	})
	if err != nil {
		t.Fatalf("CreateSale returned error: %v", err)
	}
	if sale.Status != enums.SaleStatusPagado {
		t.Errorf("status = %s, want pagado default", sale.Status)
	}
	if len(f.products.decrements) != 1 || f.products.decrements[0].quantity != 3 {
		t.Errorf("decrements = %+v", f.products.decrements)
	}
}

func TestCreateSaleRequiresExactlyOneReference(t *testing.T) {
	f := newFixture(t)
	productID := uuid.New()
	externalID := uuid.New()

	inputs := []SaleInput{
		{Quantity: 1, Amount: decimal.NewFromInt(100)},
		{ProductID: uuidPtr(productID), ExternalItemID: uuidPtr(externalID),
			Quantity: 1, Amount: decimal.NewFromInt(100)},
	}
	for _, input := range inputs {
		_, err := f.svc.CreateSale(context.Background(), input)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Errorf("input %+v: expected validation error, got %v", input, err)
		}
	}
}

func TestCreateSalePartialRequiresAmountPaid(t *testing.T) {
	f := newFixture(t)
	item := &models.AccountingExternalItem{ID: uuid.New(), Name: "Servicio"}
	f.repo.externalItems[item.ID] = item

	_, err := f.svc.CreateSale(context.Background(), SaleInput{
		ExternalItemID: uuidPtr(item.ID),
		Quantity:       1,
		Amount:         decimal.NewFromInt(500),
		Status:         "parcial",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	sale, err := f.svc.CreateSale(context.Background(), SaleInput{
		ExternalItemID: uuidPtr(item.ID),
		Quantity:       1,
		Amount:         decimal.NewFromInt(500),
		Status:         "parcial",
		AmountPaid:     decPtr(decimal.NewFromInt(200)),
	})
	if err != nil {
		t.Fatalf("CreateSale returned error: %v", err)
	}
	if !sale.Outstanding().Equal(decimal.NewFromInt(300)) {
		t.Errorf("outstanding = %s, want 300", sale.Outstanding())
	}
}

func TestCreateSaleRejectsOverpayment(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateSale(context.Background(), SaleInput{
		ExternalItemID: uuidPtr(uuid.New()),
		Quantity:       1,
		Amount:         decimal.NewFromInt(100),
		Status:         "pendiente",
		AmountPaid:     decPtr(decimal.NewFromInt(150)),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateSalePagadoDropsAmountPaid(t *testing.T) {
	f := newFixture(t)
	item := &models.AccountingExternalItem{ID: uuid.New(), Name: "Servicio"}
	f.repo.externalItems[item.ID] = item

	sale, err := f.svc.CreateSale(context.Background(), SaleInput{
		ExternalItemID: uuidPtr(item.ID),
		Quantity:       1,
		Amount:         decimal.NewFromInt(500),
		Status:         "pagado",
		AmountPaid:     decPtr(decimal.NewFromInt(200)),
	})
	if err != nil {
		t.Fatalf("CreateSale returned error: %v", err)
	}
	if sale.AmountPaid != nil {
		t.Error("fully paid sales must not carry amountPaid")
	}
}

func TestCreateSaleUnknownProductRollsBack(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateSale(context.Background(), SaleInput{
		ProductID: uuidPtr(uuid.New()),
		Quantity:  1,
		Amount:    decimal.NewFromInt(100),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !f.tx.rolledBack {
		t.Fatal("transaction must roll back")
	}
	if len(f.repo.sales) != 0 {
		t.Fatal("no sale may be recorded")
	}
}

func TestUpdateSaleNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateSale(context.Background(), uuid.New(), SaleInput{
		ExternalItemID: uuidPtr(uuid.New()),
		Quantity:       1,
		Amount:         decimal.NewFromInt(100),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateExpenseDefaultsDate(t *testing.T) {
	f := newFixture(t)

	expense, err := f.svc.CreateExpense(context.Background(), ExpenseInput{
		Description: "Envíos",
		Amount:      decimal.NewFromInt(320),
	})
	if err != nil {
		t.Fatalf("CreateExpense returned error: %v", err)
	}
	if !expense.Date.Equal(f.now) {
		t.Errorf("date = %s, want clock value", expense.Date)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateExpense(context.Background(), ExpenseInput{
		Description: "  ",
		Amount:      decimal.NewFromInt(10),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = f.svc.CreateExpense(context.Background(), ExpenseInput{
		Description: "Luz",
		Amount:      decimal.Zero,
	})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
}

func TestDeleteExternalItemGuardsReferences(t *testing.T) {
	f := newFixture(t)
	item := &models.AccountingExternalItem{ID: uuid.New(), Name: "Servicio"}
	f.repo.externalItems[item.ID] = item
	f.repo.externalRefs = 2

	err := f.svc.DeleteExternalItem(context.Background(), item.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	f.repo.externalRefs = 0
	if err := f.svc.DeleteExternalItem(context.Background(), item.ID); err != nil {
		t.Fatalf("DeleteExternalItem returned error: %v", err)
	}
	if len(f.repo.deletedExternal) != 1 {
		t.Fatal("item must be deleted once unreferenced")
	}
}

func TestSummaryMath(t *testing.T) {
	f := newFixture(t)
	f.repo.salesTotal = decimal.NewFromInt(10000)
	f.repo.expensesTotal = decimal.NewFromInt(4000)
	f.repo.todaySales = decimal.NewFromInt(1200)
	f.repo.todayExpenses = decimal.NewFromInt(200)
	f.repo.outstanding = decimal.NewFromInt(350)

	summary, err := f.svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if !summary.Balance.Equal(decimal.NewFromInt(6000)) {
		t.Errorf("balance = %s, want 6000", summary.Balance)
	}
	if !summary.TodayBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("today balance = %s, want 1000", summary.TodayBalance)
	}
	if !summary.Outstanding.Equal(decimal.NewFromInt(350)) {
		t.Errorf("outstanding = %s", summary.Outstanding)
	}
}

func TestSummaryDayBoundaryUsesBusinessTimezone(t *testing.T) {
	f := newFixture(t)
	// 2025-03-15T22:30Z is still 2025-03-15 in Mexico City (UTC-6).
	summary, err := f.svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	_ = summary

	from := f.repo.lastSalesRange[0]
	if from == nil {
		t.Fatal("same-day query must carry a range")
	}
	location, _ := time.LoadLocation("America/Mexico_City")
	want := time.Date(2025, 3, 15, 0, 0, 0, 0, location)
	if !from.Equal(want) {
		t.Errorf("day start = %s, want %s", from, want)
	}
}
