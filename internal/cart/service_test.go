package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiendamx/tienda-backend/internal/products"
	"github.com/tiendamx/tienda-backend/pkg/db/models"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
)

type fakeProductRepo struct {
	products.Repository
	byID map[uuid.UUID]*models.Product
}

func (f *fakeProductRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func decPtr(v decimal.Decimal) *decimal.Decimal { return &v }

func stockedProduct(stock int) *models.Product {
	return &models.Product{
		ID:       uuid.New(),
		Name:     "Playera Básica",
		Price:    decimal.NewFromInt(250),
		Stock:    intPtr(stock),
		IsActive: true,
	}
}

func newService(t *testing.T, catalog ...*models.Product) Service {
	t.Helper()
	repo := &fakeProductRepo{byID: map[uuid.UUID]*models.Product{}}
	for _, product := range catalog {
		repo.byID[product.ID] = product
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func TestCartAddMergesLines(t *testing.T) {
	productID := uuid.New()
	var c Cart
	c.Add(Line{ProductID: productID, Quantity: 1})
	c.Add(Line{ProductID: productID, Quantity: 2})

	if len(c.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(c.Lines))
	}
	if c.Lines[0].Quantity != 3 {
		t.Errorf("quantity = %d, want 3", c.Lines[0].Quantity)
	}
}

func TestCartVariantLinesStaySeparate(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	var c Cart
	c.Add(Line{ProductID: productID, Quantity: 1})
	c.Add(Line{ProductID: productID, VariantID: &variantID, Quantity: 1})

	if len(c.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(c.Lines))
	}
}

func TestCartUpdateQuantityClampsToOne(t *testing.T) {
	productID := uuid.New()
	var c Cart
	c.Add(Line{ProductID: productID, Quantity: 3})
	c.UpdateQuantity(Line{ProductID: productID}, 0)

	if len(c.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(c.Lines))
	}
	if c.Lines[0].Quantity != 1 {
		t.Errorf("quantity = %d, want clamp to 1", c.Lines[0].Quantity)
	}
}

func TestCartRemoveDropsLine(t *testing.T) {
	productID := uuid.New()
	var c Cart
	c.Add(Line{ProductID: productID, Quantity: 2})
	c.Remove(Line{ProductID: productID})

	if len(c.Lines) != 0 {
		t.Fatalf("lines = %d, want 0", len(c.Lines))
	}
}

func TestQuoteCartTotals(t *testing.T) {
	product := stockedProduct(10)
	svc := newService(t, product)

	quote, err := svc.QuoteCart(context.Background(), Cart{Lines: []Line{
		{ProductID: product.ID, Quantity: 3},
	}})
	if err != nil {
		t.Fatalf("QuoteCart returned error: %v", err)
	}
	if !quote.Total.Equal(decimal.NewFromInt(750)) {
		t.Errorf("total = %s, want 750", quote.Total)
	}
	if quote.Lines[0].Clamped {
		t.Error("in-stock quantity must not clamp")
	}
}

func TestQuoteCartClampsToStock(t *testing.T) {
	product := stockedProduct(2)
	svc := newService(t, product)

	quote, err := svc.QuoteCart(context.Background(), Cart{Lines: []Line{
		{ProductID: product.ID, Quantity: 9},
	}})
	if err != nil {
		t.Fatalf("QuoteCart returned error: %v", err)
	}
	if quote.Lines[0].Quantity != 2 {
		t.Errorf("quantity = %d, want clamp to 2", quote.Lines[0].Quantity)
	}
	if !quote.Lines[0].Clamped {
		t.Error("clamped flag must be set")
	}
	if !quote.Total.Equal(decimal.NewFromInt(500)) {
		t.Errorf("total = %s, want 500", quote.Total)
	}
}

func TestQuoteCartClampsZeroQuantityToOne(t *testing.T) {
	product := stockedProduct(5)
	svc := newService(t, product)

	quote, err := svc.QuoteCart(context.Background(), Cart{Lines: []Line{
		{ProductID: product.ID, Quantity: 0},
	}})
	if err != nil {
		t.Fatalf("QuoteCart returned error: %v", err)
	}
	if quote.Lines[0].Quantity != 1 {
		t.Errorf("quantity = %d, want clamp to 1", quote.Lines[0].Quantity)
	}
	if !quote.Lines[0].Clamped {
		t.Error("clamped flag must be set")
	}
	if !quote.Total.Equal(decimal.NewFromInt(250)) {
		t.Errorf("total = %s, want 250", quote.Total)
	}
}

func TestQuoteCartPreOrderUnbounded(t *testing.T) {
	product := &models.Product{
		ID:       uuid.New(),
		Name:     "Sudadera Personalizada",
		Price:    decimal.NewFromInt(600),
		IsActive: true,
	}
	svc := newService(t, product)

	quote, err := svc.QuoteCart(context.Background(), Cart{Lines: []Line{
		{ProductID: product.ID, Quantity: 50},
	}})
	if err != nil {
		t.Fatalf("QuoteCart returned error: %v", err)
	}
	if quote.Lines[0].Quantity != 50 {
		t.Errorf("quantity = %d, pre-order must not clamp", quote.Lines[0].Quantity)
	}
	if !quote.Lines[0].IsPreOrder {
		t.Error("pre-order flag must be set")
	}
}

func TestQuoteCartVariantPricing(t *testing.T) {
	variantID := uuid.New()
	product := stockedProduct(10)
	product.Variants = []models.ProductVariant{{
		ID:       variantID,
		Color:    strPtr("Negro"),
		Size:     strPtr("M"),
		Price:    decPtr(decimal.NewFromInt(300)),
		Stock:    4,
		IsActive: true,
	}}
	svc := newService(t, product)

	quote, err := svc.QuoteCart(context.Background(), Cart{Lines: []Line{
		{ProductID: product.ID, VariantID: &variantID, Quantity: 2},
	}})
	if err != nil {
		t.Fatalf("QuoteCart returned error: %v", err)
	}
	line := quote.Lines[0]
	if !line.UnitPrice.Equal(decimal.NewFromInt(300)) {
		t.Errorf("unit price = %s, want variant override 300", line.UnitPrice)
	}
	if line.VariantName != "Negro / M" {
		t.Errorf("variant name = %q", line.VariantName)
	}
}

func TestQuoteCartOutOfStock(t *testing.T) {
	product := stockedProduct(0)
	svc := newService(t, product)

	_, err := svc.QuoteCart(context.Background(), Cart{Lines: []Line{
		{ProductID: product.ID, Quantity: 1},
	}})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuoteCartInactiveProduct(t *testing.T) {
	product := stockedProduct(5)
	product.IsActive = false
	svc := newService(t, product)

	_, err := svc.QuoteCart(context.Background(), Cart{Lines: []Line{
		{ProductID: product.ID, Quantity: 1},
	}})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuoteCartEmpty(t *testing.T) {
	svc := newService(t)
	quote, err := svc.QuoteCart(context.Background(), Cart{})
	if err != nil {
		t.Fatalf("QuoteCart returned error: %v", err)
	}
	if !quote.Total.IsZero() {
		t.Errorf("total = %s, want 0", quote.Total)
	}
}
