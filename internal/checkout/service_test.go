package checkout

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiendamx/tienda-backend/internal/cart"
	"github.com/tiendamx/tienda-backend/internal/customers"
	"github.com/tiendamx/tienda-backend/internal/orders"
	"github.com/tiendamx/tienda-backend/internal/products"
	"github.com/tiendamx/tienda-backend/pkg/config"
	"github.com/tiendamx/tienda-backend/pkg/db/models"
	"github.com/tiendamx/tienda-backend/pkg/enums"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
	"github.com/tiendamx/tienda-backend/pkg/logger"
	"github.com/tiendamx/tienda-backend/pkg/mercadopago"
	"github.com/tiendamx/tienda-backend/pkg/pagination"
)

type fakeTx struct {
	began bool
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.began = true
	return fn(nil)
}

type fakeProductRepo struct {
	products.Repository
	byID map[uuid.UUID]*models.Product
}

func (f *fakeProductRepo) WithTx(tx *gorm.DB) products.Repository { return f }

func (f *fakeProductRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

type fakeCustomerRepo struct {
	saved *models.Customer
}

func (f *fakeCustomerRepo) WithTx(tx *gorm.DB) customers.Repository { return f }

func (f *fakeCustomerRepo) UpsertByEmail(_ context.Context, customer *models.Customer) error {
	customer.ID = uuid.New()
	f.saved = customer
	return nil
}

func (f *fakeCustomerRepo) GetByEmail(_ context.Context, email string) (*models.Customer, error) {
	return f.saved, nil
}

type fakeOrderRepo struct {
	orders.Repository
	created *models.Order
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) orders.Repository { return f }

func (f *fakeOrderRepo) Create(_ context.Context, order *models.Order) error {
	order.ID = uuid.New()
	f.created = order
	return nil
}

func (f *fakeOrderRepo) List(_ context.Context, _ orders.ListFilter, _ int, _ *pagination.Cursor) ([]models.Order, error) {
	return nil, nil
}

type fakeProvider struct {
	lastReq mercadopago.PreferenceRequest
	err     error
	onCall  func()
}

func (f *fakeProvider) CreatePreference(_ context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	f.lastReq = req
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &mercadopago.Preference{
		ID:                "pref-1",
		InitPoint:         "https://mp.example/redirect",
		ExternalReference: req.ExternalReference,
	}, nil
}

func (f *fakeProvider) CurrencyID() string { return "MXN" }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func intPtr(v int) *int { return &v }

func testMPConfig() config.MercadoPagoConfig {
	return config.MercadoPagoConfig{
		AccessToken:         "TEST-token",
		StatementDescriptor: "TIENDA VIRTUAL",
		CurrencyID:          "MXN",
	}
}

type fixture struct {
	svc      Service
	tx       *fakeTx
	products *fakeProductRepo
	orders   *fakeOrderRepo
	provider *fakeProvider
	customer *fakeCustomerRepo
}

func newFixture(t *testing.T, catalog ...*models.Product) *fixture {
	t.Helper()
	f := &fixture{
		tx:       &fakeTx{},
		products: &fakeProductRepo{byID: map[uuid.UUID]*models.Product{}},
		orders:   &fakeOrderRepo{},
		provider: &fakeProvider{},
		customer: &fakeCustomerRepo{},
	}
	for _, product := range catalog {
		f.products.byID[product.ID] = product
	}
	svc, err := NewService(f.tx, f.products, f.customer, f.orders, f.provider,
		testMPConfig(), "https://tienda.mx", testLogger())
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	f.svc = svc
	return f
}

func buyer() CustomerInput {
	return CustomerInput{
		Name:    "Ana López",
		Email:   "ana@example.com",
		Phone:   "5512345678",
		Address: "Av. Reforma 100, CDMX",
		ZipCode: "06600",
	}
}

func TestCheckoutHappyPath(t *testing.T) {
	product := &models.Product{
		ID:       uuid.New(),
		Name:     "Playera Básica",
		Price:    decimal.NewFromInt(250),
		Stock:    intPtr(10),
		IsActive: true,
	}
	f := newFixture(t, product)

	result, err := f.svc.Checkout(context.Background(), Input{
		Customer: buyer(),
		Lines:    []cart.Line{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}

	if !result.Total.Equal(decimal.NewFromInt(500)) {
		t.Errorf("total = %s, want 500", result.Total)
	}
	if result.InitPoint == "" || result.PreferenceID != "pref-1" {
		t.Errorf("result = %+v", result)
	}

	order := f.orders.created
	if order == nil {
		t.Fatal("order must be created")
	}
	if order.Status != enums.OrderStatusPending {
		t.Errorf("order status = %s, want PENDING", order.Status)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Errorf("order items = %+v", order.Items)
	}
	if !order.Items[0].Price.Equal(decimal.NewFromInt(250)) {
		t.Error("item price must snapshot the catalog price")
	}
	if order.PreferenceID == nil || *order.PreferenceID != "pref-1" {
		t.Errorf("order preference id = %v, want pref-1", order.PreferenceID)
	}

	req := f.provider.lastReq
	if req.ExternalReference != order.OrderNumber {
		t.Errorf("external reference = %q, want order number %q", req.ExternalReference, order.OrderNumber)
	}
	if req.NotificationURL != "https://tienda.mx/api/v1/webhooks/mercadopago" {
		t.Errorf("notification url = %q", req.NotificationURL)
	}
	if req.BackURLs.Success != "https://tienda.mx/checkout/success" {
		t.Errorf("success url = %q", req.BackURLs.Success)
	}
}

func TestCheckoutAggregatesStockErrors(t *testing.T) {
	first := &models.Product{
		ID: uuid.New(), Name: "Playera", Price: decimal.NewFromInt(250),
		Stock: intPtr(1), IsActive: true,
	}
	second := &models.Product{
		ID: uuid.New(), Name: "Gorra", Price: decimal.NewFromInt(150),
		Stock: intPtr(0), IsActive: true,
	}
	f := newFixture(t, first, second)

	_, err := f.svc.Checkout(context.Background(), Input{
		Customer: buyer(),
		Lines: []cart.Line{
			{ProductID: first.ID, Quantity: 5},
			{ProductID: second.ID, Quantity: 1},
		},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	details, ok := typed.Details().([]string)
	if !ok || len(details) != 2 {
		t.Fatalf("details = %v, want both offending lines", typed.Details())
	}
	if f.orders.created != nil {
		t.Fatal("no order may be created on stock failure")
	}
}

func TestCheckoutPreOrderSkipsStockCheck(t *testing.T) {
	product := &models.Product{
		ID: uuid.New(), Name: "Sudadera Personalizada",
		Price: decimal.NewFromInt(600), IsActive: true,
	}
	f := newFixture(t, product)

	result, err := f.svc.Checkout(context.Background(), Input{
		Customer: buyer(),
		Lines:    []cart.Line{{ProductID: product.ID, Quantity: 40}},
	})
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}
	if !result.Total.Equal(decimal.NewFromInt(24000)) {
		t.Errorf("total = %s", result.Total)
	}
}

func TestCheckoutProviderFailureCommitsNothing(t *testing.T) {
	product := &models.Product{
		ID: uuid.New(), Name: "Playera", Price: decimal.NewFromInt(250),
		Stock: intPtr(10), IsActive: true,
	}
	f := newFixture(t, product)
	f.provider.err = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("mp down"), "mercadopago create_preference failed")

	_, err := f.svc.Checkout(context.Background(), Input{
		Customer: buyer(),
		Lines:    []cart.Line{{ProductID: product.ID, Quantity: 1}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if f.tx.began {
		t.Fatal("no transaction may open when the provider fails")
	}
	if f.orders.created != nil || f.customer.saved != nil {
		t.Fatal("nothing may be persisted when the provider fails")
	}
}

func TestCheckoutProviderCalledBeforeTransaction(t *testing.T) {
	product := &models.Product{
		ID: uuid.New(), Name: "Playera", Price: decimal.NewFromInt(250),
		Stock: intPtr(10), IsActive: true,
	}
	f := newFixture(t, product)
	f.provider.onCall = func() {
		if f.tx.began {
			t.Error("provider call must precede the transaction")
		}
	}

	_, err := f.svc.Checkout(context.Background(), Input{
		Customer: buyer(),
		Lines:    []cart.Line{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}
	if !f.tx.began {
		t.Fatal("transaction must run after the provider call")
	}
}

func TestCheckoutValidatesCustomer(t *testing.T) {
	f := newFixture(t)

	cases := []CustomerInput{
		{Email: "a@b.mx", Address: "x"},
		{Name: "Ana", Address: "x"},
		{Name: "Ana", Email: "not-an-email", Address: "x"},
		{Name: "Ana", Email: "a@b.mx"},
	}
	for _, customer := range cases {
		_, err := f.svc.Checkout(context.Background(), Input{
			Customer: customer,
			Lines:    []cart.Line{{ProductID: uuid.New(), Quantity: 1}},
		})
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Errorf("customer %+v: expected validation error, got %v", customer, err)
		}
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Checkout(context.Background(), Input{Customer: buyer()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
