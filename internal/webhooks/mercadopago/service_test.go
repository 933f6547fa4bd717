package mercadopagowebhook

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tiendamx/tienda-backend/internal/orders"
	"github.com/tiendamx/tienda-backend/internal/products"
	"github.com/tiendamx/tienda-backend/pkg/db/models"
	"github.com/tiendamx/tienda-backend/pkg/enums"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
	"github.com/tiendamx/tienda-backend/pkg/logger"
	"github.com/tiendamx/tienda-backend/pkg/mercadopago"
)

type fakeStore struct {
	keys    map[string]bool
	deleted []string
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]bool{}}
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "tienda:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

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

type fakeProvider struct {
	payment *mercadopago.Payment
	err     error
	calls   int
}

func (f *fakeProvider) GetPayment(_ context.Context, _ string) (*mercadopago.Payment, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.payment, nil
}

type fakeOrderRepo struct {
	orders.Repository
	byNumber      map[string]*models.Order
	statusUpdates []enums.OrderStatus
	paymentID     string
	paymentMethod string
}

func (f *fakeOrderRepo) WithTx(_ *gorm.DB) orders.Repository { return f }

func (f *fakeOrderRepo) GetByOrderNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	order, ok := f.byNumber[orderNumber]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enums.OrderStatus) error {
	for _, order := range f.byNumber {
		if order.ID == id {
			order.Status = status
		}
	}
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

func (f *fakeOrderRepo) SetPayment(_ context.Context, _ uuid.UUID, paymentID, paymentMethod string) error {
	f.paymentID = paymentID
	f.paymentMethod = paymentMethod
	return nil
}

type stockCall struct {
	id       uuid.UUID
	quantity int
}

type fakeProductRepo struct {
	products.Repository
	productDecrements []stockCall
	variantDecrements []stockCall
	stockErr          error
}

func (f *fakeProductRepo) WithTx(_ *gorm.DB) products.Repository { return f }

func (f *fakeProductRepo) DecrementStock(_ context.Context, productID uuid.UUID, quantity int) error {
	if f.stockErr != nil {
		return f.stockErr
	}
	f.productDecrements = append(f.productDecrements, stockCall{productID, quantity})
	return nil
}

func (f *fakeProductRepo) DecrementVariantStock(_ context.Context, variantID uuid.UUID, quantity int) error {
	f.variantDecrements = append(f.variantDecrements, stockCall{variantID, quantity})
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type fixture struct {
	svc      *Service
	store    *fakeStore
	tx       *fakeTx
	provider *fakeProvider
	orders   *fakeOrderRepo
	products *fakeProductRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newFakeStore(),
		tx:       &fakeTx{},
		provider: &fakeProvider{},
		orders:   &fakeOrderRepo{byNumber: map[string]*models.Order{}},
		products: &fakeProductRepo{},
	}
	guard, err := NewIdempotencyGuard(f.store, time.Hour, "mercadopago")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard returned error: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Guard:             guard,
		Provider:          f.provider,
		OrderRepo:         f.orders,
		ProductRepo:       f.products,
		TransactionRunner: f.tx,
		Logger:            testLogger(),
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	f.svc = svc
	return f
}

func seedOrder(f *fixture, status enums.OrderStatus, items ...models.OrderItem) *models.Order {
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "TV-20250301-ABC123",
		Status:      status,
		Items:       items,
	}
	f.orders.byNumber[order.OrderNumber] = order
	return order
}

func paymentNotification(id string) Notification {
	var n Notification
	n.Type = "payment"
	n.Data.ID = id
	return n
}

func TestApprovedPaymentMarksOrderPaidAndDecrementsStock(t *testing.T) {
	f := newFixture(t)
	productID := uuid.New()
	variantID := uuid.New()
	order := seedOrder(f, enums.OrderStatusPending,
		models.OrderItem{ProductID: productID, Quantity: 2},
		models.OrderItem{ProductID: productID, VariantID: &variantID, Quantity: 1},
	)
	f.provider.payment = &mercadopago.Payment{
		ID:                987654,
		Status:            "approved",
		ExternalReference: order.OrderNumber,
		PaymentMethodID:   "visa",
	}

	outcome, err := f.svc.HandleNotification(context.Background(), paymentNotification("987654"))
	if err != nil {
		t.Fatalf("HandleNotification returned error: %v", err)
	}
	if outcome != OutcomeProcessed {
		t.Errorf("outcome = %s", outcome)
	}
	if got := f.orders.byNumber[order.OrderNumber].Status; got != enums.OrderStatusPaid {
		t.Errorf("order status = %s, want PAID", got)
	}
	if f.orders.paymentID != "987654" || f.orders.paymentMethod != "visa" {
		t.Errorf("payment reference = %q/%q", f.orders.paymentID, f.orders.paymentMethod)
	}
	if len(f.products.productDecrements) != 1 || f.products.productDecrements[0].quantity != 2 {
		t.Errorf("product decrements = %+v", f.products.productDecrements)
	}
	if len(f.products.variantDecrements) != 1 || f.products.variantDecrements[0].id != variantID {
		t.Errorf("variant decrements = %+v", f.products.variantDecrements)
	}
}

func TestDuplicateNotificationIsSkipped(t *testing.T) {
	f := newFixture(t)
	order := seedOrder(f, enums.OrderStatusPending)
	f.provider.payment = &mercadopago.Payment{
		ID: 1, Status: "approved", ExternalReference: order.OrderNumber,
	}

	if _, err := f.svc.HandleNotification(context.Background(), paymentNotification("1")); err != nil {
		t.Fatalf("first delivery returned error: %v", err)
	}
	outcome, err := f.svc.HandleNotification(context.Background(), paymentNotification("1"))
	if err != nil {
		t.Fatalf("second delivery returned error: %v", err)
	}
	if outcome != OutcomeReplayed {
		t.Errorf("outcome = %s", outcome)
	}
	if f.provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", f.provider.calls)
	}
}

func TestNonPaymentTopicIsIgnored(t *testing.T) {
	f := newFixture(t)
	var n Notification
	n.Type = "merchant_order"
	n.Data.ID = "55"

	outcome, err := f.svc.HandleNotification(context.Background(), n)
	if err != nil {
		t.Fatalf("HandleNotification returned error: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Errorf("outcome = %s", outcome)
	}
	if f.provider.calls != 0 {
		t.Error("provider must not be called for non-payment topics")
	}
}

func TestRejectedPaymentCancelsWithoutTouchingStock(t *testing.T) {
	f := newFixture(t)
	order := seedOrder(f, enums.OrderStatusPending,
		models.OrderItem{ProductID: uuid.New(), Quantity: 3})
	f.provider.payment = &mercadopago.Payment{
		ID: 2, Status: "rejected", ExternalReference: order.OrderNumber,
	}

	if _, err := f.svc.HandleNotification(context.Background(), paymentNotification("2")); err != nil {
		t.Fatalf("HandleNotification returned error: %v", err)
	}
	if got := f.orders.byNumber[order.OrderNumber].Status; got != enums.OrderStatusCancelled {
		t.Errorf("order status = %s, want CANCELLED", got)
	}
	if len(f.products.productDecrements) != 0 {
		t.Error("cancellations must not decrement stock")
	}
	if f.orders.paymentID != "" {
		t.Error("rejected payments must not store a payment reference")
	}
}

func TestIllegalRegressionIsIgnored(t *testing.T) {
	f := newFixture(t)
	order := seedOrder(f, enums.OrderStatusDelivered)
	f.provider.payment = &mercadopago.Payment{
		ID: 3, Status: "rejected", ExternalReference: order.OrderNumber,
	}

	outcome, err := f.svc.HandleNotification(context.Background(), paymentNotification("3"))
	if err != nil {
		t.Fatalf("HandleNotification returned error: %v", err)
	}
	if outcome != OutcomeProcessed {
		t.Errorf("outcome = %s", outcome)
	}
	if got := f.orders.byNumber[order.OrderNumber].Status; got != enums.OrderStatusDelivered {
		t.Errorf("order status = %s, delivered orders must not regress", got)
	}
	if len(f.orders.statusUpdates) != 0 {
		t.Error("no status write may happen on an illegal regression")
	}
}

func TestSameStatusReplayIsNoOp(t *testing.T) {
	f := newFixture(t)
	order := seedOrder(f, enums.OrderStatusPaid,
		models.OrderItem{ProductID: uuid.New(), Quantity: 1})
	f.provider.payment = &mercadopago.Payment{
		ID: 4, Status: "approved", ExternalReference: order.OrderNumber,
	}

	if _, err := f.svc.HandleNotification(context.Background(), paymentNotification("4")); err != nil {
		t.Fatalf("HandleNotification returned error: %v", err)
	}
	if len(f.products.productDecrements) != 0 {
		t.Error("stock must not be decremented twice for an already paid order")
	}
	if len(f.orders.statusUpdates) != 0 {
		t.Error("no status write for an order already in the target status")
	}
}

func TestStockFailureRollsBackAndReleasesMark(t *testing.T) {
	f := newFixture(t)
	order := seedOrder(f, enums.OrderStatusPending,
		models.OrderItem{ProductID: uuid.New(), Quantity: 5})
	f.provider.payment = &mercadopago.Payment{
		ID: 5, Status: "approved", ExternalReference: order.OrderNumber,
	}
	f.products.stockErr = errors.New("insufficient stock")

	_, err := f.svc.HandleNotification(context.Background(), paymentNotification("5"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if !f.tx.rolledBack {
		t.Fatal("transaction must roll back on stock failure")
	}
	if len(f.store.deleted) != 1 {
		t.Fatal("idempotency mark must be released so the provider retry can land")
	}
	if got := f.orders.byNumber[order.OrderNumber].Status; got != enums.OrderStatusPending {
		t.Errorf("order status = %s, want PENDING preserved", got)
	}
}

func TestUnknownOrderFails(t *testing.T) {
	f := newFixture(t)
	f.provider.payment = &mercadopago.Payment{
		ID: 6, Status: "approved", ExternalReference: "TV-20250301-ZZZZZZ",
	}

	_, err := f.svc.HandleNotification(context.Background(), paymentNotification("6"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMissingPaymentIDIsRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.HandleNotification(context.Background(), paymentNotification("  "))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
