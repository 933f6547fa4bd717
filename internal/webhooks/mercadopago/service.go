package mercadopagowebhook

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tiendamx/tienda-backend/internal/orders"
	"github.com/tiendamx/tienda-backend/internal/products"
	"github.com/tiendamx/tienda-backend/pkg/db"
	"github.com/tiendamx/tienda-backend/pkg/db/models"
	"github.com/tiendamx/tienda-backend/pkg/enums"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
	"github.com/tiendamx/tienda-backend/pkg/logger"
	"github.com/tiendamx/tienda-backend/pkg/mercadopago"
)

// Notification is the provider webhook payload. The provider also mirrors
// type/id in query parameters; controllers normalize both into this struct.
type Notification struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// PaymentFetcher is the provider surface the webhook needs.
type PaymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Outcome reports what the handler did with a notification.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeReplayed  Outcome = "replayed"
	OutcomeProcessed Outcome = "processed"
)

// ServiceParams collects the webhook service dependencies.
type ServiceParams struct {
	Guard             *IdempotencyGuard
	Provider          PaymentFetcher
	OrderRepo         orders.Repository
	ProductRepo       products.Repository
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service processes payment notifications: it fetches the payment, maps the
// provider status onto the order lifecycle, and decrements stock exactly once
// when an order first becomes paid.
type Service struct {
	guard    *IdempotencyGuard
	provider PaymentFetcher
	orders   orders.Repository
	products products.Repository
	txRunner txRunner
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment provider required")
	}
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "products repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		guard:    params.Guard,
		provider: params.Provider,
		orders:   params.OrderRepo,
		products: params.ProductRepo,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
	}, nil
}

// HandleNotification is the webhook entrypoint. Non-payment topics are
// acknowledged without work. Failures release the idempotency mark so the
// provider retry can land.
func (s *Service) HandleNotification(ctx context.Context, notification Notification) (Outcome, error) {
	if !strings.EqualFold(notification.Type, "payment") {
		return OutcomeIgnored, nil
	}
	paymentID := strings.TrimSpace(notification.Data.ID)
	if paymentID == "" {
		return OutcomeIgnored, pkgerrors.New(pkgerrors.CodeValidation, "payment id missing from notification")
	}

	ctx = s.logg.WithPaymentID(ctx, paymentID)

	replayed, err := s.guard.CheckAndMark(ctx, paymentID)
	if err != nil {
		return OutcomeIgnored, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency check")
	}
	if replayed {
		s.logg.Info(ctx, "duplicate payment notification skipped")
		return OutcomeReplayed, nil
	}

	if err := s.process(ctx, paymentID); err != nil {
		if releaseErr := s.guard.Release(ctx, paymentID); releaseErr != nil {
			s.logg.Error(ctx, "releasing idempotency mark", releaseErr)
		}
		return OutcomeIgnored, err
	}
	return OutcomeProcessed, nil
}

func (s *Service) process(ctx context.Context, paymentID string) error {
	payment, err := s.provider.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	status, err := enums.ParsePaymentStatus(payment.Status)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "provider_status", payment.Status), "unmapped payment status ignored")
		return nil
	}
	target, err := status.OrderStatus()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mapping payment status")
	}

	orderNumber := strings.TrimSpace(payment.ExternalReference)
	if orderNumber == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment has no external reference")
	}
	ctx = s.logg.WithOrderNumber(ctx, orderNumber)

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		productRepo := s.products.WithTx(tx)

		order, err := orderRepo.GetByOrderNumber(ctx, orderNumber)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %s not found", orderNumber))
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}

		if order.Status == target {
			s.logg.Info(ctx, "order already in target status")
			return nil
		}
		if !order.Status.CanTransitionTo(target) {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"from": order.Status,
				"to":   target,
			}), "ignoring payment notification with illegal status regression")
			return nil
		}

		becamePaid := order.Status == enums.OrderStatusPending && target == enums.OrderStatusPaid
		if becamePaid {
			if err := s.decrementStock(ctx, productRepo, order.Items); err != nil {
				return err
			}
			if err := orderRepo.SetPayment(ctx, order.ID, fmt.Sprintf("%d", payment.ID), payment.PaymentMethodID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving payment reference")
			}
		}

		if err := orderRepo.UpdateStatus(ctx, order.ID, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
		}

		s.logg.Info(s.logg.WithField(ctx, "status", target), "order status updated from payment notification")
		return nil
	})
}

// decrementStock runs inside the order transaction so a stock failure rolls
// back the status change. Lines pointing at a variant decrement variant
// stock; others decrement product stock, where NULL means made to order.
func (s *Service) decrementStock(ctx context.Context, productRepo products.Repository, items []models.OrderItem) error {
	for _, item := range items {
		if item.VariantID != nil {
			if err := productRepo.DecrementVariantStock(ctx, *item.VariantID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "decrementing variant stock")
			}
			continue
		}
		if err := productRepo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "decrementing product stock")
		}
	}
	return nil
}
