package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tiendamx/tienda-backend/internal/cart"
	"github.com/tiendamx/tienda-backend/internal/customers"
	"github.com/tiendamx/tienda-backend/internal/orders"
	"github.com/tiendamx/tienda-backend/internal/products"
	"github.com/tiendamx/tienda-backend/pkg/config"
	"github.com/tiendamx/tienda-backend/pkg/db"
	"github.com/tiendamx/tienda-backend/pkg/db/models"
	"github.com/tiendamx/tienda-backend/pkg/enums"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
	"github.com/tiendamx/tienda-backend/pkg/logger"
	"github.com/tiendamx/tienda-backend/pkg/mercadopago"
)

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PreferenceCreator is the provider surface checkout needs.
type PreferenceCreator interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
	CurrencyID() string
}

// CustomerInput is the buyer contact block of a checkout request.
type CustomerInput struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"max=30"`
	Address string `json:"address" validate:"required,max=300"`
	ZipCode string `json:"zipCode" validate:"max=10"`
}

// Input is a full checkout request: buyer plus cart lines.
type Input struct {
	Customer CustomerInput `json:"customer" validate:"required"`
	Lines    []cart.Line   `json:"lines" validate:"required,min=1,dive"`
}

// Result points the buyer at the provider checkout.
type Result struct {
	OrderNumber  string          `json:"orderNumber"`
	Total        decimal.Decimal `json:"total"`
	PreferenceID string          `json:"preferenceId"`
	InitPoint    string          `json:"initPoint"`
}

// Service turns a validated cart into a pending order and a provider checkout
// session.
type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	tx        TxRunner
	products  products.Repository
	customers customers.Repository
	orders    orders.Repository
	provider  PreferenceCreator
	cfg       config.MercadoPagoConfig
	baseURL   string
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the checkout service.
func NewService(
	tx TxRunner,
	productRepo products.Repository,
	customerRepo customers.Repository,
	orderRepo orders.Repository,
	provider PreferenceCreator,
	cfg config.MercadoPagoConfig,
	baseURL string,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if customerRepo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:        tx,
		products:  productRepo,
		customers: customerRepo,
		orders:    orderRepo,
		provider:  provider,
		cfg:       cfg,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logg:      logg,
		now:       time.Now,
	}, nil
}

// Checkout validates every line against the live catalog, registers the
// provider preference, then commits the customer and the PENDING order in one
// transaction. The provider is called before the transaction opens so no DB
// connection is held across the remote call; a DB failure afterwards leaves
// only an unreferenced preference on the provider side. Totals are recomputed
// server side; client-sent prices are ignored.
func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	if err := validateCustomer(input.Customer); err != nil {
		return nil, err
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	priced, err := s.priceLines(ctx, input.Lines)
	if err != nil {
		return nil, err
	}

	orderNumber := orders.GenerateOrderNumber(s.now())
	ctx = s.logg.WithOrderNumber(ctx, orderNumber)

	customer := &models.Customer{
		Name:    strings.TrimSpace(input.Customer.Name),
		Email:   input.Customer.Email,
		Phone:   strings.TrimSpace(input.Customer.Phone),
		Address: strings.TrimSpace(input.Customer.Address),
		ZipCode: strings.TrimSpace(input.Customer.ZipCode),
	}

	pref, err := s.provider.CreatePreference(ctx, s.buildPreference(orderNumber, customer, priced))
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		customerRepo := s.customers.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		if err := customerRepo.UpsertByEmail(ctx, customer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving customer")
		}

		order := &models.Order{
			OrderNumber:     orderNumber,
			Total:           priced.total,
			Status:          enums.OrderStatusPending,
			ShippingAddress: customer.Address,
			CustomerID:      customer.ID,
			PreferenceID:    &pref.ID,
			Items:           priced.items,
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "checkout preference created")
	return &Result{
		OrderNumber:  orderNumber,
		Total:        priced.total,
		PreferenceID: pref.ID,
		InitPoint:    pref.InitPoint,
	}, nil
}

type pricedCart struct {
	items []models.OrderItem
	lines []mercadopago.PreferenceItem
	total decimal.Decimal
}

// priceLines revalidates every cart line. Stock problems are aggregated so
// the buyer sees all offending lines at once instead of one per attempt.
func (s *service) priceLines(ctx context.Context, lines []cart.Line) (*pricedCart, error) {
	priced := &pricedCart{total: decimal.Zero}
	var stockErr error

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}

		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s no longer exists", line.ProductID))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %q is no longer available", product.Name))
		}

		unitPrice := product.Price
		title := product.Name
		var ceiling *int

		if line.VariantID != nil {
			variant := findVariant(product, line)
			if variant == nil || !variant.IsActive {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variant of %q is no longer available", product.Name))
			}
			unitPrice = variant.EffectivePrice(product)
			title = fmt.Sprintf("%s (%s)", product.Name, variantLabel(variant))
			stock := variant.Stock
			ceiling = &stock
		} else {
			ceiling = product.EffectiveStock()
		}

		if ceiling != nil && line.Quantity > *ceiling {
			stockErr = multierr.Append(stockErr,
				fmt.Errorf("%q: requested %d, only %d available", title, line.Quantity, *ceiling))
			continue
		}

		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		priced.total = priced.total.Add(lineTotal)
		priced.items = append(priced.items, models.OrderItem{
			ProductID: product.ID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			Price:     unitPrice,
		})

		item := mercadopago.PreferenceItem{
			ID:        product.ID.String(),
			Title:     title,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
		}
		if len(product.Images) > 0 {
			item.PictureURL = product.Images[0]
		}
		priced.lines = append(priced.lines, item)
	}

	if stockErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, stockErr, "insufficient stock").
			WithDetails(errorMessages(stockErr))
	}
	return priced, nil
}

func (s *service) buildPreference(orderNumber string, customer *models.Customer, priced *pricedCart) mercadopago.PreferenceRequest {
	return mercadopago.PreferenceRequest{
		Items: priced.lines,
		Payer: mercadopago.PreferencePayer{
			Name:  customer.Name,
			Email: customer.Email,
		},
		BackURLs: mercadopago.BackURLs{
			Success: s.cfg.SuccessURL(s.baseURL),
			Failure: s.cfg.FailureURL(s.baseURL),
			Pending: s.cfg.PendingURL(s.baseURL),
		},
		AutoReturn:          "approved",
		NotificationURL:     s.cfg.NotificationURL(s.baseURL),
		ExternalReference:   orderNumber,
		StatementDescriptor: s.cfg.StatementDescriptor,
	}
}

func validateCustomer(customer CustomerInput) error {
	if strings.TrimSpace(customer.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	email := strings.TrimSpace(customer.Email)
	if email == "" || !strings.Contains(email, "@") {
		return pkgerrors.New(pkgerrors.CodeValidation, "a valid customer email is required")
	}
	if strings.TrimSpace(customer.Address) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	return nil
}

func findVariant(product *models.Product, line cart.Line) *models.ProductVariant {
	for i := range product.Variants {
		if product.Variants[i].ID == *line.VariantID {
			return &product.Variants[i]
		}
	}
	return nil
}

func variantLabel(variant *models.ProductVariant) string {
	parts := make([]string, 0, 2)
	if variant.Color != nil {
		parts = append(parts, *variant.Color)
	}
	if variant.Size != nil {
		parts = append(parts, *variant.Size)
	}
	return strings.Join(parts, " / ")
}

func errorMessages(err error) []string {
	var messages []string
	for _, e := range multierr.Errors(err) {
		messages = append(messages, e.Error())
	}
	return messages
}
