package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tiendamx/tienda-backend/internal/products"
	"github.com/tiendamx/tienda-backend/pkg/db"
	"github.com/tiendamx/tienda-backend/pkg/db/models"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
)

// Service prices client carts against the live catalog.
type Service interface {
	QuoteCart(ctx context.Context, input Cart) (*Quote, error)
}

type service struct {
	products products.Repository
}

// NewService wires a cart quote service with the catalog repository.
func NewService(productRepo products.Repository) (Service, error) {
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{products: productRepo}, nil
}

// QuoteCart revalidates every line: prices come from the catalog, quantities
// are clamped into the 1..stock range, and inactive or missing items drop out
// with a validation error. Products without tracked stock quote any quantity.
func (s *service) QuoteCart(ctx context.Context, input Cart) (*Quote, error) {
	if len(input.Lines) == 0 {
		return &Quote{Lines: []QuotedLine{}, Total: decimal.Zero}, nil
	}

	quote := &Quote{Total: decimal.Zero}
	for _, line := range input.Lines {
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

		quoted, err := s.quoteLine(product, line)
		if err != nil {
			return nil, err
		}
		quote.Lines = append(quote.Lines, *quoted)
		quote.Total = quote.Total.Add(quoted.LineTotal)
	}
	return quote, nil
}

func (s *service) quoteLine(product *models.Product, line Line) (*QuotedLine, error) {
	quoted := &QuotedLine{
		ProductID:  product.ID,
		Name:       product.Name,
		UnitPrice:  product.Price,
		Quantity:   line.Quantity,
		IsPreOrder: product.Stock == nil,
	}
	if quoted.Quantity < 1 {
		quoted.Quantity = 1
		quoted.Clamped = true
	}
	if len(product.Images) > 0 {
		quoted.ImageURL = product.Images[0]
	}

	var ceiling *int
	if line.VariantID != nil {
		variant := findVariant(product, line)
		if variant == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variant for product %q no longer exists", product.Name))
		}
		if !variant.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variant of %q is no longer available", product.Name))
		}
		quoted.VariantID = line.VariantID
		quoted.VariantName = variantLabel(variant)
		quoted.UnitPrice = variant.EffectivePrice(product)
		if variant.ImageURL != nil {
			quoted.ImageURL = *variant.ImageURL
		}
		stock := variant.Stock
		ceiling = &stock
		quoted.IsPreOrder = false
	} else {
		ceiling = product.EffectiveStock()
	}

	if ceiling != nil && quoted.Quantity > *ceiling {
		if *ceiling <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%q is out of stock", product.Name))
		}
		quoted.Quantity = *ceiling
		quoted.Clamped = true
	}

	quoted.LineTotal = quoted.UnitPrice.Mul(decimal.NewFromInt(int64(quoted.Quantity)))
	return quoted, nil
}

func findVariant(product *models.Product, line Line) *models.ProductVariant {
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
