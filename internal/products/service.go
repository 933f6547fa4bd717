package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tiendamx/tienda-backend/pkg/db"
	"github.com/tiendamx/tienda-backend/pkg/db/models"
	pkgerrors "github.com/tiendamx/tienda-backend/pkg/errors"
	"github.com/tiendamx/tienda-backend/pkg/slug"
)

// Service defines back-office operations over products and variants.
type Service interface {
	List(ctx context.Context, filter Filter) ([]models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CreateVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*models.ProductVariant, error)
	UpdateVariant(ctx context.Context, variantID uuid.UUID, input VariantInput) (*models.ProductVariant, error)
	DeleteVariant(ctx context.Context, variantID uuid.UUID) error
}

// CreateProductInput is the product creation payload. A nil Stock marks the
// product as made to order.
type CreateProductInput struct {
	Name           string           `json:"name" validate:"required,min=2,max=160"`
	Description    string           `json:"description" validate:"max=4000"`
	Price          decimal.Decimal  `json:"price" validate:"required"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice"`
	Images         []string         `json:"images" validate:"dive,url"`
	Stock          *int             `json:"stock"`
	PreOrderDays   *string          `json:"preOrderDays"`
	CategoryID     uuid.UUID        `json:"categoryId" validate:"required"`
	IsActive       *bool            `json:"isActive"`
}

// UpdateProductInput carries optional product edits; nil fields are untouched.
type UpdateProductInput struct {
	Name           *string          `json:"name" validate:"omitempty,min=2,max=160"`
	Description    *string          `json:"description" validate:"omitempty,max=4000"`
	Price          *decimal.Decimal `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice"`
	Images         *[]string        `json:"images" validate:"omitempty,dive,url"`
	Stock          *int             `json:"stock"`
	ClearStock     bool             `json:"clearStock"`
	PreOrderDays   *string          `json:"preOrderDays"`
	CategoryID     *uuid.UUID       `json:"categoryId"`
	IsActive       *bool            `json:"isActive"`
}

// VariantInput is the payload for creating or replacing a variant. At least
// one of color/size must be set.
type VariantInput struct {
	Color    *string          `json:"color" validate:"omitempty,max=60"`
	Size     *string          `json:"size" validate:"omitempty,max=30"`
	SKU      *string          `json:"sku" validate:"omitempty,max=80"`
	Price    *decimal.Decimal `json:"price"`
	Stock    int              `json:"stock" validate:"min=0"`
	ImageURL *string          `json:"imageUrl" validate:"omitempty,url"`
	IsActive *bool            `json:"isActive"`
}

type service struct {
	repo Repository
}

// NewService wires a product service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]models.Product, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	return product, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.CategoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.CompareAtPrice != nil && !input.CompareAtPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "compare-at price must be positive")
	}
	if input.Stock != nil && *input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	product := &models.Product{
		Name:           name,
		Slug:           slug.Make(name),
		Description:    strings.TrimSpace(input.Description),
		Price:          input.Price,
		CompareAtPrice: input.CompareAtPrice,
		Images:         input.Images,
		Stock:          input.Stock,
		IsPreOrder:     input.Stock == nil,
		PreOrderDays:   input.PreOrderDays,
		CategoryID:     input.CategoryID,
		IsActive:       true,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if !product.IsPreOrder {
		product.PreOrderDays = nil
	}

	if err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("product slug %q already exists", product.Slug))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be blank")
		}
		product.Name = name
		product.Slug = slug.Make(name)
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		product.Price = *input.Price
	}
	if input.CompareAtPrice != nil {
		if !input.CompareAtPrice.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "compare-at price must be positive")
		}
		product.CompareAtPrice = input.CompareAtPrice
	}
	if input.Images != nil {
		product.Images = *input.Images
	}
	switch {
	case input.ClearStock:
		product.Stock = nil
	case input.Stock != nil:
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		product.Stock = input.Stock
	}
	product.IsPreOrder = product.Stock == nil
	if input.PreOrderDays != nil {
		product.PreOrderDays = input.PreOrderDays
	}
	if !product.IsPreOrder {
		product.PreOrderDays = nil
	}
	if input.CategoryID != nil {
		if *input.CategoryID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id cannot be nil")
		}
		product.CategoryID = *input.CategoryID
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	// Associations are managed through their own endpoints.
	product.Variants = nil
	product.Category = nil

	if err := s.repo.Update(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("product slug %q already exists", product.Slug))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
	}
	return product, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product")
	}
	return nil
}

func (s *service) CreateVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*models.ProductVariant, error) {
	if _, err := s.Get(ctx, productID); err != nil {
		return nil, err
	}
	if err := validateVariant(input); err != nil {
		return nil, err
	}

	variant := &models.ProductVariant{
		ProductID: productID,
		Color:     trimPtr(input.Color),
		Size:      trimPtr(input.Size),
		SKU:       trimPtr(input.SKU),
		Price:     input.Price,
		Stock:     input.Stock,
		ImageURL:  input.ImageURL,
		IsActive:  true,
	}
	if input.IsActive != nil {
		variant.IsActive = *input.IsActive
	}

	if err := s.repo.CreateVariant(ctx, variant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating variant")
	}
	return variant, nil
}

func (s *service) UpdateVariant(ctx context.Context, variantID uuid.UUID, input VariantInput) (*models.ProductVariant, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if err := validateVariant(input); err != nil {
		return nil, err
	}

	variant, err := s.repo.GetVariantByID(ctx, variantID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading variant")
	}

	variant.Color = trimPtr(input.Color)
	variant.Size = trimPtr(input.Size)
	variant.SKU = trimPtr(input.SKU)
	variant.Price = input.Price
	variant.Stock = input.Stock
	variant.ImageURL = input.ImageURL
	if input.IsActive != nil {
		variant.IsActive = *input.IsActive
	}

	if err := s.repo.UpdateVariant(ctx, variant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating variant")
	}
	return variant, nil
}

func (s *service) DeleteVariant(ctx context.Context, variantID uuid.UUID) error {
	if variantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if _, err := s.repo.GetVariantByID(ctx, variantID); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading variant")
	}
	if err := s.repo.DeleteVariant(ctx, variantID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting variant")
	}
	return nil
}

func validateVariant(input VariantInput) error {
	if isBlank(input.Color) && isBlank(input.Size) {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant needs a color or a size")
	}
	if input.Price != nil && !input.Price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant price must be positive")
	}
	if input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant stock cannot be negative")
	}
	return nil
}

func isBlank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
