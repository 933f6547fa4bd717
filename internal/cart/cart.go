package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one product (optionally a specific variant) with a quantity.
// Quantities below one are clamped to one rather than rejected.
type Line struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId"`
	Quantity  int        `json:"quantity"`
}

// Cart is a client-held list of lines. The server never stores it; it only
// prices and validates what the client sends.
type Cart struct {
	Lines []Line `json:"lines" validate:"dive"`
}

func sameLine(a, b Line) bool {
	if a.ProductID != b.ProductID {
		return false
	}
	if (a.VariantID == nil) != (b.VariantID == nil) {
		return false
	}
	return a.VariantID == nil || *a.VariantID == *b.VariantID
}

// Add merges the line into the cart, summing quantities for an existing
// product/variant pair.
func (c *Cart) Add(line Line) {
	if line.Quantity <= 0 {
		return
	}
	for i := range c.Lines {
		if sameLine(c.Lines[i], line) {
			c.Lines[i].Quantity += line.Quantity
			return
		}
	}
	c.Lines = append(c.Lines, line)
}

// UpdateQuantity sets the quantity for a line, clamping zero or below to one.
// Dropping a line is Remove's job.
func (c *Cart) UpdateQuantity(line Line, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	for i := range c.Lines {
		if sameLine(c.Lines[i], line) {
			c.Lines[i].Quantity = quantity
			return
		}
	}
	line.Quantity = quantity
	c.Lines = append(c.Lines, line)
}

// Remove drops the line from the cart.
func (c *Cart) Remove(line Line) {
	for i := range c.Lines {
		if sameLine(c.Lines[i], line) {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Lines = nil
}

// QuotedLine is a cart line priced against the catalog.
type QuotedLine struct {
	ProductID   uuid.UUID       `json:"productId"`
	VariantID   *uuid.UUID      `json:"variantId,omitempty"`
	Name        string          `json:"name"`
	VariantName string          `json:"variantName,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	Clamped     bool            `json:"clamped"`
	IsPreOrder  bool            `json:"isPreOrder"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Quote is the server-priced view of a cart.
type Quote struct {
	Lines []QuotedLine    `json:"lines"`
	Total decimal.Decimal `json:"total"`
}
