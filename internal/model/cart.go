package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one product line in a session cart. The unit price is snapshotted
// when the product is first added; the subtotal is re-derived on every mutation.
type CartLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Cart aggregates the lines of one employee's shopping session. It lives in the
// session store only; nothing is persisted until checkout succeeds.
type Cart struct {
	Lines map[uuid.UUID]*CartLine `json:"lines"`
}

func NewCart() *Cart {
	return &Cart{Lines: make(map[uuid.UUID]*CartLine)}
}

// Add merges the quantity into an existing line or creates a new one with the
// product's current price snapshotted.
func (c *Cart) Add(product *Product, quantity int) {
	if quantity <= 0 {
		return
	}
	if line, ok := c.Lines[product.ID]; ok {
		line.Quantity += quantity
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		return
	}
	c.Lines[product.ID] = &CartLine{
		ProductID: product.ID,
		SKU:       product.SKU,
		Name:      product.Name,
		Quantity:  quantity,
		UnitPrice: product.Price,
		Subtotal:  product.Price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// SetQuantity overwrites a line's quantity. Zero or negative removes the line.
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) {
	line, ok := c.Lines[productID]
	if !ok {
		return
	}
	if quantity <= 0 {
		delete(c.Lines, productID)
		return
	}
	line.Quantity = quantity
	line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

func (c *Cart) Remove(productID uuid.UUID) {
	delete(c.Lines, productID)
}

func (c *Cart) Clear() {
	c.Lines = make(map[uuid.UUID]*CartLine)
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Total is the sum of line subtotals.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Subtotal)
	}
	return total
}

// TotalQuantity is the sum of line quantities.
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}
