package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProduct(price string) *Product {
	return &Product{
		ID:    uuid.New(),
		SKU:   "SKU-001",
		Name:  "Arroz 5lb",
		Price: decimal.RequireFromString(price),
	}
}

func TestCartAddMergesQuantities(t *testing.T) {
	cart := NewCart()
	product := testProduct("125.50")

	cart.Add(product, 2)
	cart.Add(product, 3)

	require.Len(t, cart.Lines, 1)
	line := cart.Lines[product.ID]
	assert.Equal(t, 5, line.Quantity)
	assert.True(t, line.Subtotal.Equal(decimal.RequireFromString("627.50")), "subtotal was %s", line.Subtotal)
}

func TestCartAddIgnoresNonPositiveQuantity(t *testing.T) {
	cart := NewCart()
	product := testProduct("10.00")

	cart.Add(product, 0)
	cart.Add(product, -1)

	assert.True(t, cart.IsEmpty())
}

func TestCartSnapshotsPriceAtFirstAdd(t *testing.T) {
	cart := NewCart()
	product := testProduct("100.00")

	cart.Add(product, 1)

	// A later price change must not affect the line.
	product.Price = decimal.RequireFromString("999.00")
	cart.Add(product, 1)

	line := cart.Lines[product.ID]
	assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, line.Subtotal.Equal(decimal.RequireFromString("200.00")))
}

func TestCartSetQuantity(t *testing.T) {
	cart := NewCart()
	product := testProduct("20.00")
	cart.Add(product, 4)

	cart.SetQuantity(product.ID, 2)
	assert.Equal(t, 2, cart.Lines[product.ID].Quantity)
	assert.True(t, cart.Lines[product.ID].Subtotal.Equal(decimal.RequireFromString("40.00")))

	// Zero removes the line entirely.
	cart.SetQuantity(product.ID, 0)
	assert.True(t, cart.IsEmpty())

	// Unknown product is a no-op.
	cart.SetQuantity(uuid.New(), 5)
	assert.True(t, cart.IsEmpty())
}

func TestCartTotals(t *testing.T) {
	cart := NewCart()
	a := testProduct("100.00")
	b := testProduct("50.25")
	b.ID = uuid.New()

	cart.Add(a, 2)
	cart.Add(b, 3)

	assert.True(t, cart.Total().Equal(decimal.RequireFromString("350.75")), "total was %s", cart.Total())
	assert.Equal(t, 5, cart.TotalQuantity())

	cart.Remove(a.ID)
	assert.True(t, cart.Total().Equal(decimal.RequireFromString("150.75")))

	cart.Clear()
	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.Total().IsZero())
}
