package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pizza = MenuItem{ID: "pizza", Name: "Margherita", BasePrice: decimal.RequireFromString("10.00")}
	large = OptionChoice{GroupID: "size", ChoiceID: "large", Label: "Large", PriceDelta: decimal.RequireFromString("3.00")}
	thin  = OptionChoice{GroupID: "crust", ChoiceID: "thin", Label: "Thin", PriceDelta: decimal.Zero}
	olive = AddOn{ID: "olive", Label: "Olives", PriceDelta: decimal.RequireFromString("0.50")}
	basil = AddOn{ID: "basil", Label: "Basil", PriceDelta: decimal.RequireFromString("0.25")}
)

func TestUnitPrice(t *testing.T) {
	got := UnitPrice(pizza, []OptionChoice{large, thin}, []AddOn{olive, basil})
	assert.Equal(t, "13.75", got.StringFixed(2))
}

func TestCart_AddLineMerges(t *testing.T) {
	c := NewCart()

	first := c.AddLine(pizza, 1, []OptionChoice{large}, []AddOn{olive, basil})
	second := c.AddLine(pizza, 2, []OptionChoice{large}, []AddOn{basil, olive, olive})

	require.Equal(t, 1, c.Len())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.Quantity)
	assert.Len(t, second.AddOns, 2)
}

func TestCart_AddLineDistinctOptions(t *testing.T) {
	c := NewCart()

	c.AddLine(pizza, 1, []OptionChoice{large}, nil)
	c.AddLine(pizza, 1, nil, nil)
	c.AddLine(pizza, 1, []OptionChoice{large, thin}, nil)
	c.AddLine(pizza, 1, []OptionChoice{thin, large}, nil)

	assert.Equal(t, 4, c.Len())
}

func TestCart_LineTotalTracksQuantity(t *testing.T) {
	c := NewCart()
	line := c.AddLine(pizza, 2, []OptionChoice{large}, nil)
	assert.Equal(t, "26.00", line.LineTotal().StringFixed(2))

	require.True(t, c.UpdateQuantity(line.ID, 5))
	got, ok := c.Line(line.ID)
	require.True(t, ok)
	assert.True(t, got.LineTotal().Equal(got.UnitPrice.Mul(decimal.NewFromInt(5))))
}

func TestCart_QuantityClamps(t *testing.T) {
	c := NewCart()
	line := c.AddLine(pizza, 0, nil, nil)
	assert.Equal(t, 1, line.Quantity)

	for _, q := range []int{0, -3} {
		c.UpdateQuantity(line.ID, q)
		got, _ := c.Line(line.ID)
		assert.Equal(t, 1, got.Quantity)
	}
}

func TestCart_UnknownLineIsNoop(t *testing.T) {
	c := NewCart()
	c.AddLine(pizza, 2, nil, nil)

	assert.False(t, c.UpdateQuantity("nope", 9))
	assert.False(t, c.RemoveLine("nope"))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Lines()[0].Quantity)
}

func TestCart_RemoveAndClear(t *testing.T) {
	c := NewCart()
	a := c.AddLine(pizza, 1, nil, nil)
	c.AddLine(pizza, 1, []OptionChoice{large}, nil)

	assert.True(t, c.RemoveLine(a.ID))
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Subtotal().IsZero())
}

func TestCart_LinesAreCopies(t *testing.T) {
	c := NewCart()
	c.AddLine(pizza, 1, nil, []AddOn{olive})

	lines := c.Lines()
	lines[0].Quantity = 99
	lines[0].AddOns[0].ID = "changed"

	again := c.Lines()
	assert.Equal(t, 1, again[0].Quantity)
	assert.Equal(t, "olive", again[0].AddOns[0].ID)
}
