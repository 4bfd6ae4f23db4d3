package domain

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID           string
	Name         string
	BasePrice    decimal.Decimal
	RestaurantID string
}

type OptionChoice struct {
	GroupID    string
	ChoiceID   string
	Label      string
	PriceDelta decimal.Decimal
}

type AddOn struct {
	ID         string
	Label      string
	PriceDelta decimal.Decimal
}

type CartLine struct {
	ID        string
	ItemID    string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Options   []OptionChoice
	AddOns    []AddOn
}

// LineTotal is always derived so it can never drift from UnitPrice and Quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// UnitPrice is the base price plus every selected option and add-on delta.
func UnitPrice(item MenuItem, options []OptionChoice, addOns []AddOn) decimal.Decimal {
	price := item.BasePrice
	for _, o := range options {
		price = price.Add(o.PriceDelta)
	}
	for _, a := range addOns {
		price = price.Add(a.PriceDelta)
	}
	return price
}

type Cart struct {
	lines []CartLine
	newID func() string
}

func NewCart() *Cart {
	return &Cart{newID: uuid.NewString}
}

// AddLine merges into a line with the same item, options and add-ons, or appends a new one.
func (c *Cart) AddLine(item MenuItem, quantity int, options []OptionChoice, addOns []AddOn) CartLine {
	if quantity < 1 {
		quantity = 1
	}
	addOns = normalizeAddOns(addOns)
	key := lineKey(item.ID, options, addOns)

	for i := range c.lines {
		if lineKey(c.lines[i].ItemID, c.lines[i].Options, c.lines[i].AddOns) == key {
			c.lines[i].Quantity += quantity
			return cloneLine(c.lines[i])
		}
	}

	line := CartLine{
		ID:        c.newID(),
		ItemID:    item.ID,
		Name:      item.Name,
		Quantity:  quantity,
		UnitPrice: UnitPrice(item, options, addOns),
		Options:   append([]OptionChoice(nil), options...),
		AddOns:    addOns,
	}
	c.lines = append(c.lines, line)
	return cloneLine(line)
}

// UpdateQuantity clamps to 1 and reports whether lineID exists.
func (c *Cart) UpdateQuantity(lineID string, quantity int) bool {
	if quantity < 1 {
		quantity = 1
	}
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			c.lines[i].Quantity = quantity
			return true
		}
	}
	return false
}

func (c *Cart) RemoveLine(lineID string) bool {
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cart) Line(lineID string) (CartLine, bool) {
	for _, l := range c.lines {
		if l.ID == lineID {
			return cloneLine(l), true
		}
	}
	return CartLine{}, false
}

func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	for i, l := range c.lines {
		out[i] = cloneLine(l)
	}
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

func (c *Cart) Subtotal() decimal.Decimal {
	return Subtotal(c.lines)
}

func (c *Cart) Clear() { c.lines = nil }

func Subtotal(lines []CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

// normalizeAddOns applies set semantics: one entry per id, ordered by id.
func normalizeAddOns(addOns []AddOn) []AddOn {
	if len(addOns) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(addOns))
	out := make([]AddOn, 0, len(addOns))
	for _, a := range addOns {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func lineKey(itemID string, options []OptionChoice, addOns []AddOn) string {
	var b strings.Builder
	b.WriteString(itemID)
	b.WriteString("|")
	for _, o := range options {
		b.WriteString(o.GroupID)
		b.WriteString("=")
		b.WriteString(o.ChoiceID)
		b.WriteString(";")
	}
	b.WriteString("|")
	for _, a := range addOns {
		b.WriteString(a.ID)
		b.WriteString(";")
	}
	return b.String()
}

func cloneLine(l CartLine) CartLine {
	l.Options = append([]OptionChoice(nil), l.Options...)
	l.AddOns = append([]AddOn(nil), l.AddOns...)
	return l
}
