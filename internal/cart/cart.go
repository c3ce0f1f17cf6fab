// Package cart holds the in-progress sale lines and their derived totals.
// A Cart is a plain injectable value with no persistence; callers create one
// per sale session and discard it at checkout or clear.
package cart

import (
	"strings"

	"phoneshop/backend/internal/domain"
	"phoneshop/backend/internal/xid"
)

type Line struct {
	ID             string
	ProductID      string
	Barcode        string
	Name           string
	Qty            int
	UnitPriceCents int64
	// DiscountCents is the per-unit discount.
	DiscountCents int64
}

type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{lines: make([]Line, 0, 8)}
}

// AddLine appends a line and returns its assigned line id. Lines with a
// non-positive quantity or negative money amounts are rejected by returning
// an empty id and leaving the cart unchanged.
func (c *Cart) AddLine(line Line) string {
	line.Name = strings.TrimSpace(line.Name)
	if line.Qty < 1 || line.UnitPriceCents < 0 || line.DiscountCents < 0 {
		return ""
	}
	if line.DiscountCents > line.UnitPriceCents {
		return ""
	}
	if line.ProductID == "" && line.Name == "" {
		return ""
	}
	if line.ID == "" {
		line.ID = xid.New("line")
	}
	c.lines = append(c.lines, line)
	return line.ID
}

// UpdateQuantity sets the quantity of a line; a quantity of zero or less
// removes the line.
func (c *Cart) UpdateQuantity(lineID string, qty int) {
	if qty < 1 {
		c.RemoveLine(lineID)
		return
	}
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			c.lines[i].Qty = qty
			return
		}
	}
}

func (c *Cart) RemoveLine(lineID string) {
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.lines = c.lines[:0]
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) SubtotalCents() int64 {
	var subtotal int64
	for _, line := range c.lines {
		subtotal += int64(line.Qty) * line.UnitPriceCents
	}
	return subtotal
}

func (c *Cart) TotalDiscountCents() int64 {
	var discount int64
	for _, line := range c.lines {
		discount += int64(line.Qty) * line.DiscountCents
	}
	return discount
}

func (c *Cart) NetAmountCents() int64 {
	return c.SubtotalCents() - c.TotalDiscountCents()
}

// FromSaleLines builds a cart from wire-format sale lines, skipping lines
// that fail AddLine validation. The second return value reports how many
// lines were accepted.
func FromSaleLines(lines []domain.SaleLine) (*Cart, int) {
	c := New()
	accepted := 0
	for _, l := range lines {
		id := c.AddLine(Line{
			ProductID:      l.ProductID,
			Barcode:        l.Barcode,
			Name:           l.Name,
			Qty:            l.Qty,
			UnitPriceCents: l.UnitPriceCents,
			DiscountCents:  l.DiscountCents,
		})
		if id != "" {
			accepted++
		}
	}
	return c, accepted
}
