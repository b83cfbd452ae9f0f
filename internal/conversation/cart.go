package conversation

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// LineProduct is the product snapshot a cart line was built from.
type LineProduct struct {
	ProductID   uint64          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CartLine is either a DraftCartLine or a FinalizedCartLine.
type CartLine interface {
	Product() LineProduct
	cartLine()
}

// DraftCartLine is a selected product still waiting for its quantity.
type DraftCartLine struct {
	LineProduct
}

// FinalizedCartLine carries a quantity and its line total.
type FinalizedCartLine struct {
	LineProduct
	Quantity  int
	LineTotal decimal.Decimal
}

func (l DraftCartLine) Product() LineProduct     { return l.LineProduct }
func (l FinalizedCartLine) Product() LineProduct { return l.LineProduct }
func (DraftCartLine) cartLine()                  {}
func (FinalizedCartLine) cartLine()              {}

// Quantify turns a draft into a finalized line.
func (l DraftCartLine) Quantify(quantity int) FinalizedCartLine {
	return FinalizedCartLine{
		LineProduct: l.LineProduct,
		Quantity:    quantity,
		LineTotal:   l.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Cart is the ordered list of lines.
type Cart []CartLine

// Append returns a new cart with line added at the end.
func (c Cart) Append(line CartLine) Cart {
	out := make(Cart, 0, len(c)+1)
	out = append(out, c...)
	return append(out, line)
}

// LastDraft returns the trailing draft line, if the last line is a draft.
func (c Cart) LastDraft() (DraftCartLine, bool) {
	if len(c) == 0 {
		return DraftCartLine{}, false
	}
	draft, ok := c[len(c)-1].(DraftCartLine)
	return draft, ok
}

// QuantifyLast finalizes the trailing draft line.
func (c Cart) QuantifyLast(quantity int) (Cart, bool) {
	draft, ok := c.LastDraft()
	if !ok || quantity <= 0 {
		return c, false
	}
	out := make(Cart, len(c))
	copy(out, c)
	out[len(out)-1] = draft.Quantify(quantity)
	return out, true
}

// Finalized returns only the lines that carry a quantity.
func (c Cart) Finalized() []FinalizedCartLine {
	var out []FinalizedCartLine
	for _, line := range c {
		if f, ok := line.(FinalizedCartLine); ok {
			out = append(out, f)
		}
	}
	return out
}

// Freeze drops draft lines.
func (c Cart) Freeze() Cart {
	finalized := c.Finalized()
	out := make(Cart, 0, len(finalized))
	for _, line := range finalized {
		out = append(out, line)
	}
	return out
}

// Total sums the finalized line totals; drafts contribute nothing.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Finalized() {
		total = total.Add(line.LineTotal)
	}
	return total
}

type cartLineWire struct {
	ProductID   uint64           `json:"product_id"`
	ProductName string           `json:"product_name"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Quantity    *int             `json:"quantity,omitempty"`
	LineTotal   *decimal.Decimal `json:"line_total,omitempty"`
}

// MarshalJSON writes drafts without quantity and line_total.
func (c Cart) MarshalJSON() ([]byte, error) {
	wire := make([]cartLineWire, 0, len(c))
	for _, line := range c {
		p := line.Product()
		entry := cartLineWire{ProductID: p.ProductID, ProductName: p.ProductName, UnitPrice: p.UnitPrice}
		if f, ok := line.(FinalizedCartLine); ok {
			qty, total := f.Quantity, f.LineTotal
			entry.Quantity = &qty
			entry.LineTotal = &total
		}
		wire = append(wire, entry)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON restores drafts and finalized lines by field presence.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var wire []cartLineWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := make(Cart, 0, len(wire))
	for _, entry := range wire {
		product := LineProduct{ProductID: entry.ProductID, ProductName: entry.ProductName, UnitPrice: entry.UnitPrice}
		if entry.Quantity == nil || *entry.Quantity <= 0 {
			out = append(out, DraftCartLine{LineProduct: product})
			continue
		}
		line := DraftCartLine{LineProduct: product}.Quantify(*entry.Quantity)
		if entry.LineTotal != nil {
			line.LineTotal = *entry.LineTotal
		}
		out = append(out, line)
	}
	*c = out
	return nil
}
