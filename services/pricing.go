package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PricedLine is one order line as the pricing engine sees it: a unit price
// snapshot and a quantity.
type PricedLine struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Totals struct {
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal
}

// Pricer computes order totals at a fixed tax rate. Subtotal and tax are each
// rounded to 2 decimal places before summing into the grand total, so the
// same inputs always produce the same result.
type Pricer struct {
	taxRate decimal.Decimal
}

func NewPricer(taxRate decimal.Decimal) *Pricer {
	return &Pricer{taxRate: taxRate}
}

// LineTotal is unit price times quantity, rounded half-up to currency
// precision.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Price computes subtotal, tax and grand total for the given lines. Any line
// with a non-positive quantity is rejected.
func (p *Pricer) Price(lines []PricedLine) (*Totals, *ServiceError) {
	subtotal := decimal.Zero
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, invalidQuantityError(fmt.Sprintf("line %d: quantity must be greater than zero, got %d", i+1, line.Quantity))
		}
		subtotal = subtotal.Add(LineTotal(line.UnitPrice, line.Quantity))
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(p.taxRate).Round(2)

	return &Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		GrandTotal: subtotal.Add(tax),
	}, nil
}
