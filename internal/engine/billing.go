package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var secondsPerHour = decimal.NewFromInt(3600)

// InvoiceLine bills one group. Amount is in whole currency units.
type InvoiceLine struct {
	GroupID string          `json:"group_id"`
	Label   string          `json:"label"`
	Seconds int64           `json:"seconds"`
	Hours   decimal.Decimal `json:"hours"`
	Rate    decimal.Decimal `json:"rate"`
	Amount  int64           `json:"amount"`
}

// Invoice totals. All money values are whole currency units.
type Invoice struct {
	Lines    []InvoiceLine   `json:"lines"`
	Subtotal int64           `json:"subtotal"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Tax      int64           `json:"tax"`
	Total    int64           `json:"total"`
}

// ComputeInvoice turns grouped durations into invoice lines. Each line is
// floored to the currency unit before summing; tax is floored on the
// subtotal. Line order follows groups.
func ComputeInvoice(groups []AggregateGroup, rates map[string]decimal.Decimal, taxRate decimal.Decimal) (Invoice, error) {
	if taxRate.IsNegative() {
		return Invoice{}, fmt.Errorf("tax rate %s: %w", taxRate, ErrNegativeRate)
	}

	inv := Invoice{Lines: make([]InvoiceLine, 0, len(groups)), TaxRate: taxRate}
	for _, g := range groups {
		rate, ok := rates[g.ID]
		if !ok {
			return Invoice{}, &MissingRateError{GroupID: g.ID}
		}
		if rate.IsNegative() {
			return Invoice{}, fmt.Errorf("group %q rate %s: %w", g.ID, rate, ErrNegativeRate)
		}
		line := InvoiceLine{
			GroupID: g.ID,
			Label:   g.Label,
			Seconds: g.TotalSeconds,
			Hours:   Hours(g.TotalSeconds),
			Rate:    rate,
			Amount:  LineAmount(g.TotalSeconds, rate),
		}
		inv.Lines = append(inv.Lines, line)
		inv.Subtotal += line.Amount
	}

	inv.Tax = decimal.NewFromInt(inv.Subtotal).Mul(taxRate).Floor().IntPart()
	inv.Total = inv.Subtotal + inv.Tax
	return inv, nil
}

// Hours converts seconds to hours.
func Hours(seconds int64) decimal.Decimal {
	return decimal.NewFromInt(seconds).Div(secondsPerHour)
}

// LineAmount is floor(seconds/3600 * rate), computed without an
// intermediate rounded hours value.
func LineAmount(seconds int64, rate decimal.Decimal) int64 {
	q, _ := decimal.NewFromInt(seconds).Mul(rate).QuoRem(secondsPerHour, 0)
	return q.IntPart()
}
