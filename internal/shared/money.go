package shared

import "github.com/shopspring/decimal"

// Round2 rounds a monetary or percentage value to 2 decimal places.
// Threshold comparisons in the execution ledger round first so that
// accumulated float error never trips the 100% ceiling spuriously.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Percentage applies pct (0..100) to base and rounds to 2 decimal places.
func Percentage(base, pct float64) float64 {
	b := decimal.NewFromFloat(base)
	p := decimal.NewFromFloat(pct)
	f, _ := b.Mul(p).Div(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}
