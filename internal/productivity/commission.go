package productivity

import (
	"context"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// CommissionAllocator computes shareholder commission amounts from the
// commission breakdown table. It must run after the ledger validator so the
// commission base reflects any actual_executed_value the validator derived.
type CommissionAllocator struct {
	rates RateSource
}

// NewCommissionAllocator constructs an allocator.
func NewCommissionAllocator(rates RateSource) *CommissionAllocator {
	return &CommissionAllocator{rates: rates}
}

// Compute fills each breakdown row's commission amount and the document
// totals. Zero-value inputs yield zero outputs; an empty breakdown zeroes
// the totals. Percentages already set by the caller are preserved.
func (a *CommissionAllocator) Compute(ctx context.Context, report *ProductivityReport) error {
	if len(report.Breakdown) == 0 {
		report.TotalCommissionPercentage = 0
		report.TotalCommissionAmount = 0
		return nil
	}

	base := report.CommissionBase()

	var totalPct, totalAmt float64
	for i := range report.Breakdown {
		row := &report.Breakdown[i]

		if row.CommissionPercentage == 0 && row.ShareholderID > 0 {
			pct, err := a.rates.ShareholderCommissionPercentage(ctx, row.ShareholderID)
			if err != nil {
				return fmt.Errorf("lookup commission percentage for shareholder %d: %w", row.ShareholderID, err)
			}
			if pct != nil {
				row.CommissionPercentage = *pct
			}
		}

		row.CommissionAmount = shared.Percentage(base, row.CommissionPercentage)
		totalPct += row.CommissionPercentage
		totalAmt += row.CommissionAmount
	}

	report.TotalCommissionPercentage = shared.Round2(totalPct)
	report.TotalCommissionAmount = shared.Round2(totalAmt)
	return nil
}
