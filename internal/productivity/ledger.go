package productivity

import (
	"context"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// PriorExecutionSource answers "how much of this invoice was already executed
// in other submitted reports". Implemented by the pgx repository in
// production and by fakes in tests.
type PriorExecutionSource interface {
	SubmittedExecutionTotal(ctx context.Context, salesInvoiceID, excludeReportID int64) (float64, error)
}

// RateSource resolves configured commission rates from reference data.
// A nil result means no rate is configured for the entity.
type RateSource interface {
	SalesPersonCommissionRate(ctx context.Context, salesPersonID int64) (*float64, error)
	ShareholderCommissionPercentage(ctx context.Context, shareholderID int64) (*float64, error)
}

// LedgerValidator enforces the cross-document execution invariant: for any
// sales invoice the sum of execution percentages over all submitted reports,
// plus the rows of the report being validated, never exceeds 100%.
//
// Validate mutates the report in place, filling cumulative_execution,
// delivery_status, actual_executed_value and sales_person_commission.
type LedgerValidator struct {
	prior PriorExecutionSource
	rates RateSource
}

// NewLedgerValidator constructs a validator.
func NewLedgerValidator(prior PriorExecutionSource, rates RateSource) *LedgerValidator {
	return &LedgerValidator{prior: prior, rates: rates}
}

// Validate processes entries in row order. Each distinct invoice is queried
// once for its prior submitted total; a running per-invoice total then
// accumulates within the document, so multiple rows for the same invoice see
// each other.
func (v *LedgerValidator) Validate(ctx context.Context, report *ProductivityReport) error {
	if len(report.Entries) == 0 {
		return nil
	}

	running := make(map[int64]float64)
	for _, invoiceID := range report.InvoiceIDs() {
		total, err := v.prior.SubmittedExecutionTotal(ctx, invoiceID, report.ID)
		if err != nil {
			return fmt.Errorf("prior execution total for invoice %d: %w", invoiceID, err)
		}
		running[invoiceID] = total
	}

	for i := range report.Entries {
		entry := &report.Entries[i]

		if err := v.ensureSalesPersonCommission(ctx, i, entry); err != nil {
			return err
		}

		if entry.SalesInvoiceID == nil {
			continue
		}
		invoiceID := *entry.SalesInvoiceID

		if entry.ExecutionPercentage < 0 {
			return fmt.Errorf("row %d: %w (sales invoice %d)", i+1, ErrNegativePercentage, invoiceID)
		}

		postedSoFar := running[invoiceID]
		entry.CumulativeExecution = shared.Round2(postedSoFar)

		proposedTotal := postedSoFar + entry.ExecutionPercentage
		if shared.Round2(proposedTotal) > 100.00 {
			return fmt.Errorf("row %d: %w (sales invoice %d, proposed total %.2f%%)",
				i+1, ErrOverAllocation, invoiceID, proposedTotal)
		}

		entry.DeliveryStatus = DeliveryStatusFromCumulative(proposedTotal)

		if entry.ActualExecutedValue == 0 {
			entry.ActualExecutedValue = shared.Percentage(entry.InvoiceTotal, entry.ExecutionPercentage)
		}

		running[invoiceID] = proposedTotal
	}

	return nil
}

// ensureSalesPersonCommission fills the row's sales person commission from the
// configured rate. A manually supplied rate (> 0) is left untouched, so
// re-validation never clobbers an adjusted value.
func (v *LedgerValidator) ensureSalesPersonCommission(ctx context.Context, idx int, entry *ExecutionEntry) error {
	if entry.SalesPersonID <= 0 {
		return fmt.Errorf("row %d: %w", idx+1, ErrMissingSalesPerson)
	}
	if entry.SalesPersonCommission > 0 {
		return nil
	}

	rate, err := v.rates.SalesPersonCommissionRate(ctx, entry.SalesPersonID)
	if err != nil {
		return fmt.Errorf("row %d: lookup commission rate for sales person %d: %w", idx+1, entry.SalesPersonID, err)
	}
	if rate == nil {
		return fmt.Errorf("row %d: %w (sales person %d)", idx+1, ErrMissingCommissionRate, entry.SalesPersonID)
	}
	entry.SalesPersonCommission = *rate
	return nil
}
