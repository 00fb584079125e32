package productivity

import (
	"errors"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Validation failures surfaced to the caller. All of them abort the save
// atomically; nothing is persisted when any row fails.
var (
	ErrNegativePercentage    = errors.New("execution percentage cannot be negative")
	ErrOverAllocation        = errors.New("total execution cannot exceed 100%")
	ErrMissingSalesPerson    = errors.New("sales person is mandatory")
	ErrMissingCommissionRate = errors.New("sales person has no commission rate configured")
)

// ============================================================================
// PRODUCTIVITY REPORT
// ============================================================================

type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "DRAFT"
	ReportStatusSubmitted ReportStatus = "SUBMITTED"
	ReportStatusCancelled ReportStatus = "CANCELLED"
)

// DeliveryStatus classifies how far an invoice has been executed after the
// current row is taken into account.
type DeliveryStatus string

const (
	DeliveryStatusDelivered    DeliveryStatus = "Delivered"
	DeliveryStatusNotStarted   DeliveryStatus = "Not Started Yet"
	DeliveryStatusNotDelivered DeliveryStatus = "Not Delivered"
)

// DeliveryStatusFromCumulative maps a cumulative execution percentage to its
// delivery status. Values are rounded to 2 decimals first so 99.999 counts
// as delivered and -0.004 as not started.
func DeliveryStatusFromCumulative(cumulative float64) DeliveryStatus {
	rounded := shared.Round2(cumulative)
	switch {
	case rounded >= 100.00:
		return DeliveryStatusDelivered
	case rounded <= 0.00:
		return DeliveryStatusNotStarted
	default:
		return DeliveryStatusNotDelivered
	}
}

// ProductivityReport is the parent document, one per company per report month.
// Only SUBMITTED reports count toward cross-document execution aggregates.
type ProductivityReport struct {
	ID                        int64                      `json:"id" db:"id"`
	DocNumber                 string                     `json:"doc_number" db:"doc_number"`
	CompanyID                 int64                      `json:"company_id" db:"company_id"`
	ReportMonth               time.Time                  `json:"report_month" db:"report_month"`
	Status                    ReportStatus               `json:"status" db:"status"`
	TotalCommissionPercentage float64                    `json:"total_commission_percentage" db:"total_commission_percentage"`
	TotalCommissionAmount     float64                    `json:"total_commission_amount" db:"total_commission_amount"`
	CreatedBy                 int64                      `json:"created_by" db:"created_by"`
	CreatedAt                 time.Time                  `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time                  `json:"updated_at" db:"updated_at"`
	SubmittedAt               *time.Time                 `json:"submitted_at,omitempty" db:"submitted_at"`
	CancelledAt               *time.Time                 `json:"cancelled_at,omitempty" db:"cancelled_at"`
	Entries                   []ExecutionEntry           `json:"entries,omitempty" db:"-"`
	Breakdown                 []CommissionBreakdownEntry `json:"breakdown,omitempty" db:"-"`
}

// CommissionBase is the sum of actual executed value across entries, the base
// amount for shareholder commissions.
func (r *ProductivityReport) CommissionBase() float64 {
	var total float64
	for _, entry := range r.Entries {
		total += entry.ActualExecutedValue
	}
	return shared.Round2(total)
}

// InvoiceIDs returns the distinct sales invoices referenced by the report's
// entries, in first-seen order.
func (r *ProductivityReport) InvoiceIDs() []int64 {
	seen := make(map[int64]struct{}, len(r.Entries))
	ids := make([]int64, 0, len(r.Entries))
	for _, entry := range r.Entries {
		if entry.SalesInvoiceID == nil {
			continue
		}
		id := *entry.SalesInvoiceID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// ExecutionEntry is an ordered child row recording the percentage of an
// invoice executed in the report's period. Rows without an invoice skip the
// ledger math but still require a sales person.
type ExecutionEntry struct {
	ID                    int64          `json:"id" db:"id"`
	ReportID              int64          `json:"report_id" db:"report_id"`
	LineOrder             int            `json:"line_order" db:"line_order"`
	SalesInvoiceID        *int64         `json:"sales_invoice_id,omitempty" db:"sales_invoice_id"`
	SalesPersonID         int64          `json:"sales_person_id" db:"sales_person_id"`
	ExecutionPercentage   float64        `json:"execution_percentage" db:"execution_percentage"`
	CumulativeExecution   float64        `json:"cumulative_execution" db:"cumulative_execution"`
	ActualExecutedValue   float64        `json:"actual_executed_value" db:"actual_executed_value"`
	InvoiceTotal          float64        `json:"invoice_total" db:"invoice_total"`
	DeliveryStatus        DeliveryStatus `json:"delivery_status" db:"delivery_status"`
	SalesPersonCommission float64        `json:"sales_person_commission" db:"sales_person_commission"`
}

// CommissionBreakdownEntry allocates a slice of the document's commission base
// to one shareholder.
type CommissionBreakdownEntry struct {
	ID                   int64   `json:"id" db:"id"`
	ReportID             int64   `json:"report_id" db:"report_id"`
	ShareholderID        int64   `json:"shareholder_id" db:"shareholder_id"`
	CommissionPercentage float64 `json:"commission_percentage" db:"commission_percentage"`
	CommissionAmount     float64 `json:"commission_amount" db:"commission_amount"`
}

// ============================================================================
// REQUESTS
// ============================================================================

type ExecutionEntryRequest struct {
	SalesInvoiceID        *int64  `json:"sales_invoice_id,omitempty"`
	SalesPersonID         int64   `json:"sales_person_id" validate:"gte=0"`
	ExecutionPercentage   float64 `json:"execution_percentage"`
	ActualExecutedValue   float64 `json:"actual_executed_value" validate:"gte=0"`
	InvoiceTotal          float64 `json:"invoice_total" validate:"gte=0"`
	SalesPersonCommission float64 `json:"sales_person_commission" validate:"gte=0"`
}

type CommissionBreakdownRequest struct {
	ShareholderID        int64   `json:"shareholder_id" validate:"required,gt=0"`
	CommissionPercentage float64 `json:"commission_percentage" validate:"gte=0,lte=100"`
}

type CreateReportRequest struct {
	CompanyID   int64                        `json:"company_id" validate:"required,gt=0"`
	ReportMonth time.Time                    `json:"report_month" validate:"required"`
	Entries     []ExecutionEntryRequest      `json:"entries" validate:"required,min=1,dive"`
	Breakdown   []CommissionBreakdownRequest `json:"breakdown,omitempty" validate:"omitempty,dive"`
}

type UpdateReportRequest struct {
	ReportMonth *time.Time                    `json:"report_month,omitempty"`
	Entries     *[]ExecutionEntryRequest      `json:"entries,omitempty" validate:"omitempty,min=1,dive"`
	Breakdown   *[]CommissionBreakdownRequest `json:"breakdown,omitempty" validate:"omitempty,dive"`
}

type ListReportsRequest struct {
	CompanyID int64         `json:"company_id" validate:"required,gt=0"`
	Status    *ReportStatus `json:"status,omitempty"`
	MonthFrom *time.Time    `json:"month_from,omitempty"`
	MonthTo   *time.Time    `json:"month_to,omitempty"`
	Limit     int           `json:"limit" validate:"gte=0,lte=1000"`
	Offset    int           `json:"offset" validate:"gte=0"`
}
