package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads submitted productivity data for report building. Only
// SUBMITTED documents are visible to reports.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InvoiceProgressRows returns the execution entries recorded against one
// invoice, in chronological order.
func (r *Repository) InvoiceProgressRows(ctx context.Context, companyID, salesInvoiceID int64, from, to time.Time) ([]InvoiceProgressRow, error) {
	const query = `
		SELECT p.report_month, p.doc_number, e.sales_invoice_id, e.invoice_total,
		       e.execution_percentage, e.cumulative_execution, e.actual_executed_value,
		       e.delivery_status
		FROM execution_entries e
		JOIN productivity_reports p ON p.id = e.report_id
		WHERE p.company_id = $1
		  AND p.status = 'SUBMITTED'
		  AND e.sales_invoice_id = $2
		  AND p.report_month BETWEEN $3 AND $4
		ORDER BY p.report_month, e.line_order`
	rows, err := r.pool.Query(ctx, query, companyID, salesInvoiceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []InvoiceProgressRow
	for rows.Next() {
		var row InvoiceProgressRow
		if err := rows.Scan(
			&row.ReportMonth, &row.DocNumber, &row.SalesInvoiceID, &row.InvoiceTotal,
			&row.ExecutionPercentage, &row.CumulativeExecution, &row.ActualExecutedValue,
			&row.DeliveryStatus,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// MonthlyDetailRows returns all entries in the range with sales person data
// and the owning report's shareholder commission total, used by the service
// for proportional allocation.
func (r *Repository) MonthlyDetailRows(ctx context.Context, companyID int64, from, to time.Time) ([]detailRow, error) {
	const query = `
		SELECT p.report_month, p.doc_number, e.sales_invoice_id,
		       COALESCE(si.customer, ''), e.sales_person_id,
		       COALESCE(sp.name, ''), COALESCE(sp.commission_rate, 0),
		       e.actual_executed_value, e.execution_percentage,
		       e.cumulative_execution, e.sales_person_commission,
		       p.total_commission_amount
		FROM execution_entries e
		JOIN productivity_reports p ON p.id = e.report_id
		LEFT JOIN sales_invoices si ON si.id = e.sales_invoice_id
		LEFT JOIN sales_persons sp ON sp.id = e.sales_person_id
		WHERE p.company_id = $1
		  AND p.status = 'SUBMITTED'
		  AND p.report_month BETWEEN $2 AND $3
		ORDER BY p.report_month, e.line_order`
	rows, err := r.pool.Query(ctx, query, companyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []detailRow
	for rows.Next() {
		var row detailRow
		if err := rows.Scan(
			&row.ReportMonth, &row.DocNumber, &row.SalesInvoiceID,
			&row.Customer, &row.SalesPersonID,
			&row.SalesPersonName, &row.MasterRate,
			&row.ExecutedValue, &row.ExecutionPercentage,
			&row.CumulativeExecution, &row.EntryCommission,
			&row.ReportCommissionTotal,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// PeriodAggregates returns per-month executed value, sales commission and
// shareholder commission from submitted reports.
func (r *Repository) PeriodAggregates(ctx context.Context, companyID int64, from, to time.Time) ([]periodAggregate, error) {
	const query = `
		SELECT p.report_month,
		       COALESCE(SUM(e.actual_executed_value), 0),
		       COALESCE(SUM(e.actual_executed_value * COALESCE(NULLIF(e.sales_person_commission, 0), sp.commission_rate, 0) / 100), 0),
		       MAX(p.total_commission_amount)
		FROM productivity_reports p
		LEFT JOIN execution_entries e ON e.report_id = p.id
		LEFT JOIN sales_persons sp ON sp.id = e.sales_person_id
		WHERE p.company_id = $1
		  AND p.status = 'SUBMITTED'
		  AND p.report_month BETWEEN $2 AND $3
		GROUP BY p.report_month
		ORDER BY p.report_month`
	rows, err := r.pool.Query(ctx, query, companyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []periodAggregate
	for rows.Next() {
		var agg periodAggregate
		if err := rows.Scan(&agg.Month, &agg.ExecutedValue, &agg.SalesCommission, &agg.ShareholderCommission); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	return result, rows.Err()
}

// PurchaseTotals sums submitted purchase invoices per calendar month.
func (r *Repository) PurchaseTotals(ctx context.Context, companyID int64, from, to time.Time) (map[time.Time]float64, error) {
	const query = `
		SELECT date_trunc('month', invoice_date)::date, COALESCE(SUM(grand_total), 0)
		FROM purchase_invoices
		WHERE company_id = $1
		  AND status = 'SUBMITTED'
		  AND invoice_date BETWEEN $2 AND $3
		GROUP BY 1`
	return r.monthTotals(ctx, query, companyID, from, to)
}

// OtherExpenseTotals sums journal-line debits posted to expense accounts
// (account code groups 62 through 69) per calendar month.
func (r *Repository) OtherExpenseTotals(ctx context.Context, companyID int64, from, to time.Time) (map[time.Time]float64, error) {
	const query = `
		SELECT date_trunc('month', posting_date)::date, COALESCE(SUM(debit), 0)
		FROM journal_lines
		WHERE company_id = $1
		  AND LEFT(account_code, 2) BETWEEN '62' AND '69'
		  AND posting_date BETWEEN $2 AND $3
		GROUP BY 1`
	return r.monthTotals(ctx, query, companyID, from, to)
}

func (r *Repository) monthTotals(ctx context.Context, query string, companyID int64, from, to time.Time) (map[time.Time]float64, error) {
	rows, err := r.pool.Query(ctx, query, companyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[time.Time]float64)
	for rows.Next() {
		var month time.Time
		var total float64
		if err := rows.Scan(&month, &total); err != nil {
			return nil, err
		}
		totals[month.UTC()] = total
	}
	return totals, rows.Err()
}

// detailRow is the raw monthly detail record before shareholder allocation.
// EntryCommission is the rate stored on the entry; MasterRate is the sales
// person's configured rate, used when the entry carries none.
type detailRow struct {
	ReportMonth           time.Time
	DocNumber             string
	SalesInvoiceID        *int64
	Customer              string
	SalesPersonID         int64
	SalesPersonName       string
	MasterRate            float64
	ExecutedValue         float64
	ExecutionPercentage   float64
	CumulativeExecution   float64
	EntryCommission       float64
	ReportCommissionTotal float64
}
