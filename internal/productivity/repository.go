package productivity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidStatus = errors.New("invalid status transition")
	ErrAlreadyExists = errors.New("record already exists")
)

// Repository provides PostgreSQL backed persistence for productivity reports.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const reportColumns = `
	id, doc_number, company_id, report_month, status,
	total_commission_percentage, total_commission_amount,
	created_by, created_at, updated_at, submitted_at, cancelled_at`

// GetReport loads a report with its entries and commission breakdown.
func (r *Repository) GetReport(ctx context.Context, id int64) (*ProductivityReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM productivity_reports WHERE id = $1`, reportColumns)
	report, err := scanReport(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	entries, err := r.reportEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	report.Entries = entries

	breakdown, err := r.reportBreakdown(ctx, id)
	if err != nil {
		return nil, err
	}
	report.Breakdown = breakdown

	return report, nil
}

// FindReportByMonth finds the report for a company and calendar month, if any.
func (r *Repository) FindReportByMonth(ctx context.Context, companyID int64, month time.Time) (*ProductivityReport, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM productivity_reports
		WHERE company_id = $1 AND report_month = $2 AND status <> 'CANCELLED'`, reportColumns)
	return scanReport(r.pool.QueryRow(ctx, query, companyID, month))
}

// ListReports returns reports without child rows, newest month first.
func (r *Repository) ListReports(ctx context.Context, req ListReportsRequest) ([]ProductivityReport, int, error) {
	conditions := []string{"company_id = $1"}
	args := []interface{}{req.CompanyID}
	argPos := 2

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.MonthFrom != nil {
		conditions = append(conditions, fmt.Sprintf("report_month >= $%d", argPos))
		args = append(args, *req.MonthFrom)
		argPos++
	}
	if req.MonthTo != nil {
		conditions = append(conditions, fmt.Sprintf("report_month <= $%d", argPos))
		args = append(args, *req.MonthTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM productivity_reports %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s FROM productivity_reports
		%s
		ORDER BY report_month DESC, id DESC
		LIMIT $%d OFFSET $%d`, reportColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reports []ProductivityReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, *report)
	}
	return reports, total, rows.Err()
}

// SubmittedExecutionTotal sums execution percentages recorded for the invoice
// across all submitted reports, excluding one report (the document being
// validated).
func (r *Repository) SubmittedExecutionTotal(ctx context.Context, salesInvoiceID, excludeReportID int64) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(e.execution_percentage), 0)
		FROM execution_entries e
		JOIN productivity_reports p ON p.id = e.report_id
		WHERE e.sales_invoice_id = $1
		  AND p.status = 'SUBMITTED'
		  AND p.id <> $2`
	var total float64
	if err := r.pool.QueryRow(ctx, query, salesInvoiceID, excludeReportID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *Repository) reportEntries(ctx context.Context, reportID int64) ([]ExecutionEntry, error) {
	const query = `
		SELECT id, report_id, line_order, sales_invoice_id, sales_person_id,
		       execution_percentage, cumulative_execution, actual_executed_value,
		       invoice_total, delivery_status, sales_person_commission
		FROM execution_entries
		WHERE report_id = $1
		ORDER BY line_order`
	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ExecutionEntry
	for rows.Next() {
		var e ExecutionEntry
		if err := rows.Scan(
			&e.ID, &e.ReportID, &e.LineOrder, &e.SalesInvoiceID, &e.SalesPersonID,
			&e.ExecutionPercentage, &e.CumulativeExecution, &e.ActualExecutedValue,
			&e.InvoiceTotal, &e.DeliveryStatus, &e.SalesPersonCommission,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) reportBreakdown(ctx context.Context, reportID int64) ([]CommissionBreakdownEntry, error) {
	const query = `
		SELECT id, report_id, shareholder_id, commission_percentage, commission_amount
		FROM commission_breakdown_entries
		WHERE report_id = $1
		ORDER BY id`
	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breakdown []CommissionBreakdownEntry
	for rows.Next() {
		var b CommissionBreakdownEntry
		if err := rows.Scan(&b.ID, &b.ReportID, &b.ShareholderID, &b.CommissionPercentage, &b.CommissionAmount); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, b)
	}
	return breakdown, rows.Err()
}

// ============================================================================
// TX OPERATIONS
// ============================================================================

// GenerateDocNumber produces the next sequential document number for the
// company and year, e.g. MPR-2026-0007. It runs inside the save transaction;
// a concurrent create that wins the same number trips the doc_number unique
// constraint and surfaces as ErrAlreadyExists from CreateReport.
func (t *txRepo) GenerateDocNumber(ctx context.Context, companyID int64, month time.Time) (string, error) {
	const query = `
		SELECT COUNT(*) FROM productivity_reports
		WHERE company_id = $1 AND EXTRACT(YEAR FROM report_month) = $2`
	var count int
	if err := t.tx.QueryRow(ctx, query, companyID, month.Year()).Scan(&count); err != nil {
		return "", err
	}
	return fmt.Sprintf("MPR-%d-%04d", month.Year(), count+1), nil
}

func (t *txRepo) CreateReport(ctx context.Context, report ProductivityReport) (int64, error) {
	const query = `
		INSERT INTO productivity_reports (
			doc_number, company_id, report_month, status,
			total_commission_percentage, total_commission_amount,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		report.DocNumber, report.CompanyID, report.ReportMonth, report.Status,
		report.TotalCommissionPercentage, report.TotalCommissionAmount,
		report.CreatedBy,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: %s", ErrAlreadyExists, pgErr.ConstraintName)
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) UpdateReport(ctx context.Context, report ProductivityReport) error {
	const query = `
		UPDATE productivity_reports
		SET report_month = $2,
		    total_commission_percentage = $3,
		    total_commission_amount = $4,
		    updated_at = NOW()
		WHERE id = $1`
	_, err := t.tx.Exec(ctx, query,
		report.ID, report.ReportMonth,
		report.TotalCommissionPercentage, report.TotalCommissionAmount,
	)
	return err
}

func (t *txRepo) ReplaceEntries(ctx context.Context, reportID int64, entries []ExecutionEntry) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM execution_entries WHERE report_id = $1`, reportID); err != nil {
		return err
	}
	const insert = `
		INSERT INTO execution_entries (
			report_id, line_order, sales_invoice_id, sales_person_id,
			execution_percentage, cumulative_execution, actual_executed_value,
			invoice_total, delivery_status, sales_person_commission
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, e := range entries {
		if _, err := t.tx.Exec(ctx, insert,
			reportID, e.LineOrder, e.SalesInvoiceID, e.SalesPersonID,
			e.ExecutionPercentage, e.CumulativeExecution, e.ActualExecutedValue,
			e.InvoiceTotal, e.DeliveryStatus, e.SalesPersonCommission,
		); err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepo) ReplaceBreakdown(ctx context.Context, reportID int64, rows []CommissionBreakdownEntry) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM commission_breakdown_entries WHERE report_id = $1`, reportID); err != nil {
		return err
	}
	const insert = `
		INSERT INTO commission_breakdown_entries (
			report_id, shareholder_id, commission_percentage, commission_amount
		) VALUES ($1, $2, $3, $4)`
	for _, b := range rows {
		if _, err := t.tx.Exec(ctx, insert,
			reportID, b.ShareholderID, b.CommissionPercentage, b.CommissionAmount,
		); err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepo) UpdateReportStatus(ctx context.Context, reportID int64, status ReportStatus, at time.Time) error {
	var query string
	switch status {
	case ReportStatusSubmitted:
		query = `UPDATE productivity_reports SET status = $2, submitted_at = $3, updated_at = NOW() WHERE id = $1`
	case ReportStatusCancelled:
		query = `UPDATE productivity_reports SET status = $2, cancelled_at = $3, updated_at = NOW() WHERE id = $1`
	default:
		query = `UPDATE productivity_reports SET status = $2, updated_at = NOW() WHERE id = $1`
		_, err := t.tx.Exec(ctx, query, reportID, status)
		return err
	}
	_, err := t.tx.Exec(ctx, query, reportID, status, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*ProductivityReport, error) {
	var report ProductivityReport
	err := row.Scan(
		&report.ID, &report.DocNumber, &report.CompanyID, &report.ReportMonth, &report.Status,
		&report.TotalCommissionPercentage, &report.TotalCommissionAmount,
		&report.CreatedBy, &report.CreatedAt, &report.UpdatedAt,
		&report.SubmittedAt, &report.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}
