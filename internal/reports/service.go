package reports

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// yearlyThreshold is the range length beyond which the period summary groups
// by year instead of month.
const yearlyThreshold = 365 * 24 * time.Hour

// DataSource is the read surface the report builders depend on. The pgx
// implementation lives in repo.sql.go; tests supply fakes.
type DataSource interface {
	InvoiceProgressRows(ctx context.Context, companyID, salesInvoiceID int64, from, to time.Time) ([]InvoiceProgressRow, error)
	MonthlyDetailRows(ctx context.Context, companyID int64, from, to time.Time) ([]detailRow, error)
	PeriodAggregates(ctx context.Context, companyID int64, from, to time.Time) ([]periodAggregate, error)
	PurchaseTotals(ctx context.Context, companyID int64, from, to time.Time) (map[time.Time]float64, error)
	OtherExpenseTotals(ctx context.Context, companyID int64, from, to time.Time) (map[time.Time]float64, error)
}

// Service builds productivity report views from submitted documents.
type Service struct {
	logger *slog.Logger
	data   DataSource
	cache  *Cache
}

// NewService constructs the report service. cache may be nil.
func NewService(logger *slog.Logger, data DataSource, cache *Cache) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, data: data, cache: cache}
}

// InvoiceProgress builds the chronological execution report for one invoice.
// Incomplete filters, including a missing sales invoice, yield warnings and
// an empty view.
func (s *Service) InvoiceProgress(ctx context.Context, f Filters) (InvoiceProgressView, []string, error) {
	view := InvoiceProgressView{Columns: invoiceProgressColumns()}
	warnings := missingFilterWarnings(f)
	if f.SalesInvoiceID <= 0 {
		warnings = append(warnings, "sales invoice filter is required, showing no data")
	}
	if len(warnings) > 0 {
		return view, warnings, nil
	}

	key, err := s.cache.BuildKey(ctx, "reports", "progress", cacheKeySuffix(f))
	if err != nil {
		return view, nil, err
	}
	err = s.cache.FetchJSON(ctx, key, &view, func(ctx context.Context) (interface{}, error) {
		return s.buildInvoiceProgress(ctx, f)
	})
	if err != nil {
		return InvoiceProgressView{Columns: invoiceProgressColumns()}, nil, err
	}
	return view, nil, nil
}

func (s *Service) buildInvoiceProgress(ctx context.Context, f Filters) (InvoiceProgressView, error) {
	view := InvoiceProgressView{Columns: invoiceProgressColumns()}

	rows, err := s.data.InvoiceProgressRows(ctx, f.CompanyID, f.SalesInvoiceID, *f.From, *f.To)
	if err != nil {
		return view, fmt.Errorf("load invoice progress: %w", err)
	}
	view.Rows = rows
	view.Chart = invoiceProgressChart(rows)
	return view, nil
}

// MonthlyDetail builds the per-entry commission report. Shareholder
// commission is allocated to entries proportionally to their executed value
// within the month; a month with zero executed value allocates nothing.
func (s *Service) MonthlyDetail(ctx context.Context, f Filters) (MonthlyDetailView, []string, error) {
	view := MonthlyDetailView{Columns: monthlyDetailColumns()}
	if warnings := missingFilterWarnings(f); len(warnings) > 0 {
		return view, warnings, nil
	}

	key, err := s.cache.BuildKey(ctx, "reports", "detail", cacheKeySuffix(f))
	if err != nil {
		return view, nil, err
	}
	err = s.cache.FetchJSON(ctx, key, &view, func(ctx context.Context) (interface{}, error) {
		return s.buildMonthlyDetail(ctx, f)
	})
	if err != nil {
		return MonthlyDetailView{Columns: monthlyDetailColumns()}, nil, err
	}
	return view, nil, nil
}

func (s *Service) buildMonthlyDetail(ctx context.Context, f Filters) (MonthlyDetailView, error) {
	view := MonthlyDetailView{Columns: monthlyDetailColumns()}

	raw, err := s.data.MonthlyDetailRows(ctx, f.CompanyID, *f.From, *f.To)
	if err != nil {
		return view, fmt.Errorf("load monthly detail: %w", err)
	}

	monthTotals := make(map[time.Time]float64)
	for _, row := range raw {
		monthTotals[row.ReportMonth] += row.ExecutedValue
	}

	for _, row := range raw {
		// The rate stored on the entry wins; the master rate only fills in
		// when the entry carries none.
		rate := row.EntryCommission
		if rate == 0 {
			rate = row.MasterRate
		}
		detail := MonthlyDetailRow{
			ReportMonth:           row.ReportMonth,
			DocNumber:             row.DocNumber,
			SalesInvoiceID:        row.SalesInvoiceID,
			Customer:              row.Customer,
			SalesPersonID:         row.SalesPersonID,
			SalesPersonName:       row.SalesPersonName,
			CommissionRate:        rate,
			ExecutedValue:         row.ExecutedValue,
			ExecutionPercentage:   row.ExecutionPercentage,
			CumulativeExecution:   row.CumulativeExecution,
			SalesPersonCommission: shared.Percentage(row.ExecutedValue, rate),
		}
		if total := monthTotals[row.ReportMonth]; total > 0 {
			detail.ShareholderCommission = shared.Round2(row.ReportCommissionTotal * row.ExecutedValue / total)
		}
		view.Rows = append(view.Rows, detail)
	}
	return view, nil
}

// PeriodSummary builds the profitability rollup. Ranges longer than a year
// group rows by calendar year, shorter ranges by month.
func (s *Service) PeriodSummary(ctx context.Context, f Filters) (PeriodSummaryView, []string, error) {
	view := PeriodSummaryView{Columns: periodSummaryColumns()}
	if warnings := missingFilterWarnings(f); len(warnings) > 0 {
		return view, warnings, nil
	}

	key, err := s.cache.BuildKey(ctx, "reports", "summary", cacheKeySuffix(f))
	if err != nil {
		return view, nil, err
	}
	err = s.cache.FetchJSON(ctx, key, &view, func(ctx context.Context) (interface{}, error) {
		return s.buildPeriodSummary(ctx, f)
	})
	if err != nil {
		return PeriodSummaryView{Columns: periodSummaryColumns()}, nil, err
	}
	return view, nil, nil
}

func (s *Service) buildPeriodSummary(ctx context.Context, f Filters) (PeriodSummaryView, error) {
	view := PeriodSummaryView{Columns: periodSummaryColumns()}

	var (
		aggregates []periodAggregate
		purchases  map[time.Time]float64
		expenses   map[time.Time]float64
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		aggregates, err = s.data.PeriodAggregates(groupCtx, f.CompanyID, *f.From, *f.To)
		return err
	})
	group.Go(func() error {
		var err error
		purchases, err = s.data.PurchaseTotals(groupCtx, f.CompanyID, *f.From, *f.To)
		return err
	})
	group.Go(func() error {
		var err error
		expenses, err = s.data.OtherExpenseTotals(groupCtx, f.CompanyID, *f.From, *f.To)
		return err
	})
	if err := group.Wait(); err != nil {
		return view, fmt.Errorf("load period summary: %w", err)
	}

	yearly := f.Span() > yearlyThreshold
	buckets := make(map[string]*PeriodSummaryRow)
	keys := func(t time.Time) string {
		if yearly {
			return t.Format("2006")
		}
		return t.Format("2006-01")
	}

	add := func(period string) *PeriodSummaryRow {
		if row, ok := buckets[period]; ok {
			return row
		}
		row := &PeriodSummaryRow{Period: period}
		buckets[period] = row
		return row
	}

	for _, agg := range aggregates {
		row := add(keys(agg.Month))
		row.ExecutedValue += agg.ExecutedValue
		row.SalesCommission += agg.SalesCommission
		row.ShareholderCommission += agg.ShareholderCommission
	}
	for month, total := range purchases {
		add(keys(month)).Purchases += total
	}
	for month, total := range expenses {
		add(keys(month)).OtherExpenses += total
	}

	periods := make([]string, 0, len(buckets))
	for period := range buckets {
		periods = append(periods, period)
	}
	sort.Strings(periods)

	for _, period := range periods {
		row := buckets[period]
		row.ExecutedValue = shared.Round2(row.ExecutedValue)
		row.Purchases = shared.Round2(row.Purchases)
		row.OtherExpenses = shared.Round2(row.OtherExpenses)
		row.SalesCommission = shared.Round2(row.SalesCommission)
		row.ShareholderCommission = shared.Round2(row.ShareholderCommission)
		row.Profit = shared.Round2(row.ExecutedValue - row.Purchases - row.OtherExpenses - row.SalesCommission - row.ShareholderCommission)
		view.Rows = append(view.Rows, *row)
	}

	view.Chart = periodSummaryChart(view.Rows)
	view.Cards = periodSummaryCards(view.Rows)
	return view, nil
}

func missingFilterWarnings(f Filters) []string {
	var warnings []string
	if f.CompanyID <= 0 {
		warnings = append(warnings, "company filter is required, showing no data")
	}
	if f.From == nil {
		warnings = append(warnings, "from date filter is required, showing no data")
	}
	if f.To == nil {
		warnings = append(warnings, "to date filter is required, showing no data")
	}
	return warnings
}

func cacheKeySuffix(f Filters) string {
	return fmt.Sprintf("%d:%d:%s:%s", f.CompanyID, f.SalesInvoiceID, f.From.Format("2006-01-02"), f.To.Format("2006-01-02"))
}

func invoiceProgressColumns() []Column {
	return []Column{
		{Key: "report_month", Label: "Month", Type: "date"},
		{Key: "doc_number", Label: "Document", Type: "text"},
		{Key: "sales_invoice_id", Label: "Sales Invoice", Type: "link"},
		{Key: "invoice_total", Label: "Invoice Total", Type: "currency"},
		{Key: "execution_percentage", Label: "Executed %", Type: "percent"},
		{Key: "cumulative_execution", Label: "Prior %", Type: "percent"},
		{Key: "actual_executed_value", Label: "Executed Value", Type: "currency"},
		{Key: "delivery_status", Label: "Delivery Status", Type: "text"},
	}
}

func monthlyDetailColumns() []Column {
	return []Column{
		{Key: "report_month", Label: "Month", Type: "date"},
		{Key: "doc_number", Label: "Document", Type: "text"},
		{Key: "sales_invoice_id", Label: "Sales Invoice", Type: "link"},
		{Key: "customer", Label: "Customer", Type: "text"},
		{Key: "sales_person_name", Label: "Sales Person", Type: "text"},
		{Key: "commission_rate", Label: "Rate %", Type: "percent"},
		{Key: "executed_value", Label: "Executed Value", Type: "currency"},
		{Key: "execution_percentage", Label: "Execution %", Type: "percent"},
		{Key: "cumulative_execution", Label: "Cumulative %", Type: "percent"},
		{Key: "sales_person_commission", Label: "Sales Commission", Type: "currency"},
		{Key: "shareholder_commission", Label: "Shareholder Commission", Type: "currency"},
	}
}

func periodSummaryColumns() []Column {
	return []Column{
		{Key: "period", Label: "Period", Type: "text"},
		{Key: "executed_value", Label: "Executed Value", Type: "currency"},
		{Key: "purchases", Label: "Purchases", Type: "currency"},
		{Key: "other_expenses", Label: "Other Expenses", Type: "currency"},
		{Key: "sales_commission", Label: "Sales Commission", Type: "currency"},
		{Key: "shareholder_commission", Label: "Shareholder Commission", Type: "currency"},
		{Key: "profit", Label: "Profit", Type: "currency"},
	}
}

// invoiceProgressChart plots the period and cumulative execution series per
// month for the selected invoice.
func invoiceProgressChart(rows []InvoiceProgressRow) *Chart {
	if len(rows) == 0 {
		return nil
	}
	chart := &Chart{Type: "bar"}
	period := ChartDataset{Name: "Execution % This Period"}
	cumulative := ChartDataset{Name: "Cumulative Execution %"}
	for _, row := range rows {
		chart.Labels = append(chart.Labels, row.ReportMonth.Format("January 2006"))
		period.Values = append(period.Values, row.ExecutionPercentage)
		cumulative.Values = append(cumulative.Values, row.CumulativeExecution)
	}
	chart.Datasets = []ChartDataset{period, cumulative}
	return chart
}

func periodSummaryChart(rows []PeriodSummaryRow) *Chart {
	if len(rows) == 0 {
		return nil
	}
	chart := &Chart{Type: "bar"}
	executed := ChartDataset{Name: "Executed Value"}
	profit := ChartDataset{Name: "Profit or Loss"}
	salesComm := ChartDataset{Name: "Sales Person Commission"}
	shareholderComm := ChartDataset{Name: "Shareholder Commission"}
	for _, row := range rows {
		chart.Labels = append(chart.Labels, row.Period)
		executed.Values = append(executed.Values, row.ExecutedValue)
		profit.Values = append(profit.Values, row.Profit)
		salesComm.Values = append(salesComm.Values, row.SalesCommission)
		shareholderComm.Values = append(shareholderComm.Values, row.ShareholderCommission)
	}
	chart.Datasets = []ChartDataset{executed, profit, salesComm, shareholderComm}
	return chart
}

func periodSummaryCards(rows []PeriodSummaryRow) []SummaryCard {
	if len(rows) == 0 {
		return nil
	}
	var executed, salesComm, shareholderComm, profit float64
	for _, row := range rows {
		executed += row.ExecutedValue
		salesComm += row.SalesCommission
		shareholderComm += row.ShareholderCommission
		profit += row.Profit
	}
	indicator := func(v float64) string {
		if v < 0 {
			return "red"
		}
		return "green"
	}
	return []SummaryCard{
		{Label: "Total Executed Value", Value: shared.Round2(executed), Indicator: indicator(executed)},
		{Label: "Total Sales Person Commission", Value: shared.Round2(salesComm), Indicator: indicator(salesComm)},
		{Label: "Total Shareholder Commission", Value: shared.Round2(shareholderComm), Indicator: indicator(shareholderComm)},
		{Label: "Total Profit / Loss", Value: shared.Round2(profit), Indicator: indicator(profit)},
	}
}
