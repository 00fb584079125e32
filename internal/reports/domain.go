package reports

import "time"

// Filters narrows report queries. CompanyID and the date range are required
// by every view, and the invoice progress view additionally requires
// SalesInvoiceID; missing values produce warnings and empty results rather
// than errors so the UI can render a blank report.
type Filters struct {
	CompanyID      int64
	SalesInvoiceID int64
	From           *time.Time
	To             *time.Time
}

// Span returns the inclusive length of the filter range.
func (f Filters) Span() time.Duration {
	if f.From == nil || f.To == nil {
		return 0
	}
	return f.To.Sub(*f.From)
}

// Column describes a report column for generic renderers.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// ChartDataset is one series of a chart.
type ChartDataset struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Chart is a renderer-agnostic chart payload.
type Chart struct {
	Type     string         `json:"type"`
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// SummaryCard is a headline figure shown above a report.
type SummaryCard struct {
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Indicator string  `json:"indicator"`
}

// InvoiceProgressRow tracks one submitted execution entry in invoice order.
type InvoiceProgressRow struct {
	ReportMonth         time.Time `json:"report_month"`
	DocNumber           string    `json:"doc_number"`
	SalesInvoiceID      int64     `json:"sales_invoice_id"`
	InvoiceTotal        float64   `json:"invoice_total"`
	ExecutionPercentage float64   `json:"execution_percentage"`
	CumulativeExecution float64   `json:"cumulative_execution"`
	ActualExecutedValue float64   `json:"actual_executed_value"`
	DeliveryStatus      string    `json:"delivery_status"`
}

// InvoiceProgressView is the chronological per-invoice progress report.
type InvoiceProgressView struct {
	Columns []Column             `json:"columns"`
	Rows    []InvoiceProgressRow `json:"rows"`
	Chart   *Chart               `json:"chart,omitempty"`
}

// MonthlyDetailRow is one execution entry enriched with commission figures.
type MonthlyDetailRow struct {
	ReportMonth           time.Time `json:"report_month"`
	DocNumber             string    `json:"doc_number"`
	SalesInvoiceID        *int64    `json:"sales_invoice_id,omitempty"`
	Customer              string    `json:"customer"`
	SalesPersonID         int64     `json:"sales_person_id"`
	SalesPersonName       string    `json:"sales_person_name"`
	CommissionRate        float64   `json:"commission_rate"`
	ExecutedValue         float64   `json:"executed_value"`
	ExecutionPercentage   float64   `json:"execution_percentage"`
	CumulativeExecution   float64   `json:"cumulative_execution"`
	SalesPersonCommission float64   `json:"sales_person_commission"`
	ShareholderCommission float64   `json:"shareholder_commission"`
}

// MonthlyDetailView lists every entry in the range with commissions.
type MonthlyDetailView struct {
	Columns []Column           `json:"columns"`
	Rows    []MonthlyDetailRow `json:"rows"`
}

// PeriodSummaryRow aggregates one period (month, or year on long ranges).
type PeriodSummaryRow struct {
	Period                string  `json:"period"`
	ExecutedValue         float64 `json:"executed_value"`
	Purchases             float64 `json:"purchases"`
	OtherExpenses         float64 `json:"other_expenses"`
	SalesCommission       float64 `json:"sales_commission"`
	ShareholderCommission float64 `json:"shareholder_commission"`
	Profit                float64 `json:"profit"`
}

// PeriodSummaryView is the profitability rollup over the range.
type PeriodSummaryView struct {
	Columns []Column           `json:"columns"`
	Rows    []PeriodSummaryRow `json:"rows"`
	Chart   *Chart             `json:"chart,omitempty"`
	Cards   []SummaryCard      `json:"cards,omitempty"`
}

// periodAggregate carries per-month figures sourced from submitted reports.
type periodAggregate struct {
	Month                 time.Time
	ExecutedValue         float64
	SalesCommission       float64
	ShareholderCommission float64
}
