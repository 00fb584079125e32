package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/meridian-erp/meridian-erp/internal/reports"
)

// WriteInvoiceProgressCSV serialises the invoice progress view to CSV.
func WriteInvoiceProgressCSV(w io.Writer, view reports.InvoiceProgressView) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(headerRow(view.Columns)); err != nil {
		return err
	}
	for _, row := range view.Rows {
		record := []string{
			row.ReportMonth.Format("2006-01"),
			row.DocNumber,
			strconv.FormatInt(row.SalesInvoiceID, 10),
			formatFloat(row.InvoiceTotal),
			formatFloat(row.ExecutionPercentage),
			formatFloat(row.CumulativeExecution),
			formatFloat(row.ActualExecutedValue),
			row.DeliveryStatus,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteMonthlyDetailCSV serialises the monthly detail view to CSV.
func WriteMonthlyDetailCSV(w io.Writer, view reports.MonthlyDetailView) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(headerRow(view.Columns)); err != nil {
		return err
	}
	for _, row := range view.Rows {
		invoice := ""
		if row.SalesInvoiceID != nil {
			invoice = strconv.FormatInt(*row.SalesInvoiceID, 10)
		}
		record := []string{
			row.ReportMonth.Format("2006-01"),
			row.DocNumber,
			invoice,
			row.Customer,
			row.SalesPersonName,
			formatFloat(row.CommissionRate),
			formatFloat(row.ExecutedValue),
			formatFloat(row.ExecutionPercentage),
			formatFloat(row.CumulativeExecution),
			formatFloat(row.SalesPersonCommission),
			formatFloat(row.ShareholderCommission),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WritePeriodSummaryCSV serialises the period summary view to CSV.
func WritePeriodSummaryCSV(w io.Writer, view reports.PeriodSummaryView) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(headerRow(view.Columns)); err != nil {
		return err
	}
	for _, row := range view.Rows {
		record := []string{
			row.Period,
			formatFloat(row.ExecutedValue),
			formatFloat(row.Purchases),
			formatFloat(row.OtherExpenses),
			formatFloat(row.SalesCommission),
			formatFloat(row.ShareholderCommission),
			formatFloat(row.Profit),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func headerRow(columns []reports.Column) []string {
	header := make([]string, 0, len(columns))
	for _, col := range columns {
		header = append(header, col.Label)
	}
	return header
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
