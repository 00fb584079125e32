package productivity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Store is the persistence surface required by the service. The pgx
// implementation lives in repository.go; tests supply fakes.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	GetReport(ctx context.Context, id int64) (*ProductivityReport, error)
	FindReportByMonth(ctx context.Context, companyID int64, month time.Time) (*ProductivityReport, error)
	ListReports(ctx context.Context, req ListReportsRequest) ([]ProductivityReport, int, error)
	SubmittedExecutionTotal(ctx context.Context, salesInvoiceID, excludeReportID int64) (float64, error)
}

// TxStore exposes transactional operations.
type TxStore interface {
	GenerateDocNumber(ctx context.Context, companyID int64, month time.Time) (string, error)
	CreateReport(ctx context.Context, report ProductivityReport) (int64, error)
	UpdateReport(ctx context.Context, report ProductivityReport) error
	ReplaceEntries(ctx context.Context, reportID int64, entries []ExecutionEntry) error
	ReplaceBreakdown(ctx context.Context, reportID int64, rows []CommissionBreakdownEntry) error
	UpdateReportStatus(ctx context.Context, reportID int64, status ReportStatus, at time.Time) error
}

// ReportCacheInvalidator lets the service drop cached report views when the
// set of submitted documents changes.
type ReportCacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service provides business logic for productivity reports. Every save runs
// the ledger validator first and the commission allocator second, since the
// allocator's base amount depends on executed values the validator may derive.
type Service struct {
	store     Store
	validator *LedgerValidator
	allocator *CommissionAllocator
	locker    *shared.InvoiceLocker
	cache     ReportCacheInvalidator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a productivity service. locker and cache may be nil.
func NewService(store Store, rates RateSource, locker *shared.InvoiceLocker, cache ReportCacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		validator: NewLedgerValidator(store, rates),
		allocator: NewCommissionAllocator(rates),
		locker:    locker,
		cache:     cache,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateReport creates a new draft report, validated and computed.
func (s *Service) CreateReport(ctx context.Context, req CreateReportRequest, createdBy int64) (*ProductivityReport, error) {
	month := monthStart(req.ReportMonth)

	existing, err := s.store.FindReportByMonth(ctx, req.CompanyID, month)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing report: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: report for this company and month already exists", ErrAlreadyExists)
	}

	report := ProductivityReport{
		CompanyID:   req.CompanyID,
		ReportMonth: month,
		Status:      ReportStatusDraft,
		CreatedBy:   createdBy,
		Entries:     entriesFromRequests(req.Entries),
		Breakdown:   breakdownFromRequests(req.Breakdown),
	}

	if err := s.recompute(ctx, &report); err != nil {
		return nil, err
	}

	// Numbering happens inside the insert transaction; a concurrent create
	// racing for the same number fails on the unique constraint instead of
	// persisting a duplicate.
	var id int64
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		docNumber, err := tx.GenerateDocNumber(ctx, req.CompanyID, month)
		if err != nil {
			return fmt.Errorf("generate doc number: %w", err)
		}
		report.DocNumber = docNumber

		id, err = tx.CreateReport(ctx, report)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		if err := tx.ReplaceEntries(ctx, id, report.Entries); err != nil {
			return fmt.Errorf("insert entries: %w", err)
		}
		if err := tx.ReplaceBreakdown(ctx, id, report.Breakdown); err != nil {
			return fmt.Errorf("insert breakdown: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.store.GetReport(ctx, id)
}

// UpdateReport revalidates and recomputes a draft report with new inputs.
func (s *Service) UpdateReport(ctx context.Context, id int64, req UpdateReportRequest) (*ProductivityReport, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if report.Status != ReportStatusDraft {
		return nil, fmt.Errorf("%w: only DRAFT reports can be updated", ErrInvalidStatus)
	}

	if req.ReportMonth != nil {
		month := monthStart(*req.ReportMonth)
		if !month.Equal(report.ReportMonth) {
			other, err := s.store.FindReportByMonth(ctx, report.CompanyID, month)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("check existing report: %w", err)
			}
			if other != nil && other.ID != report.ID {
				return nil, fmt.Errorf("%w: report for this company and month already exists", ErrAlreadyExists)
			}
			report.ReportMonth = month
		}
	}
	if req.Entries != nil {
		report.Entries = entriesFromRequests(*req.Entries)
	}
	if req.Breakdown != nil {
		report.Breakdown = breakdownFromRequests(*req.Breakdown)
	}

	if err := s.recompute(ctx, report); err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if err := tx.UpdateReport(ctx, *report); err != nil {
			return fmt.Errorf("update report: %w", err)
		}
		if err := tx.ReplaceEntries(ctx, report.ID, report.Entries); err != nil {
			return fmt.Errorf("replace entries: %w", err)
		}
		if err := tx.ReplaceBreakdown(ctx, report.ID, report.Breakdown); err != nil {
			return fmt.Errorf("replace breakdown: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.store.GetReport(ctx, id)
}

// GetReport retrieves a report with its entries and breakdown.
func (s *Service) GetReport(ctx context.Context, id int64) (*ProductivityReport, error) {
	return s.store.GetReport(ctx, id)
}

// ListReports returns a paginated list of reports without child rows.
func (s *Service) ListReports(ctx context.Context, req ListReportsRequest) ([]ProductivityReport, int, error) {
	return s.store.ListReports(ctx, req)
}

// SubmitReport revalidates a draft against fresh cross-document totals and
// marks it SUBMITTED. Per-invoice locks serialize concurrent submits touching
// the same invoices, so two documents cannot both pass the 100% ceiling and
// jointly exceed it.
func (s *Service) SubmitReport(ctx context.Context, id int64) (*ProductivityReport, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if report.Status != ReportStatusDraft {
		return nil, fmt.Errorf("%w: only DRAFT reports can be submitted", ErrInvalidStatus)
	}

	err = s.locker.WithInvoices(ctx, report.InvoiceIDs(), func(ctx context.Context) error {
		if err := s.recompute(ctx, report); err != nil {
			return err
		}
		return s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
			if err := tx.UpdateReport(ctx, *report); err != nil {
				return fmt.Errorf("update report: %w", err)
			}
			if err := tx.ReplaceEntries(ctx, report.ID, report.Entries); err != nil {
				return fmt.Errorf("replace entries: %w", err)
			}
			if err := tx.ReplaceBreakdown(ctx, report.ID, report.Breakdown); err != nil {
				return fmt.Errorf("replace breakdown: %w", err)
			}
			return tx.UpdateReportStatus(ctx, report.ID, ReportStatusSubmitted, s.now())
		})
	})
	if err != nil {
		return nil, err
	}

	s.bumpReportCache(ctx)
	return s.store.GetReport(ctx, id)
}

// CancelReport marks a submitted report CANCELLED, removing it from the
// aggregate queries other documents validate against.
func (s *Service) CancelReport(ctx context.Context, id int64) (*ProductivityReport, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if report.Status != ReportStatusSubmitted {
		return nil, fmt.Errorf("%w: only SUBMITTED reports can be cancelled", ErrInvalidStatus)
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		return tx.UpdateReportStatus(ctx, report.ID, ReportStatusCancelled, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.bumpReportCache(ctx)
	return s.store.GetReport(ctx, id)
}

// recompute runs the ledger validator and then the commission allocator, in
// that order.
func (s *Service) recompute(ctx context.Context, report *ProductivityReport) error {
	if err := s.validator.Validate(ctx, report); err != nil {
		return err
	}
	return s.allocator.Compute(ctx, report)
}

func (s *Service) bumpReportCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump report cache", slog.Any("error", err))
	}
}

func entriesFromRequests(reqs []ExecutionEntryRequest) []ExecutionEntry {
	entries := make([]ExecutionEntry, 0, len(reqs))
	for i, req := range reqs {
		entries = append(entries, ExecutionEntry{
			LineOrder:             i + 1,
			SalesInvoiceID:        req.SalesInvoiceID,
			SalesPersonID:         req.SalesPersonID,
			ExecutionPercentage:   req.ExecutionPercentage,
			ActualExecutedValue:   req.ActualExecutedValue,
			InvoiceTotal:          req.InvoiceTotal,
			SalesPersonCommission: req.SalesPersonCommission,
		})
	}
	return entries
}

func breakdownFromRequests(reqs []CommissionBreakdownRequest) []CommissionBreakdownEntry {
	rows := make([]CommissionBreakdownEntry, 0, len(reqs))
	for _, req := range reqs {
		rows = append(rows, CommissionBreakdownEntry{
			ShareholderID:        req.ShareholderID,
			CommissionPercentage: req.CommissionPercentage,
		})
	}
	return rows
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
