package productivity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// MOCK STORE
// ============================================================================

type mockStore struct {
	reports     map[int64]*ProductivityReport
	nextID      int64
	priorTotals map[int64]float64
	docCounter  int
	createErr   error
}

func newMockStore() *mockStore {
	return &mockStore{
		reports:     make(map[int64]*ProductivityReport),
		nextID:      1,
		priorTotals: make(map[int64]float64),
	}
}

func (m *mockStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, &mockTx{store: m})
}

func (m *mockStore) GetReport(ctx context.Context, id int64) (*ProductivityReport, error) {
	report, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *report
	clone.Entries = append([]ExecutionEntry(nil), report.Entries...)
	clone.Breakdown = append([]CommissionBreakdownEntry(nil), report.Breakdown...)
	return &clone, nil
}

func (m *mockStore) FindReportByMonth(ctx context.Context, companyID int64, month time.Time) (*ProductivityReport, error) {
	for _, report := range m.reports {
		if report.CompanyID == companyID && report.ReportMonth.Equal(month) && report.Status != ReportStatusCancelled {
			clone := *report
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockStore) ListReports(ctx context.Context, req ListReportsRequest) ([]ProductivityReport, int, error) {
	var out []ProductivityReport
	for _, report := range m.reports {
		if report.CompanyID == req.CompanyID {
			out = append(out, *report)
		}
	}
	return out, len(out), nil
}

func (m *mockStore) SubmittedExecutionTotal(ctx context.Context, salesInvoiceID, excludeReportID int64) (float64, error) {
	return m.priorTotals[salesInvoiceID], nil
}

type mockTx struct {
	store *mockStore
}

func (t *mockTx) GenerateDocNumber(ctx context.Context, companyID int64, month time.Time) (string, error) {
	t.store.docCounter++
	return fmt.Sprintf("MPR-%d-%04d", month.Year(), t.store.docCounter), nil
}

func (t *mockTx) CreateReport(ctx context.Context, report ProductivityReport) (int64, error) {
	if t.store.createErr != nil {
		return 0, t.store.createErr
	}
	for _, existing := range t.store.reports {
		if existing.DocNumber == report.DocNumber {
			return 0, fmt.Errorf("%w: doc number taken", ErrAlreadyExists)
		}
	}
	id := t.store.nextID
	t.store.nextID++
	report.ID = id
	report.Entries = nil
	report.Breakdown = nil
	t.store.reports[id] = &report
	return id, nil
}

func (t *mockTx) UpdateReport(ctx context.Context, report ProductivityReport) error {
	stored, ok := t.store.reports[report.ID]
	if !ok {
		return ErrNotFound
	}
	stored.ReportMonth = report.ReportMonth
	stored.TotalCommissionPercentage = report.TotalCommissionPercentage
	stored.TotalCommissionAmount = report.TotalCommissionAmount
	return nil
}

func (t *mockTx) ReplaceEntries(ctx context.Context, reportID int64, entries []ExecutionEntry) error {
	stored, ok := t.store.reports[reportID]
	if !ok {
		return ErrNotFound
	}
	stored.Entries = append([]ExecutionEntry(nil), entries...)
	return nil
}

func (t *mockTx) ReplaceBreakdown(ctx context.Context, reportID int64, rows []CommissionBreakdownEntry) error {
	stored, ok := t.store.reports[reportID]
	if !ok {
		return ErrNotFound
	}
	stored.Breakdown = append([]CommissionBreakdownEntry(nil), rows...)
	return nil
}

func (t *mockTx) UpdateReportStatus(ctx context.Context, reportID int64, status ReportStatus, at time.Time) error {
	stored, ok := t.store.reports[reportID]
	if !ok {
		return ErrNotFound
	}
	stored.Status = status
	switch status {
	case ReportStatusSubmitted:
		stored.SubmittedAt = &at
	case ReportStatusCancelled:
		stored.CancelledAt = &at
	}
	return nil
}

type fakeInvalidator struct {
	bumps int
}

func (f *fakeInvalidator) Bump(ctx context.Context) error {
	f.bumps++
	return nil
}

func newTestService(store *mockStore, cache ReportCacheInvalidator) *Service {
	return NewService(store, defaultRates(), nil, cache, nil)
}

func createRequest() CreateReportRequest {
	return CreateReportRequest{
		CompanyID:   1,
		ReportMonth: time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC),
		Entries: []ExecutionEntryRequest{
			{SalesInvoiceID: ptrInt64(100), SalesPersonID: 1, ExecutionPercentage: 10, InvoiceTotal: 10000},
		},
		Breakdown: []CommissionBreakdownRequest{
			{ShareholderID: 10, CommissionPercentage: 3},
		},
	}
}

// ============================================================================
// LIFECYCLE
// ============================================================================

func TestCreateReportComputesDerivedFields(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store, nil)

	report, err := svc.CreateReport(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	assert.Equal(t, ReportStatusDraft, report.Status)
	assert.Equal(t, "MPR-2026-0001", report.DocNumber)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), report.ReportMonth, "normalised to month start")
	assert.Equal(t, int64(7), report.CreatedBy)

	require.Len(t, report.Entries, 1)
	assert.Equal(t, 1, report.Entries[0].LineOrder)
	assert.Equal(t, 1000.0, report.Entries[0].ActualExecutedValue, "10% of 10000")
	assert.Equal(t, DeliveryStatusNotDelivered, report.Entries[0].DeliveryStatus)

	require.Len(t, report.Breakdown, 1)
	assert.Equal(t, 30.0, report.Breakdown[0].CommissionAmount, "3% of 1000")
	assert.Equal(t, 3.0, report.TotalCommissionPercentage)
	assert.Equal(t, 30.0, report.TotalCommissionAmount)
}

func TestCreateReportRejectsDuplicateMonth(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store, nil)

	_, err := svc.CreateReport(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	_, err = svc.CreateReport(context.Background(), createRequest(), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateReportSurfacesDocNumberConflict(t *testing.T) {
	store := newMockStore()
	store.createErr = fmt.Errorf("%w: doc number taken", ErrAlreadyExists)
	svc := newTestService(store, nil)

	// simulates a concurrent create winning the same generated number
	_, err := svc.CreateReport(context.Background(), createRequest(), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Empty(t, store.reports, "transaction rolled back")
}

func TestCreateReportAbortsOnValidationFailure(t *testing.T) {
	store := newMockStore()
	store.priorTotals[100] = 95
	svc := newTestService(store, nil)

	_, err := svc.CreateReport(context.Background(), createRequest(), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverAllocation)
	assert.Empty(t, store.reports, "nothing persisted")
}

func TestUpdateReportOnlyDraft(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store, nil)

	report, err := svc.CreateReport(context.Background(), createRequest(), 7)
	require.NoError(t, err)
	_, err = svc.SubmitReport(context.Background(), report.ID)
	require.NoError(t, err)

	_, err = svc.UpdateReport(context.Background(), report.ID, UpdateReportRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateReportRecomputes(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store, nil)

	report, err := svc.CreateReport(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	entries := []ExecutionEntryRequest{
		{SalesInvoiceID: ptrInt64(100), SalesPersonID: 1, ExecutionPercentage: 50, InvoiceTotal: 10000},
	}
	updated, err := svc.UpdateReport(context.Background(), report.ID, UpdateReportRequest{Entries: &entries})
	require.NoError(t, err)

	require.Len(t, updated.Entries, 1)
	assert.Equal(t, 5000.0, updated.Entries[0].ActualExecutedValue)
	assert.Equal(t, 150.0, updated.TotalCommissionAmount, "3% of 5000")
}

func TestSubmitReportLifecycle(t *testing.T) {
	store := newMockStore()
	cache := &fakeInvalidator{}
	svc := newTestService(store, cache)

	report, err := svc.CreateReport(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	submitted, err := svc.SubmitReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, ReportStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)
	assert.Equal(t, 1, cache.bumps)

	// second submit is rejected
	_, err = svc.SubmitReport(context.Background(), report.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSubmitRevalidatesAgainstFreshTotals(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store, nil)

	report, err := svc.CreateReport(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	// another document got submitted for the same invoice in the meantime
	store.priorTotals[100] = 95

	_, err = svc.SubmitReport(context.Background(), report.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverAllocation)

	current, err := svc.GetReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, ReportStatusDraft, current.Status, "stays draft")
}

func TestCancelReport(t *testing.T) {
	store := newMockStore()
	cache := &fakeInvalidator{}
	svc := newTestService(store, cache)

	report, err := svc.CreateReport(context.Background(), createRequest(), 7)
	require.NoError(t, err)

	t.Run("draft cannot be cancelled", func(t *testing.T) {
		_, err := svc.CancelReport(context.Background(), report.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	_, err = svc.SubmitReport(context.Background(), report.ID)
	require.NoError(t, err)

	t.Run("submitted becomes cancelled", func(t *testing.T) {
		cancelled, err := svc.CancelReport(context.Background(), report.ID)
		require.NoError(t, err)
		assert.Equal(t, ReportStatusCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CancelledAt)
		assert.Equal(t, 2, cache.bumps, "submit and cancel each bump")
	})
}
