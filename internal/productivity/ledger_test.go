package productivity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// FAKES
// ============================================================================

type fakePrior struct {
	totals map[int64]float64
	calls  map[int64]int
	err    error
}

func newFakePrior(totals map[int64]float64) *fakePrior {
	if totals == nil {
		totals = make(map[int64]float64)
	}
	return &fakePrior{totals: totals, calls: make(map[int64]int)}
}

func (f *fakePrior) SubmittedExecutionTotal(ctx context.Context, salesInvoiceID, excludeReportID int64) (float64, error) {
	f.calls[salesInvoiceID]++
	if f.err != nil {
		return 0, f.err
	}
	return f.totals[salesInvoiceID], nil
}

type fakeRates struct {
	personRates      map[int64]float64
	shareholderRates map[int64]float64
	err              error
}

func (f *fakeRates) SalesPersonCommissionRate(ctx context.Context, salesPersonID int64) (*float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	rate, ok := f.personRates[salesPersonID]
	if !ok {
		return nil, nil
	}
	return &rate, nil
}

func (f *fakeRates) ShareholderCommissionPercentage(ctx context.Context, shareholderID int64) (*float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	pct, ok := f.shareholderRates[shareholderID]
	if !ok {
		return nil, nil
	}
	return &pct, nil
}

func ptrInt64(v int64) *int64 { return &v }

func entry(invoiceID int64, pct float64) ExecutionEntry {
	return ExecutionEntry{
		SalesInvoiceID:      ptrInt64(invoiceID),
		SalesPersonID:       1,
		ExecutionPercentage: pct,
		InvoiceTotal:        10000,
	}
}

func defaultRates() *fakeRates {
	return &fakeRates{
		personRates:      map[int64]float64{1: 5.0, 2: 3.5},
		shareholderRates: map[int64]float64{10: 3.0, 20: 7.0},
	}
}

// ============================================================================
// LEDGER VALIDATION
// ============================================================================

func TestValidateRejectsOverAllocation(t *testing.T) {
	prior := newFakePrior(map[int64]float64{100: 60})
	v := NewLedgerValidator(prior, defaultRates())

	report := &ProductivityReport{Entries: []ExecutionEntry{entry(100, 50)}}
	err := v.Validate(context.Background(), report)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverAllocation)
}

func TestValidateAcceptsExactCeiling(t *testing.T) {
	prior := newFakePrior(map[int64]float64{100: 60})
	v := NewLedgerValidator(prior, defaultRates())

	report := &ProductivityReport{Entries: []ExecutionEntry{entry(100, 40)}}
	err := v.Validate(context.Background(), report)

	require.NoError(t, err)
	got := report.Entries[0]
	assert.Equal(t, 60.0, got.CumulativeExecution)
	assert.Equal(t, DeliveryStatusDelivered, got.DeliveryStatus)
}

func TestValidateRejectsNegativePercentage(t *testing.T) {
	prior := newFakePrior(nil)
	v := NewLedgerValidator(prior, defaultRates())

	report := &ProductivityReport{Entries: []ExecutionEntry{entry(100, -5)}}
	err := v.Validate(context.Background(), report)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNegativePercentage)
}

func TestValidateRunningTotalAcrossRows(t *testing.T) {
	prior := newFakePrior(map[int64]float64{100: 50})
	v := NewLedgerValidator(prior, defaultRates())

	t.Run("second row sees first row", func(t *testing.T) {
		report := &ProductivityReport{Entries: []ExecutionEntry{entry(100, 30), entry(100, 30)}}
		err := v.Validate(context.Background(), report)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrOverAllocation)
	})

	t.Run("within ceiling", func(t *testing.T) {
		report := &ProductivityReport{Entries: []ExecutionEntry{entry(100, 30), entry(100, 20)}}
		err := v.Validate(context.Background(), report)

		require.NoError(t, err)
		assert.Equal(t, 50.0, report.Entries[0].CumulativeExecution)
		assert.Equal(t, 80.0, report.Entries[1].CumulativeExecution)
		assert.Equal(t, DeliveryStatusDelivered, report.Entries[1].DeliveryStatus)
	})
}

func TestValidateQueriesPriorOncePerInvoice(t *testing.T) {
	prior := newFakePrior(nil)
	v := NewLedgerValidator(prior, defaultRates())

	report := &ProductivityReport{Entries: []ExecutionEntry{
		entry(100, 10), entry(100, 20), entry(200, 30),
	}}
	require.NoError(t, v.Validate(context.Background(), report))

	assert.Equal(t, 1, prior.calls[100])
	assert.Equal(t, 1, prior.calls[200])
}

func TestValidateDerivesActualExecutedValue(t *testing.T) {
	prior := newFakePrior(nil)
	v := NewLedgerValidator(prior, defaultRates())

	preset := entry(100, 10)
	preset.ActualExecutedValue = 1234.56
	derived := entry(200, 5)

	report := &ProductivityReport{Entries: []ExecutionEntry{preset, derived}}
	require.NoError(t, v.Validate(context.Background(), report))

	assert.Equal(t, 1234.56, report.Entries[0].ActualExecutedValue, "preset value stays")
	assert.Equal(t, 500.0, report.Entries[1].ActualExecutedValue, "5% of 10000")
}

func TestValidateIsIdempotent(t *testing.T) {
	prior := newFakePrior(map[int64]float64{100: 25})
	v := NewLedgerValidator(prior, defaultRates())

	report := &ProductivityReport{Entries: []ExecutionEntry{entry(100, 25)}}
	require.NoError(t, v.Validate(context.Background(), report))
	first := report.Entries[0]

	require.NoError(t, v.Validate(context.Background(), report))
	assert.Equal(t, first, report.Entries[0])
}

func TestValidateRowWithoutInvoice(t *testing.T) {
	prior := newFakePrior(nil)
	v := NewLedgerValidator(prior, defaultRates())

	t.Run("skips ledger math", func(t *testing.T) {
		report := &ProductivityReport{Entries: []ExecutionEntry{{
			SalesPersonID:       1,
			ExecutionPercentage: 500, // would over-allocate if it had an invoice
		}}}
		require.NoError(t, v.Validate(context.Background(), report))
		assert.Empty(t, report.Entries[0].DeliveryStatus)
	})

	t.Run("still requires sales person", func(t *testing.T) {
		report := &ProductivityReport{Entries: []ExecutionEntry{{ExecutionPercentage: 10}}}
		err := v.Validate(context.Background(), report)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingSalesPerson)
	})
}

func TestValidateSalesPersonCommission(t *testing.T) {
	prior := newFakePrior(nil)

	t.Run("fills from configured rate", func(t *testing.T) {
		v := NewLedgerValidator(prior, defaultRates())
		report := &ProductivityReport{Entries: []ExecutionEntry{entry(100, 10)}}

		require.NoError(t, v.Validate(context.Background(), report))
		assert.Equal(t, 5.0, report.Entries[0].SalesPersonCommission)
	})

	t.Run("manual value untouched", func(t *testing.T) {
		v := NewLedgerValidator(prior, defaultRates())
		e := entry(100, 10)
		e.SalesPersonCommission = 2.25
		report := &ProductivityReport{Entries: []ExecutionEntry{e}}

		require.NoError(t, v.Validate(context.Background(), report))
		assert.Equal(t, 2.25, report.Entries[0].SalesPersonCommission)
	})

	t.Run("missing rate is an error", func(t *testing.T) {
		v := NewLedgerValidator(prior, &fakeRates{personRates: map[int64]float64{}})
		report := &ProductivityReport{Entries: []ExecutionEntry{entry(100, 10)}}

		err := v.Validate(context.Background(), report)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingCommissionRate)
	})
}

func TestValidatePropagatesPriorErrors(t *testing.T) {
	prior := newFakePrior(nil)
	prior.err = errors.New("connection refused")
	v := NewLedgerValidator(prior, defaultRates())

	report := &ProductivityReport{Entries: []ExecutionEntry{entry(100, 10)}}
	err := v.Validate(context.Background(), report)

	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
}

func TestDeliveryStatusFromCumulative(t *testing.T) {
	cases := []struct {
		name       string
		cumulative float64
		want       DeliveryStatus
	}{
		{"zero", 0, DeliveryStatusNotStarted},
		{"slightly negative after rounding", -0.004, DeliveryStatusNotStarted},
		{"partial", 50, DeliveryStatusNotDelivered},
		{"just under full", 99.99, DeliveryStatusNotDelivered},
		{"rounds up to full", 99.999, DeliveryStatusDelivered},
		{"full", 100, DeliveryStatusDelivered},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeliveryStatusFromCumulative(tc.cumulative))
		})
	}
}
