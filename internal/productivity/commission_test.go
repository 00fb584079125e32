package productivity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executedEntry(value float64) ExecutionEntry {
	return ExecutionEntry{SalesPersonID: 1, ActualExecutedValue: value}
}

func TestComputeCommissionAmounts(t *testing.T) {
	a := NewCommissionAllocator(defaultRates())

	report := &ProductivityReport{
		Entries: []ExecutionEntry{executedEntry(6000), executedEntry(4000)},
		Breakdown: []CommissionBreakdownEntry{
			{ShareholderID: 10, CommissionPercentage: 5},
		},
	}
	require.NoError(t, a.Compute(context.Background(), report))

	assert.Equal(t, 500.0, report.Breakdown[0].CommissionAmount, "5% of 10000")
	assert.Equal(t, 5.0, report.TotalCommissionPercentage)
	assert.Equal(t, 500.0, report.TotalCommissionAmount)
}

func TestComputeSumsMultipleShareholders(t *testing.T) {
	a := NewCommissionAllocator(defaultRates())

	report := &ProductivityReport{
		Entries: []ExecutionEntry{executedEntry(10000)},
		Breakdown: []CommissionBreakdownEntry{
			{ShareholderID: 10, CommissionPercentage: 3},
			{ShareholderID: 20, CommissionPercentage: 7},
		},
	}
	require.NoError(t, a.Compute(context.Background(), report))

	assert.Equal(t, 300.0, report.Breakdown[0].CommissionAmount)
	assert.Equal(t, 700.0, report.Breakdown[1].CommissionAmount)
	assert.Equal(t, 10.0, report.TotalCommissionPercentage)
	assert.Equal(t, 1000.0, report.TotalCommissionAmount)
}

func TestComputeEmptyBreakdownZeroesTotals(t *testing.T) {
	a := NewCommissionAllocator(defaultRates())

	report := &ProductivityReport{
		Entries:                   []ExecutionEntry{executedEntry(10000)},
		TotalCommissionPercentage: 12,
		TotalCommissionAmount:     1200,
	}
	require.NoError(t, a.Compute(context.Background(), report))

	assert.Zero(t, report.TotalCommissionPercentage)
	assert.Zero(t, report.TotalCommissionAmount)
}

func TestComputeFillsPercentageFromMasterData(t *testing.T) {
	a := NewCommissionAllocator(defaultRates())

	report := &ProductivityReport{
		Entries: []ExecutionEntry{executedEntry(10000)},
		Breakdown: []CommissionBreakdownEntry{
			{ShareholderID: 20}, // configured at 7%
		},
	}
	require.NoError(t, a.Compute(context.Background(), report))

	assert.Equal(t, 7.0, report.Breakdown[0].CommissionPercentage)
	assert.Equal(t, 700.0, report.Breakdown[0].CommissionAmount)
}

func TestComputeUnconfiguredShareholderStaysZero(t *testing.T) {
	a := NewCommissionAllocator(&fakeRates{})

	report := &ProductivityReport{
		Entries:   []ExecutionEntry{executedEntry(10000)},
		Breakdown: []CommissionBreakdownEntry{{ShareholderID: 99}},
	}
	require.NoError(t, a.Compute(context.Background(), report))

	assert.Zero(t, report.Breakdown[0].CommissionPercentage)
	assert.Zero(t, report.Breakdown[0].CommissionAmount)
}

func TestComputeZeroBaseYieldsZeroAmounts(t *testing.T) {
	a := NewCommissionAllocator(defaultRates())

	report := &ProductivityReport{
		Breakdown: []CommissionBreakdownEntry{
			{ShareholderID: 10, CommissionPercentage: 5},
		},
	}
	require.NoError(t, a.Compute(context.Background(), report))

	assert.Zero(t, report.Breakdown[0].CommissionAmount)
	assert.Equal(t, 5.0, report.TotalCommissionPercentage)
	assert.Zero(t, report.TotalCommissionAmount)
}
