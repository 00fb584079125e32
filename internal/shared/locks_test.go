package shared

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*InvoiceLocker, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewInvoiceLocker(client, 2*time.Second), client
}

func TestWithInvoicesRunsCallback(t *testing.T) {
	locker, client := newTestLocker(t)

	ran := false
	err := locker.WithInvoices(context.Background(), []int64{3, 1, 3, 2}, func(ctx context.Context) error {
		ran = true
		// all three locks are held inside the critical section
		for _, id := range []int64{1, 2, 3} {
			exists, err := client.Exists(ctx, InvoiceLockKey(id)).Result()
			require.NoError(t, err)
			assert.Equal(t, int64(1), exists)
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// released afterwards
	for _, id := range []int64{1, 2, 3} {
		exists, err := client.Exists(context.Background(), InvoiceLockKey(id)).Result()
		require.NoError(t, err)
		assert.Zero(t, exists)
	}
}

func TestWithInvoicesNilLockerDegrades(t *testing.T) {
	var locker *InvoiceLocker

	ran := false
	err := locker.WithInvoices(context.Background(), []int64{1}, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestWithInvoicesContention(t *testing.T) {
	locker, client := newTestLocker(t)

	// simulate another submitter holding the lock for invoice 7
	require.NoError(t, client.Set(context.Background(), InvoiceLockKey(7), "other", time.Minute).Err())

	err := locker.WithInvoices(context.Background(), []int64{7}, func(ctx context.Context) error {
		t.Fatal("callback must not run")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}
