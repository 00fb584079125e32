package shared

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// InvoiceLockKey builds redis keys for per-invoice submit critical sections.
func InvoiceLockKey(invoiceID int64) string {
	return fmt.Sprintf("productivity:invoice:%d:lock", invoiceID)
}

// InvoiceLocker serializes submits that touch the same sales invoices, so two
// documents cannot both pass the 100% ceiling check and jointly exceed it.
type InvoiceLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewInvoiceLocker wraps a redis client for invoice-scoped locking.
func NewInvoiceLocker(client *redis.Client, ttl time.Duration) *InvoiceLocker {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &InvoiceLocker{client: redislock.New(client), ttl: ttl}
}

// WithInvoices runs fn while holding a lock per invoice. Invoice IDs are
// deduplicated and locked in ascending order to avoid deadlocks between
// concurrent submitters. A nil locker degrades to running fn directly, which
// keeps single-node deployments and tests working without redis.
func (l *InvoiceLocker) WithInvoices(ctx context.Context, invoiceIDs []int64, fn func(context.Context) error) error {
	if l == nil || l.client == nil || len(invoiceIDs) == 0 {
		return fn(ctx)
	}

	ids := dedupeSorted(invoiceIDs)
	locks := make([]*redislock.Lock, 0, len(ids))
	defer func() {
		for i := len(locks) - 1; i >= 0; i-- {
			_ = locks[i].Release(context.WithoutCancel(ctx))
		}
	}()

	backoff := redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 10)
	for _, id := range ids {
		lock, err := l.client.Obtain(ctx, InvoiceLockKey(id), l.ttl, &redislock.Options{RetryStrategy: backoff})
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				return fmt.Errorf("%w: invoice %d", ErrLockNotAcquired, id)
			}
			return err
		}
		locks = append(locks, lock)
	}

	return fn(ctx)
}

func dedupeSorted(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
