package caching

import (
	"context"
	"testing"
	"time"

	"invoiceflow/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCacheService(client), mr
}

func TestInvoiceStats_RoundTripAndExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	tenantID := uuid.New()

	got, err := cache.GetInvoiceStats(ctx, tenantID)
	require.NoError(t, err)
	assert.Nil(t, got, "miss returns nil without error")

	stats := &models.InvoiceStats{TotalInvoices: 3, PaidInvoices: 1, TotalAmount: 300.5, PaidAmount: 100}
	require.NoError(t, cache.SetInvoiceStats(ctx, tenantID, stats, time.Minute))

	got, err = cache.GetInvoiceStats(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, stats, got)

	mr.FastForward(2 * time.Minute)
	got, err = cache.GetInvoiceStats(ctx, tenantID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvalidateInvoiceStats(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, cache.SetInvoiceStats(ctx, tenantID, &models.InvoiceStats{}, time.Minute))
	require.NoError(t, cache.InvalidateInvoiceStats(ctx, tenantID))

	assert.False(t, mr.Exists("invoiceflow:stats:"+tenantID.String()))
}

func TestInvoicePDF_KeyedByRevision(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	tenantID, invoiceID := uuid.New(), uuid.New()
	rev := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, cache.SetInvoicePDF(ctx, tenantID, invoiceID, rev, []byte("%PDF-1.3"), time.Minute))

	got, err := cache.GetInvoicePDF(ctx, tenantID, invoiceID, rev)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.3"), got)

	got, err = cache.GetInvoicePDF(ctx, tenantID, invoiceID, rev.Add(time.Second))
	require.NoError(t, err)
	assert.Nil(t, got, "a newer revision misses")
}

func TestInvalidateTenantCache_LeavesOtherTenants(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	mine, other := uuid.New(), uuid.New()
	rev := time.Now()

	require.NoError(t, cache.SetInvoiceStats(ctx, mine, &models.InvoiceStats{}, time.Minute))
	require.NoError(t, cache.SetInvoicePDF(ctx, mine, uuid.New(), rev, []byte("a"), time.Minute))
	require.NoError(t, cache.SetInvoiceStats(ctx, other, &models.InvoiceStats{}, time.Minute))

	require.NoError(t, cache.InvalidateTenantCache(ctx, mine))

	assert.Len(t, mr.Keys(), 1)
	assert.True(t, mr.Exists("invoiceflow:stats:"+other.String()))
}

func TestTokenBlacklist(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	revoked, err := cache.IsTokenBlacklisted(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, cache.BlacklistToken(ctx, "tok-1", time.Hour))

	revoked, err = cache.IsTokenBlacklisted(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.Exists("token_blacklist:tok-1"))

	mr.FastForward(2 * time.Hour)
	revoked, err = cache.IsTokenBlacklisted(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestIsRateLimited(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limited, err := cache.IsRateLimited(ctx, "login:a@b.test", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, limited, "attempt %d", i+1)
	}

	limited, err := cache.IsRateLimited(ctx, "login:a@b.test", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, limited)

	mr.FastForward(2 * time.Minute)
	limited, err = cache.IsRateLimited(ctx, "login:a@b.test", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, limited)
}

func TestNewRedisClient_ParsesURL(t *testing.T) {
	client, err := NewRedisClient("redis://:secret@cache.internal:6380/2", "", 0)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "cache.internal:6380", client.Options().Addr)
	assert.Equal(t, "secret", client.Options().Password)
	assert.Equal(t, 2, client.Options().DB)
}
