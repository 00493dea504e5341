package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"invoiceflow/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "invoiceflow:"

type CacheService interface {
	// Dashboard stats
	GetInvoiceStats(ctx context.Context, tenantID uuid.UUID) (*models.InvoiceStats, error)
	SetInvoiceStats(ctx context.Context, tenantID uuid.UUID, stats *models.InvoiceStats, ttl time.Duration) error
	InvalidateInvoiceStats(ctx context.Context, tenantID uuid.UUID) error

	// Rendered documents, keyed by the invoice revision
	GetInvoicePDF(ctx context.Context, tenantID, invoiceID uuid.UUID, revision time.Time) ([]byte, error)
	SetInvoicePDF(ctx context.Context, tenantID, invoiceID uuid.UUID, revision time.Time, pdf []byte, ttl time.Duration) error

	// Cache invalidation
	InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error

	// Token revocation
	BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisClient accepts either host:port or a redis:// URL.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if password != "" {
			opts.Password = password
		}
		return redis.NewClient(opts), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), nil
}

func NewRedisCacheService(client *redis.Client) CacheService {
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Warn("redis ping failed on initialization", "addr", client.Options().Addr, "error", err)
	}
	return &redisCacheService{client: client}
}

func statsKey(tenantID uuid.UUID) string {
	return fmt.Sprintf(keyPrefix+"stats:%s", tenantID.String())
}

func pdfKey(tenantID, invoiceID uuid.UUID, revision time.Time) string {
	return fmt.Sprintf(keyPrefix+"pdf:%s:%s:%d", tenantID.String(), invoiceID.String(), revision.UnixNano())
}

func (r *redisCacheService) GetInvoiceStats(ctx context.Context, tenantID uuid.UUID) (*models.InvoiceStats, error) {
	data, err := r.client.Get(ctx, statsKey(tenantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var stats models.InvoiceStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *redisCacheService) SetInvoiceStats(ctx context.Context, tenantID uuid.UUID, stats *models.InvoiceStats, ttl time.Duration) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, statsKey(tenantID), data, ttl).Err()
}

func (r *redisCacheService) InvalidateInvoiceStats(ctx context.Context, tenantID uuid.UUID) error {
	return r.client.Del(ctx, statsKey(tenantID)).Err()
}

func (r *redisCacheService) GetInvoicePDF(ctx context.Context, tenantID, invoiceID uuid.UUID, revision time.Time) ([]byte, error) {
	data, err := r.client.Get(ctx, pdfKey(tenantID, invoiceID, revision)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}
	return data, nil
}

func (r *redisCacheService) SetInvoicePDF(ctx context.Context, tenantID, invoiceID uuid.UUID, revision time.Time, pdf []byte, ttl time.Duration) error {
	return r.client.Set(ctx, pdfKey(tenantID, invoiceID, revision), pdf, ttl).Err()
}

// InvalidateTenantCache drops every cached entry that belongs to the tenant.
func (r *redisCacheService) InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error {
	var keys []string
	for _, pattern := range []string{statsKey(tenantID), fmt.Sprintf(keyPrefix+"*:%s:*", tenantID.String())} {
		iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}

	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

func (r *redisCacheService) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	return r.client.Set(ctx, fmt.Sprintf("token_blacklist:%s", tokenID), "revoked", ttl).Err()
}

func (r *redisCacheService) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, fmt.Sprintf("token_blacklist:%s", tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf(keyPrefix+"ratelimit:%s", key)
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return true, err
	}

	// Set expiry on first request
	if count == 1 {
		r.client.Expire(ctx, cacheKey, window)
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
