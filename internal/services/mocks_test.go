package services

import (
	"context"
	"io"
	"time"

	"invoiceflow/internal/events"
	"invoiceflow/internal/models"
	"invoiceflow/internal/rendering"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	return args.Get(0).([]*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Update(ctx context.Context, tenantID, id uuid.UUID, patch *models.InvoicePatch) error {
	args := m.Called(ctx, tenantID, id, patch)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockInvoiceRepository) ExistsByNumber(ctx context.Context, invoiceNumber string) (bool, error) {
	args := m.Called(ctx, invoiceNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) Stats(ctx context.Context, tenantID uuid.UUID, now time.Time) (*models.InvoiceStats, error) {
	args := m.Called(ctx, tenantID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceStats), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindOrCreate(ctx context.Context, name string) (*models.Tenant, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetInvoiceStats(ctx context.Context, tenantID uuid.UUID) (*models.InvoiceStats, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceStats), args.Error(1)
}

func (m *MockCacheService) SetInvoiceStats(ctx context.Context, tenantID uuid.UUID, stats *models.InvoiceStats, ttl time.Duration) error {
	args := m.Called(ctx, tenantID, stats, ttl)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateInvoiceStats(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockCacheService) GetInvoicePDF(ctx context.Context, tenantID, invoiceID uuid.UUID, revision time.Time) ([]byte, error) {
	args := m.Called(ctx, tenantID, invoiceID, revision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheService) SetInvoicePDF(ctx context.Context, tenantID, invoiceID uuid.UUID, revision time.Time, pdf []byte, ttl time.Duration) error {
	args := m.Called(ctx, tenantID, invoiceID, revision, pdf, ttl)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockCacheService) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockCacheService) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(doc rendering.Document) ([]byte, error) {
	args := m.Called(doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockStorageService struct {
	mock.Mock
}

func (m *MockStorageService) Upload(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, contentType)
	return args.Error(0)
}

func (m *MockStorageService) GetPresignedURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, bucketName, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockStorageService) Delete(ctx context.Context, bucketName, objectName string) error {
	args := m.Called(ctx, bucketName, objectName)
	return args.Error(0)
}

func (m *MockStorageService) EnsureBucketExists(ctx context.Context, bucketName string) error {
	args := m.Called(ctx, bucketName)
	return args.Error(0)
}

type MockMailService struct {
	mock.Mock
}

func (m *MockMailService) Send(ctx context.Context, msg MailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event events.InvoiceEvent) {
	m.Called(ctx, event)
}

func (m *MockPublisher) Close() {
	m.Called()
}
