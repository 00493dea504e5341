package handlers

import (
	"context"

	"invoiceflow/internal/models"
	"invoiceflow/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) CreateInvoice(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	args := m.Called(ctx, invoice)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) GetInvoiceByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) ListInvoices(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) UpdateInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, patch *models.InvoicePatch) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) DeleteInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	args := m.Called(ctx, tenantID, invoiceID)
	return args.Error(0)
}

func (m *MockInvoiceService) GetStats(ctx context.Context, tenantID uuid.UUID) (*models.InvoiceStats, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceStats), args.Error(1)
}

func (m *MockInvoiceService) RefreshStats(ctx context.Context, tenantID uuid.UUID) (*models.InvoiceStats, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceStats), args.Error(1)
}

func (m *MockInvoiceService) RenderPDF(ctx context.Context, tenantID, invoiceID uuid.UUID) (*services.RenderedInvoice, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RenderedInvoice), args.Error(1)
}

func (m *MockInvoiceService) ArchivePDF(ctx context.Context, tenantID, invoiceID uuid.UUID) (*services.ArchivedInvoice, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ArchivedInvoice), args.Error(1)
}

func (m *MockInvoiceService) SendInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, input services.RegisterInput) (*models.AuthResponse, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthResponse), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthResponse), args.Error(1)
}

func (m *MockAuthService) Me(ctx context.Context, tenantID, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) GenerateToken(userID, tenantID uuid.UUID) (*models.TokenResponse, error) {
	args := m.Called(userID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenResponse), args.Error(1)
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (*services.TokenClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenClaims), args.Error(1)
}

func (m *MockAuthService) RevokeToken(ctx context.Context, claims *services.TokenClaims) error {
	args := m.Called(ctx, claims)
	return args.Error(0)
}

func (m *MockAuthService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
