package background

import (
	"context"
	"errors"
	"testing"
	"time"

	"invoiceflow/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStatsRefresher struct {
	mock.Mock
}

func (m *MockStatsRefresher) RefreshStats(ctx context.Context, tenantID uuid.UUID) (*models.InvoiceStats, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceStats), args.Error(1)
}

type MockTenantLister struct {
	mock.Mock
}

func (m *MockTenantLister) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func TestRefreshInvoiceStats_VisitsEveryTenant(t *testing.T) {
	stats := &MockStatsRefresher{}
	tenants := &MockTenantLister{}
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	tenants.On("ListIDs", mock.Anything).Return(ids, nil).Once()
	for i, id := range ids {
		if i == 2 {
			stats.On("RefreshStats", mock.Anything, id).Return(nil, errors.New("db timeout")).Once()
			continue
		}
		stats.On("RefreshStats", mock.Anything, id).Return(&models.InvoiceStats{}, nil).Once()
	}

	js, err := NewJobScheduler(stats, tenants, time.Hour)
	require.NoError(t, err)
	defer js.Stop()

	err = js.refreshInvoiceStats(context.Background())

	assert.NoError(t, err, "one tenant failing does not fail the run")
	stats.AssertExpectations(t)
	tenants.AssertExpectations(t)
}

func TestRefreshInvoiceStats_ListFailure(t *testing.T) {
	stats := &MockStatsRefresher{}
	tenants := &MockTenantLister{}
	tenants.On("ListIDs", mock.Anything).Return(nil, errors.New("db down")).Once()

	js, err := NewJobScheduler(stats, tenants, time.Hour)
	require.NoError(t, err)
	defer js.Stop()

	assert.Error(t, js.refreshInvoiceStats(context.Background()))
	stats.AssertNotCalled(t, "RefreshStats", mock.Anything, mock.Anything)
}

func TestNewJobScheduler_RegistersStatsJob(t *testing.T) {
	js, err := NewJobScheduler(&MockStatsRefresher{}, &MockTenantLister{}, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, []string{"invoice-stats-refresh"}, js.Jobs())

	js.Start()
	assert.NoError(t, js.Stop())
}

func TestNewJobScheduler_RejectsZeroInterval(t *testing.T) {
	_, err := NewJobScheduler(&MockStatsRefresher{}, &MockTenantLister{}, 0)

	assert.Error(t, err)
}
