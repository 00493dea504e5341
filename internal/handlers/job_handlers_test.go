package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"invoiceflow/internal/common"
	"invoiceflow/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type staticJobs []string

func (s staticJobs) Jobs() []string { return s }

func TestListJobs(t *testing.T) {
	h := NewJobHandlers(staticJobs{"invoice-stats-refresh"}, &MockInvoiceService{})
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/v1/jobs", nil), rec)

	assert.NoError(t, h.ListJobs(c))
	assert.JSONEq(t, `{"jobs":["invoice-stats-refresh"]}`, rec.Body.String())
}

func TestRefreshStats(t *testing.T) {
	tenantID := uuid.New()
	svc := &MockInvoiceService{}
	svc.On("RefreshStats", mock.Anything, tenantID).Return(&models.InvoiceStats{TotalInvoices: 4}, nil).Once()
	svc.On("RefreshStats", mock.Anything, tenantID).Return(nil, errors.New("db down")).Once()
	h := NewJobHandlers(staticJobs{}, svc)

	newCtx := func() (echo.Context, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodPost, "/v1/jobs/stats-refresh", nil)
		req = req.WithContext(common.WithIdentity(req.Context(), uuid.New(), tenantID, "tok"))
		rec := httptest.NewRecorder()
		return echo.New().NewContext(req, rec), rec
	}

	c, rec := newCtx()
	assert.NoError(t, h.RefreshStats(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_invoices":4`)

	c, rec = newCtx()
	assert.NoError(t, h.RefreshStats(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	svc.AssertExpectations(t)
}
