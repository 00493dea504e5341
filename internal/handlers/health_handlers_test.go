package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandlers(&MockPinger{}, &MockPinger{}, "1.2.3")
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	assert.NoError(t, h.HealthCheck(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"1.2.3"`)
}

func TestReadinessCheck(t *testing.T) {
	db, cache := &MockPinger{}, &MockPinger{}
	db.On("Ping", mock.Anything).Return(nil)
	cache.On("Ping", mock.Anything).Return(nil)

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

	assert.NoError(t, NewHealthHandlers(db, cache, "dev").ReadinessCheck(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"redis":"healthy"`)
}

func TestReadinessCheck_RedisDown(t *testing.T) {
	db, cache := &MockPinger{}, &MockPinger{}
	db.On("Ping", mock.Anything).Return(nil)
	cache.On("Ping", mock.Anything).Return(errors.New("connection refused"))

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

	assert.NoError(t, NewHealthHandlers(db, cache, "dev").ReadinessCheck(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), `"status":"not_ready"`)
}
