package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockPinger 测试用依赖探针
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping() error {
	return m.err
}

func TestNewHealthHandler(t *testing.T) {
	deps := &HealthDeps{
		Database:    &mockPinger{},
		RedisClient: &mockPinger{},
	}
	handler := NewHealthHandler(deps)
	assert.NotNil(t, handler)
}

func TestNewHealthHandler_NilDeps(t *testing.T) {
	handler := NewHealthHandler(nil)
	assert.NotNil(t, handler)
}

func TestHealthHandler_Live(t *testing.T) {
	handler := NewHealthHandler(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health/live", nil)

	handler.Live(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandler_Ready_NotReady(t *testing.T) {
	handler := NewHealthHandler(nil)
	handler.SetReady(false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	handler.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthHandler_Ready_Ready(t *testing.T) {
	deps := &HealthDeps{
		Database:    &mockPinger{},
		RedisClient: &mockPinger{},
	}
	handler := NewHealthHandler(deps)
	handler.SetReady(true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	handler.Ready(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthHandler_Ready_DatabaseError(t *testing.T) {
	deps := &HealthDeps{
		Database:    &mockPinger{err: errors.New("connection refused")},
		RedisClient: &mockPinger{},
	}
	handler := NewHealthHandler(deps)
	handler.SetReady(true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	handler.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	// 失败原因逐项透出
	assert.Contains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), `"redis":"ok"`)
}

func TestHealthHandler_Ready_RedisError(t *testing.T) {
	deps := &HealthDeps{
		Database:    &mockPinger{},
		RedisClient: &mockPinger{err: errors.New("redis connection failed")},
	}
	handler := NewHealthHandler(deps)
	handler.SetReady(true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	handler.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthHandler_Ready_NoDeps(t *testing.T) {
	handler := NewHealthHandler(&HealthDeps{})
	handler.SetReady(true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	handler.Ready(c)

	assert.Equal(t, http.StatusOK, w.Code)
}
