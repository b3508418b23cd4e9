package chain

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/assert"
)

func newTestClient(health ...bool) *Client {
	eps := make([]*RPCEndpoint, len(health))
	for i, h := range health {
		eps[i] = &RPCEndpoint{URL: fmt.Sprintf("http://rpc%d.example.com", i+1), IsHealthy: h}
	}
	return &Client{
		chainID:         31337,
		endpoints:       eps,
		maxRetries:      3,
		retryInterval:   time.Millisecond,
		healthCheckFreq: time.Hour,
	}
}

// TestClientConfig_WithDefaults 测试零值配置补全
func TestClientConfig_WithDefaults(t *testing.T) {
	got := ClientConfig{ChainID: 31337, RPCURLs: []string{"http://localhost:8545"}}.withDefaults()
	assert.Equal(t, 3, got.MaxRetries)
	assert.Equal(t, time.Second, got.RetryInterval)
	assert.Equal(t, 30*time.Second, got.HealthCheckFreq)

	// 显式配置保持不变
	custom := ClientConfig{
		MaxRetries:      5,
		RetryInterval:   2 * time.Second,
		HealthCheckFreq: time.Minute,
	}.withDefaults()
	assert.Equal(t, 5, custom.MaxRetries)
	assert.Equal(t, 2*time.Second, custom.RetryInterval)
	assert.Equal(t, time.Minute, custom.HealthCheckFreq)
}

// TestNewClient_Validation 测试客户端配置验证
func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(&ClientConfig{ChainID: 31337})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least one RPC URL is required")
}

// TestNewClient_NoReachableEndpoint 测试所有端点不可达
func TestNewClient_NoReachableEndpoint(t *testing.T) {
	// 端口 1 上没有监听，HTTP 拨号是惰性的，链 ID 探测立即失败
	_, err := NewClient(&ClientConfig{
		ChainID: 31337,
		RPCURLs: []string{"http://127.0.0.1:1"},
	})
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

// TestRPCEndpoint_MarkDownUp 测试端点状态标记
func TestRPCEndpoint_MarkDownUp(t *testing.T) {
	ep := &RPCEndpoint{URL: "http://rpc1.example.com", IsHealthy: true}

	ep.markDown()
	ep.markDown()
	assert.False(t, ep.IsHealthy)
	assert.Equal(t, 2, ep.ErrorCount)

	ep.markUp()
	assert.True(t, ep.IsHealthy)
	assert.Zero(t, ep.ErrorCount)
}

// TestClient_BenchCurrent 测试降级只影响当前端点
func TestClient_BenchCurrent(t *testing.T) {
	c := newTestClient(true, true)
	c.currentIdx = 1

	c.benchCurrent()
	assert.True(t, c.endpoints[0].IsHealthy)
	assert.False(t, c.endpoints[1].IsHealthy)
	assert.Equal(t, 1, c.endpoints[1].ErrorCount)
}

// TestWithRetry_AllEndpointsDown 测试全部端点降级后的错误包装
func TestWithRetry_AllEndpointsDown(t *testing.T) {
	c := newTestClient(false, false)
	for _, ep := range c.endpoints {
		ep.LastCheck = time.Now()
	}

	calls := 0
	err := c.withRetry(context.Background(), func(*ethclient.Client) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Zero(t, calls)
}

// TestWithRetry_ContextCanceled 测试重试等待期间响应取消
func TestWithRetry_ContextCanceled(t *testing.T) {
	c := newTestClient(false)
	c.endpoints[0].LastCheck = time.Now()
	c.retryInterval = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.withRetry(ctx, func(*ethclient.Client) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

// TestClient_ChainID 测试链 ID 方法
func TestClient_ChainID(t *testing.T) {
	c := newTestClient(true)
	assert.Equal(t, int64(31337), c.ChainID())
}

// TestClient_GetHealthyEndpoints 测试获取健康端点
func TestClient_GetHealthyEndpoints(t *testing.T) {
	c := newTestClient(true, false, true)

	healthy := c.GetHealthyEndpoints()
	assert.Len(t, healthy, 2)
	assert.Equal(t, "http://rpc1.example.com", healthy[0].URL)
	assert.Equal(t, "http://rpc3.example.com", healthy[1].URL)

	assert.Empty(t, newTestClient(false, false).GetHealthyEndpoints())
}

// TestClient_Close 测试关闭幂等
func TestClient_Close(t *testing.T) {
	c := newTestClient(true)
	c.Close()
	c.Close()
}
