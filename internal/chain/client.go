// Package chain 提供链上只读访问能力
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	ErrNoHealthyRPC   = errors.New("no healthy RPC endpoint available")
	ErrNoContractCode = errors.New("no contract code at address")
)

// RPCEndpoint RPC 端点信息
type RPCEndpoint struct {
	URL        string
	IsHealthy  bool
	LatencyMs  int64
	ErrorCount int
	LastCheck  time.Time
}

func (ep *RPCEndpoint) markDown() {
	ep.IsHealthy = false
	ep.ErrorCount++
}

func (ep *RPCEndpoint) markUp() {
	ep.IsHealthy = true
	ep.ErrorCount = 0
}

// ClientConfig 客户端配置
type ClientConfig struct {
	ChainID         int64
	RPCURLs         []string
	MaxRetries      int
	RetryInterval   time.Duration
	HealthCheckFreq time.Duration
}

// withDefaults 补全零值配置
func (cfg ClientConfig) withDefaults() ClientConfig {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	if cfg.HealthCheckFreq <= 0 {
		cfg.HealthCheckFreq = 30 * time.Second
	}
	return cfg
}

// Client 只读区块链客户端，支持多端点故障转移
type Client struct {
	chainID int64

	endpoints  []*RPCEndpoint
	currentIdx int
	mu         sync.RWMutex

	client *ethclient.Client

	maxRetries      int
	retryInterval   time.Duration
	healthCheckFreq time.Duration
}

// NewClient 创建区块链客户端并建立首个连接
func NewClient(cfg *ClientConfig) (*Client, error) {
	if len(cfg.RPCURLs) == 0 {
		return nil, errors.New("at least one RPC URL is required")
	}
	norm := cfg.withDefaults()

	endpoints := make([]*RPCEndpoint, len(norm.RPCURLs))
	for i, url := range norm.RPCURLs {
		endpoints[i] = &RPCEndpoint{URL: url, IsHealthy: true}
	}

	c := &Client{
		chainID:         norm.ChainID,
		endpoints:       endpoints,
		maxRetries:      norm.MaxRetries,
		retryInterval:   norm.RetryInterval,
		healthCheckFreq: norm.HealthCheckFreq,
	}

	if err := c.connect(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// connect 从当前位置轮转尝试端点，成功后替换当前连接
func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.endpoints {
		idx := (c.currentIdx + i) % len(c.endpoints)
		ep := c.endpoints[idx]

		// 拨号失败过的端点在一个健康检查周期内不再重试
		if !ep.IsHealthy && time.Since(ep.LastCheck) < c.healthCheckFreq {
			continue
		}

		client, err := c.dial(ctx, ep)
		ep.LastCheck = time.Now()
		if err != nil {
			ep.markDown()
			continue
		}

		if c.client != nil {
			c.client.Close()
		}
		c.client = client
		c.currentIdx = idx
		ep.markUp()
		return nil
	}
	return ErrNoHealthyRPC
}

// dial 建立连接并探测链 ID，同时记录探测延迟
func (c *Client) dial(ctx context.Context, ep *RPCEndpoint) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, ep.URL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	remote, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}
	ep.LatencyMs = time.Since(start).Milliseconds()

	// 防止把查询发给配置错误的网络
	if c.chainID != 0 && remote.Int64() != c.chainID {
		client.Close()
		return nil, fmt.Errorf("endpoint %s serves chain %d, want %d", ep.URL, remote.Int64(), c.chainID)
	}
	return client, nil
}

// getClient 获取当前连接，没有时先建连
func (c *Client) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		if err := c.connect(ctx); err != nil {
			return nil, err
		}
		c.mu.RLock()
		client = c.client
		c.mu.RUnlock()
	}
	return client, nil
}

// withRetry 执行链上调用，失败时降级当前端点并换端点重试
func (c *Client) withRetry(ctx context.Context, fn func(*ethclient.Client) error) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(c.retryInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			c.connect(ctx)
		}

		client, err := c.getClient(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		if err := fn(client); err != nil {
			lastErr = err
			c.benchCurrent()
			continue
		}
		return nil
	}
	return fmt.Errorf("chain call failed after %d attempts: %w", c.maxRetries, lastErr)
}

// benchCurrent 降级当前端点
func (c *Client) benchCurrent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentIdx < len(c.endpoints) {
		c.endpoints[c.currentIdx].markDown()
	}
}

// ChainID 返回链 ID
func (c *Client) ChainID() int64 {
	return c.chainID
}

// BlockNumber 获取最新区块号
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var blockNum uint64
	err := c.withRetry(ctx, func(client *ethclient.Client) error {
		var err error
		blockNum, err = client.BlockNumber(ctx)
		return err
	})
	return blockNum, err
}

// CodeAt 获取账户合约代码
func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	var code []byte
	err := c.withRetry(ctx, func(client *ethclient.Client) error {
		var err error
		code, err = client.CodeAt(ctx, account, blockNumber)
		return err
	})
	return code, err
}

// CallContract 调用合约只读方法
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var result []byte
	err := c.withRetry(ctx, func(client *ethclient.Client) error {
		var err error
		result, err = client.CallContract(ctx, msg, blockNumber)
		return err
	})
	return result, err
}

// Close 关闭客户端
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.BlockNumber(ctx)
	return err
}

// GetHealthyEndpoints 获取健康的端点列表
func (c *Client) GetHealthyEndpoints() []*RPCEndpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var healthy []*RPCEndpoint
	for _, ep := range c.endpoints {
		if ep.IsHealthy {
			healthy = append(healthy, ep)
		}
	}
	return healthy
}
