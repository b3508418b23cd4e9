// Package config 提供配置加载
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signet-labs/signet/pkg/config"
)

// Config 应用配置
type Config struct {
	Service   ServiceConfig         `yaml:"service" json:"service"`
	HTTP      config.HTTPConfig     `yaml:"http" json:"http"`
	Postgres  config.PostgresConfig `yaml:"postgres" json:"postgres"`
	Redis     config.RedisConfig    `yaml:"redis" json:"redis"`
	Kafka     config.KafkaConfig    `yaml:"kafka" json:"kafka"`
	Chain     ChainConfig           `yaml:"chain" json:"chain"`
	Verifier  VerifierConfig        `yaml:"verifier" json:"verifier"`
	Scheduler SchedulerConfig       `yaml:"scheduler" json:"scheduler"`
	Jobs      JobsConfig            `yaml:"jobs" json:"jobs"`
	Log       config.LogConfig      `yaml:"log" json:"log"`
}

// ServiceConfig 服务配置
type ServiceConfig struct {
	Name string `yaml:"name" json:"name"`
	Env  string `yaml:"env" json:"env"`
}

// ChainConfig 链上访问配置
type ChainConfig struct {
	RPCURLs            []string `yaml:"rpc_urls" json:"rpc_urls"`
	ChainID            int64    `yaml:"chain_id" json:"chain_id"`
	MaxRetries         int      `yaml:"max_retries" json:"max_retries"`
	RetryIntervalMs    int      `yaml:"retry_interval" json:"retry_interval"`
	HealthCheckFreqSec int      `yaml:"health_check_interval" json:"health_check_interval"`
}

// Enabled 是否启用链上读取
func (c *ChainConfig) Enabled() bool {
	return len(c.RPCURLs) > 0
}

// RetryInterval 返回重试间隔
func (c *ChainConfig) RetryInterval() time.Duration {
	if c.RetryIntervalMs <= 0 {
		return time.Second
	}
	return time.Duration(c.RetryIntervalMs) * time.Millisecond
}

// HealthCheckInterval 返回健康检查间隔
func (c *ChainConfig) HealthCheckInterval() time.Duration {
	if c.HealthCheckFreqSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HealthCheckFreqSec) * time.Second
}

// VerifierConfig 验证器配置
type VerifierConfig struct {
	Domain         DomainConfig `yaml:"domain" json:"domain"`
	AllowUnwrapped bool         `yaml:"allow_unwrapped" json:"allow_unwrapped"`
	CacheTTLSec    int          `yaml:"cache_ttl" json:"cache_ttl"`
}

// CacheTTL 返回账户域缓存有效期
func (c *VerifierConfig) CacheTTL() time.Duration {
	if c.CacheTTLSec <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.CacheTTLSec) * time.Second
}

// DomainConfig 启动时预注册的账户域，Account 为空时跳过
type DomainConfig struct {
	Account           string `yaml:"account" json:"account"`
	Name              string `yaml:"name" json:"name"`
	Version           string `yaml:"version" json:"version"`
	ChainID           int64  `yaml:"chain_id" json:"chain_id"`
	VerifyingContract string `yaml:"verifying_contract" json:"verifying_contract"`
	Salt              string `yaml:"salt" json:"salt"`
}

// SchedulerConfig 调度器配置
type SchedulerConfig struct {
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs" json:"max_concurrent_jobs"`
}

// JobsConfig 定时任务配置
type JobsConfig struct {
	Enabled       bool      `yaml:"enabled" json:"enabled"`
	DomainRefresh JobConfig `yaml:"domain_refresh" json:"domain_refresh"`
	RecordCleanup JobConfig `yaml:"record_cleanup" json:"record_cleanup"`
}

// JobConfig 单个任务配置
type JobConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	Cron             string `yaml:"cron" json:"cron"`
	RetentionDays    int    `yaml:"retention_days" json:"retention_days"`
	StaleAfterMinute int    `yaml:"stale_after_minutes" json:"stale_after_minutes"`
	BatchSize        int    `yaml:"batch_size" json:"batch_size"`
}

// StaleAfter 返回刷新任务的过期阈值
func (c *JobConfig) StaleAfter() time.Duration {
	if c.StaleAfterMinute <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.StaleAfterMinute) * time.Minute
}

// Retention 返回清理任务的保留时长
func (c *JobConfig) Retention() time.Duration {
	if c.RetentionDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Load 加载配置
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	// 从文件加载
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// 展开环境变量: ${VAR:DEFAULT}
		expanded := config.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// 环境变量覆盖
	overrideFromEnv(cfg)

	return cfg, nil
}

// defaultConfig 默认配置
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name: "signet",
			Env:  "dev",
		},
		HTTP: config.HTTPConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Postgres: config.PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "signet",
			User:            "signet",
			MaxConnections:  50,
			MaxIdleConns:    10,
			ConnMaxLifetime: 3600,
		},
		Redis: config.RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 100,
		},
		Kafka: config.KafkaConfig{
			ClientID: "signet",
		},
		Chain: ChainConfig{
			ChainID:            31337,
			MaxRetries:         3,
			RetryIntervalMs:    1000,
			HealthCheckFreqSec: 30,
		},
		Verifier: VerifierConfig{
			Domain: DomainConfig{
				Name:    "SignetAccount",
				Version: "1",
				ChainID: 31337,
			},
			AllowUnwrapped: false,
			CacheTTLSec:    600,
		},
		Scheduler: SchedulerConfig{
			MaxConcurrentJobs: 2,
		},
		Jobs: JobsConfig{
			Enabled: true,
			DomainRefresh: JobConfig{
				Enabled:          true,
				Cron:             "0 */10 * * * *",
				StaleAfterMinute: 30,
				BatchSize:        50,
			},
			RecordCleanup: JobConfig{
				Enabled:       true,
				Cron:          "0 0 3 * * *",
				RetentionDays: 30,
			},
		},
		Log: config.DefaultLogConfig(),
	}
}

// overrideFromEnv 从环境变量覆盖配置，未设置或非法的值保留原值
func overrideFromEnv(cfg *Config) {
	cfg.Service.Name = config.GetEnv("SERVICE_NAME", cfg.Service.Name)
	cfg.Service.Env = config.GetEnv("ENV", cfg.Service.Env)
	cfg.HTTP.Port = config.GetEnvInt("HTTP_PORT", cfg.HTTP.Port)

	cfg.Postgres.Host = config.GetEnv("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = config.GetEnvInt("POSTGRES_PORT", cfg.Postgres.Port)
	cfg.Postgres.User = config.GetEnv("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = config.GetEnv("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.Database = config.GetEnv("POSTGRES_DATABASE", cfg.Postgres.Database)

	cfg.Redis.Addr = config.GetEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = config.GetEnv("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Kafka.Brokers = config.GetEnvSlice("KAFKA_BROKERS", cfg.Kafka.Brokers)

	cfg.Chain.RPCURLs = config.GetEnvSlice("CHAIN_RPC_URLS", cfg.Chain.RPCURLs)
	cfg.Chain.ChainID = config.GetEnvInt64("CHAIN_ID", cfg.Chain.ChainID)

	cfg.Verifier.AllowUnwrapped = config.GetEnvBool("VERIFIER_ALLOW_UNWRAPPED", cfg.Verifier.AllowUnwrapped)
	cfg.Jobs.Enabled = config.GetEnvBool("JOBS_ENABLED", cfg.Jobs.Enabled)
	cfg.Log.Level = config.GetEnv("LOG_LEVEL", cfg.Log.Level)
}
