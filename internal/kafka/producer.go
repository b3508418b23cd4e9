// Package kafka 实现验证结果与账户域变更的事件发布
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/signet-labs/signet/internal/metrics"
	"github.com/signet-labs/signet/internal/model"
	"github.com/signet-labs/signet/pkg/logger"
)

// ErrProducerClosed 生产者已关闭
var ErrProducerClosed = errors.New("kafka producer is closed")

// 本服务发送的 Topic (短横线命名，与下游约定一致)
const (
	// TopicVerificationCompleted 每次验证完成后发布 model.VerificationEvent，
	// Partition Key 为账户地址，下游审计/风控按账户保序消费
	TopicVerificationCompleted = "verification-completed"

	// TopicDomainUpdated 账户域注册或链上同步变更后发布 model.DomainUpdatedEvent，
	// Partition Key 为账户地址，下游缓存/索引服务消费
	TopicDomainUpdated = "domain-updated"
)

// ProducerConfig 生产者配置
type ProducerConfig struct {
	Brokers      []string
	ClientID     string
	RequiredAcks sarama.RequiredAcks
	MaxRetries   int
	RetryBackoff time.Duration
}

// saramaConfig 展开为 sarama 配置，零值字段取生产默认
func (cfg *ProducerConfig) saramaConfig() *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	sc.ClientID = cfg.ClientID
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true

	sc.Producer.RequiredAcks = cfg.RequiredAcks
	if sc.Producer.RequiredAcks == 0 {
		sc.Producer.RequiredAcks = sarama.WaitForAll
	}
	sc.Producer.Retry.Max = cfg.MaxRetries
	if sc.Producer.Retry.Max == 0 {
		sc.Producer.Retry.Max = 3
	}
	sc.Producer.Retry.Backoff = cfg.RetryBackoff
	if sc.Producer.Retry.Backoff == 0 {
		sc.Producer.Retry.Backoff = 100 * time.Millisecond
	}
	return sc
}

// Producer 同步 Kafka 生产者
type Producer struct {
	producer sarama.SyncProducer
	mu       sync.RWMutex
	closed   bool
}

// NewProducer 连接 broker 并创建生产者
func NewProducer(cfg *ProducerConfig) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, cfg.saramaConfig())
	if err != nil {
		return nil, fmt.Errorf("connect kafka brokers %v: %w", cfg.Brokers, err)
	}
	return &Producer{producer: producer}, nil
}

// Close 关闭生产者，重复调用无害
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.producer.Close()
}

// send 发送一条消息并记录发送指标
func (p *Producer) send(topic, key string, value []byte) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrProducerClosed
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	metrics.RecordKafkaMessage(topic, err == nil)
	if err != nil {
		logger.Error("kafka send failed", "topic", topic, "key", key, "error", err)
		return err
	}

	logger.Debug("kafka message sent",
		"topic", topic, "key", key, "partition", partition, "offset", offset)
	return nil
}

// sendJSON 序列化事件负载后发送
func (p *Producer) sendJSON(topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return p.send(topic, key, value)
}

// SendVerificationEvent 发布验证结果事件
func (p *Producer) SendVerificationEvent(ctx context.Context, event *model.VerificationEvent) error {
	return p.sendJSON(TopicVerificationCompleted, event.AccountAddress, event)
}

// SendDomainUpdatedEvent 发布账户域变更事件
func (p *Producer) SendDomainUpdatedEvent(ctx context.Context, event *model.DomainUpdatedEvent) error {
	return p.sendJSON(TopicDomainUpdated, event.Address, event)
}

// EventPublisher 事件发布器，Kafka 未配置时换用 Noop 实现
type EventPublisher interface {
	PublishVerification(ctx context.Context, event *model.VerificationEvent) error
	PublishDomainUpdate(ctx context.Context, event *model.DomainUpdatedEvent) error
}

// KafkaEventPublisher 把事件交给 Producer 发送
type KafkaEventPublisher struct {
	producer *Producer
}

// NewKafkaEventPublisher 创建 Kafka 事件发布器
func NewKafkaEventPublisher(producer *Producer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

func (p *KafkaEventPublisher) PublishVerification(ctx context.Context, event *model.VerificationEvent) error {
	return p.producer.SendVerificationEvent(ctx, event)
}

func (p *KafkaEventPublisher) PublishDomainUpdate(ctx context.Context, event *model.DomainUpdatedEvent) error {
	return p.producer.SendDomainUpdatedEvent(ctx, event)
}

// NoopEventPublisher 丢弃全部事件
type NoopEventPublisher struct{}

func (NoopEventPublisher) PublishVerification(context.Context, *model.VerificationEvent) error {
	return nil
}

func (NoopEventPublisher) PublishDomainUpdate(context.Context, *model.DomainUpdatedEvent) error {
	return nil
}
