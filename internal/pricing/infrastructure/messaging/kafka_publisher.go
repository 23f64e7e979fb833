// Package messaging 将领域事件发布到 Kafka。
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
)

// TopicPublisher 底层消息生产者需要满足的最小接口，
// 由 wyfcoding/pkg 的 Kafka producer 实现。
type TopicPublisher interface {
	PublishToTopic(ctx context.Context, topic string, key, payload []byte) error
}

// KafkaEventPublisher 实现 domain.EventPublisher，
// 事件以 JSON 序列化后写入单个主题，key 用于分区内有序。
type KafkaEventPublisher struct {
	producer TopicPublisher
	topic    string
	m        *metrics.Metrics // 可为 nil
}

// NewKafkaEventPublisher 创建新的 KafkaEventPublisher 实例
func NewKafkaEventPublisher(producer TopicPublisher, topic string, m *metrics.Metrics) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic, m: m}
}

// PublishOptionPriced 发布期权定价完成事件
func (p *KafkaEventPublisher) PublishOptionPriced(ctx context.Context, event domain.OptionPricedEvent) error {
	return p.publishEvent(ctx, domain.OptionPricedEventType, event.Symbol, event)
}

// PublishGreeksCalculated 发布希腊字母计算完成事件
func (p *KafkaEventPublisher) PublishGreeksCalculated(ctx context.Context, event domain.GreeksCalculatedEvent) error {
	return p.publishEvent(ctx, domain.GreeksCalculatedEventType, event.Symbol, event)
}

// PublishImpliedVolatilitySolved 发布隐含波动率求解完成事件
func (p *KafkaEventPublisher) PublishImpliedVolatilitySolved(ctx context.Context, event domain.ImpliedVolatilitySolvedEvent) error {
	return p.publishEvent(ctx, domain.ImpliedVolatilitySolvedEventType, event.Symbol, event)
}

// PublishBatchPricingCompleted 发布批量定价完成事件
func (p *KafkaEventPublisher) PublishBatchPricingCompleted(ctx context.Context, event domain.BatchPricingCompletedEvent) error {
	return p.publishEvent(ctx, domain.BatchPricingCompletedEventType, event.BatchID, event)
}

// envelope 事件信封，消费方先读 event_type 再解 payload
type envelope struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

func (p *KafkaEventPublisher) publishEvent(ctx context.Context, eventType, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	data, err := json.Marshal(envelope{EventType: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}
	if err := p.producer.PublishToTopic(ctx, p.topic, []byte(key), data); err != nil {
		return err
	}
	if p.m != nil {
		p.m.EventsPublishedTotal.WithLabelValues(eventType).Inc()
	}
	return nil
}
