package domain

import "context"

// EventPublisher 领域事件发布接口，由消息基础设施实现
type EventPublisher interface {
	// PublishOptionPriced 发布期权定价完成事件
	PublishOptionPriced(ctx context.Context, event OptionPricedEvent) error

	// PublishGreeksCalculated 发布希腊字母计算完成事件
	PublishGreeksCalculated(ctx context.Context, event GreeksCalculatedEvent) error

	// PublishImpliedVolatilitySolved 发布隐含波动率求解完成事件
	PublishImpliedVolatilitySolved(ctx context.Context, event ImpliedVolatilitySolvedEvent) error

	// PublishBatchPricingCompleted 发布批量定价完成事件
	PublishBatchPricingCompleted(ctx context.Context, event BatchPricingCompletedEvent) error
}
