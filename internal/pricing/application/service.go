package application

import (
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// PricingService 聚合命令与查询服务，作为接口层的唯一入口
type PricingService struct {
	Command *PricingCommandService
	Query   *PricingQueryService
}

// NewPricingService 创建定价应用服务。
// publisher 可为 nil，此时跳过事件发布；seed 驱动所有蒙特卡洛随机源。
func NewPricingService(publisher domain.EventPublisher, seed uint64) *PricingService {
	return &PricingService{
		Command: NewPricingCommandService(publisher, seed),
		Query:   NewPricingQueryService(publisher, seed),
	}
}
