package status

import (
	"somp/ordersync/internal/entity"
)

// transitionTable 订单状态迁移表
// 规则：Pending → DC → Invoice → Dispatched，其中 DC 允许直接到 Dispatched
// （发货工作流本身带有"发票已创建"确认门槛，跳过 Invoice 状态不会跳过发票确认）
var transitionTable = map[entity.OrderStatus][]entity.OrderStatus{
	entity.OrderStatusPending:    {entity.OrderStatusDC},
	entity.OrderStatusDC:         {entity.OrderStatusInvoice, entity.OrderStatusDispatched},
	entity.OrderStatusInvoice:    {entity.OrderStatusDispatched},
	entity.OrderStatusDispatched: {},
}

// AllStatuses 全部状态（按工作流顺序）
func AllStatuses() []entity.OrderStatus {
	return []entity.OrderStatus{
		entity.OrderStatusPending,
		entity.OrderStatusDC,
		entity.OrderStatusInvoice,
		entity.OrderStatusDispatched,
	}
}

// ValidNextStatuses 返回当前状态的合法后继集合
// 未知状态返回空集合
func ValidNextStatuses(current entity.OrderStatus) []entity.OrderStatus {
	next, ok := transitionTable[current]
	if !ok {
		return nil
	}

	// 返回副本，调用方不可修改迁移表
	out := make([]entity.OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition 判断 current → next 是否合法
func CanTransition(current, next entity.OrderStatus) bool {
	for _, s := range transitionTable[current] {
		if s == next {
			return true
		}
	}
	return false
}

// IsTerminal 是否为终态
func IsTerminal(s entity.OrderStatus) bool {
	return len(transitionTable[s]) == 0 && s == entity.OrderStatusDispatched
}
