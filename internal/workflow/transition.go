package workflow

import (
	"context"
	"fmt"

	"go.uber.org/atomic"

	"somp/ordersync/internal/entity"
	"somp/ordersync/internal/status"
	"somp/ordersync/internal/store"
	"somp/ordersync/pkg/apix"
	"somp/ordersync/pkg/errorx"
	"somp/ordersync/pkg/logger"
)

// TransitionAPI 状态迁移依赖的后端接口
type TransitionAPI interface {
	UpdateOrderByOrderID(ctx context.Context, orderID string, patch apix.OrderPatch) (*entity.Order, error)
}

// Transitioner 非发货状态迁移流程
// 两段式提交：本地校验 → 网络请求 → 成功后权威全量刷新；
// 请求前不改写缓存，被拒绝时缓存自然保持先前状态
type Transitioner struct {
	api      TransitionAPI
	orders   *store.OrderStore
	log      logger.Logger
	inFlight *atomic.Bool
}

// NewTransitioner 创建迁移流程
func NewTransitioner(api TransitionAPI, orders *store.OrderStore, log logger.Logger) *Transitioner {
	return &Transitioner{
		api:      api,
		orders:   orders,
		log:      log,
		inFlight: atomic.NewBool(false),
	}
}

// ChangeStatus 直接状态迁移（DC、Invoice 等非发货目标）
// 迁移表校验在渲染时查过一次，这里提交前再防御性查一次——
// 其他用户的并发编辑可能已经改变了权威状态
func (t *Transitioner) ChangeStatus(ctx context.Context, orderID string, next entity.OrderStatus) error {
	if next == entity.OrderStatusDispatched {
		return errorx.Validation(errorx.ErrWorkflowState, "dispatch requires the dispatch workflow")
	}

	order, ok := t.orders.GetByOrderID(orderID)
	if !ok {
		return errorx.Validation(errorx.ErrOrderNotFound, fmt.Sprintf("order not found: %s", orderID))
	}

	if !status.CanTransition(order.OrderStatus, next) {
		return errorx.Validation(errorx.ErrIllegalTransition,
			fmt.Sprintf("cannot change status from %s to %s", order.OrderStatus, next))
	}

	if !t.inFlight.CAS(false, true) {
		return errorx.Validation(errorx.ErrSubmitInFlight, "status change already in flight")
	}
	defer t.inFlight.Store(false)

	patch := apix.OrderPatch{OrderStatus: &next}
	if _, err := t.api.UpdateOrderByOrderID(ctx, orderID, patch); err != nil {
		// 缓存未被触碰，先前状态即当前状态
		t.log.Warnf(ctx, "[Transition] %s → %s rejected, previous status kept: %v", order.OrderStatus, next, err)
		return err
	}

	t.log.Infof(ctx, "[Transition] Order %s: %s → %s", orderID, order.OrderStatus, next)

	if loadErr := t.orders.Load(ctx); loadErr != nil {
		t.log.Warnf(ctx, "[Transition] Post-update reload failed: %v", loadErr)
	}
	return nil
}

// AssignPartnerAndChangeStatus 旧版"指定配送员"路径
// 选择配送员后随状态一并提交；被拒绝时不留下任何半套状态
func (t *Transitioner) AssignPartnerAndChangeStatus(ctx context.Context, orderID string, next entity.OrderStatus, partner *entity.Staff) error {
	if partner == nil {
		return errorx.Validation(errorx.ErrPartnerRequired, "select a delivery partner first")
	}

	order, ok := t.orders.GetByOrderID(orderID)
	if !ok {
		return errorx.Validation(errorx.ErrOrderNotFound, fmt.Sprintf("order not found: %s", orderID))
	}

	if !status.CanTransition(order.OrderStatus, next) {
		return errorx.Validation(errorx.ErrIllegalTransition,
			fmt.Sprintf("cannot change status from %s to %s", order.OrderStatus, next))
	}

	if !t.inFlight.CAS(false, true) {
		return errorx.Validation(errorx.ErrSubmitInFlight, "status change already in flight")
	}
	defer t.inFlight.Store(false)

	patch := apix.OrderPatch{
		OrderStatus:     &next,
		DeliveryPartner: &partner.Name,
	}
	if _, err := t.api.UpdateOrderByOrderID(ctx, orderID, patch); err != nil {
		t.log.Warnf(ctx, "[Transition] Assign partner rejected, previous status kept: %v", err)
		return err
	}

	if loadErr := t.orders.Load(ctx); loadErr != nil {
		t.log.Warnf(ctx, "[Transition] Post-update reload failed: %v", loadErr)
	}
	return nil
}
