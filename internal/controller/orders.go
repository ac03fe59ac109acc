package controller

import (
	"context"
	"fmt"

	"somp/ordersync/internal/entity"
	"somp/ordersync/internal/notify"
	"somp/ordersync/internal/realtime"
	"somp/ordersync/internal/session"
	"somp/ordersync/internal/status"
	"somp/ordersync/internal/store"
	"somp/ordersync/internal/workflow"
	"somp/ordersync/pkg/apix"
	"somp/ordersync/pkg/errorx"
	"somp/ordersync/pkg/logger"
)

// OrdersAPI 订单列表屏依赖的后端接口
type OrdersAPI interface {
	workflow.DispatchAPI
	workflow.TransitionAPI
	DeleteOrderByOrderID(ctx context.Context, orderID string) error
	CancelOrder(ctx context.Context, orderID, reason string) error
	FetchStockStatus(ctx context.Context, orderID string) ([]apix.StockStatusItem, error)
}

// OrdersController 订单列表/详情屏控制器
// 聚焦时挂载实时订阅并全量刷新，失焦时卸载；
// 所有状态变更走两段式提交，缓存只接受权威数据
type OrdersController struct {
	api          OrdersAPI
	sess         *session.Session
	orders       *store.OrderStore
	staff        *store.StaffStore
	reconciler   *realtime.Reconciler
	transitioner *workflow.Transitioner
	dispatch     *workflow.Dispatch
	log          logger.Logger
	detach       func()
}

// NewOrdersController 创建订单屏控制器
func NewOrdersController(
	api OrdersAPI,
	sess *session.Session,
	orders *store.OrderStore,
	staff *store.StaffStore,
	source realtime.EventSource,
	sink notify.Sink,
	log logger.Logger,
) *OrdersController {
	reconciler := realtime.NewReconciler(&realtime.Config{
		Screen: "orders",
		Orders: orders,
		Staff:  staff,
	}, source, sink, log)

	return &OrdersController{
		api:          api,
		sess:         sess,
		orders:       orders,
		staff:        staff,
		reconciler:   reconciler,
		transitioner: workflow.NewTransitioner(api, orders, log),
		dispatch:     workflow.NewDispatch(api, orders, log),
		log:          log,
	}
}

// Focus 屏幕聚焦：先挂订阅再全量刷新，弥合订阅建立前错过的事件
func (c *OrdersController) Focus(ctx context.Context) error {
	detach, err := c.reconciler.Attach(ctx)
	if err != nil {
		return err
	}
	c.detach = detach

	if err := c.staff.Load(ctx); err != nil {
		c.log.Warnf(ctx, "[OrdersController] Staff load failed: %v", err)
	}
	return c.orders.Load(ctx)
}

// Blur 屏幕失焦：卸载订阅（不卸载会导致事件被调和两次）
func (c *OrdersController) Blur() {
	if c.detach != nil {
		c.detach()
		c.detach = nil
	}
}

// Refresh 手动刷新（下拉刷新、断线重连后的再同步）
func (c *OrdersController) Refresh(ctx context.Context) error {
	return c.orders.Load(ctx)
}

// Orders 当前可见订单列表
func (c *OrdersController) Orders() []entity.Order {
	return c.orders.List()
}

// Counts 状态筛选角标计数
func (c *OrdersController) Counts() map[entity.OrderStatus]int {
	return c.orders.CountsByStatus()
}

// FilterByStatus 按状态过滤
func (c *OrdersController) FilterByStatus(s entity.OrderStatus) []entity.Order {
	all := c.orders.List()
	out := make([]entity.Order, 0, len(all))
	for _, o := range all {
		if o.OrderStatus == s {
			out = append(out, o)
		}
	}
	return out
}

// AvailableTransitions 渲染"修改状态"入口前查询合法后继
func (c *OrdersController) AvailableTransitions(orderID string) []entity.OrderStatus {
	order, ok := c.orders.GetByOrderID(orderID)
	if !ok {
		return nil
	}
	return status.ValidNextStatuses(order.OrderStatus)
}

// ChangeStatus 非发货状态迁移
// 目标为 Dispatched 时必须改走发货工作流（BeginDispatch）
func (c *OrdersController) ChangeStatus(ctx context.Context, orderID string, next entity.OrderStatus) error {
	return c.transitioner.ChangeStatus(ctx, orderID, next)
}

// AssignPartnerAndChangeStatus 旧版指定配送员路径
func (c *OrdersController) AssignPartnerAndChangeStatus(ctx context.Context, orderID string, next entity.OrderStatus, partner *entity.Staff) error {
	return c.transitioner.AssignPartnerAndChangeStatus(ctx, orderID, next, partner)
}

// BeginDispatch 进入发货工作流
func (c *OrdersController) BeginDispatch(ctx context.Context, orderID string) error {
	return c.dispatch.Open(ctx, orderID)
}

// Dispatch 发货工作流句柄（复核界面直接操作）
func (c *OrdersController) Dispatch() *workflow.Dispatch {
	return c.dispatch
}

// DeliveryPartners 配送员候选（员工缓存，可为空列表）
func (c *OrdersController) DeliveryPartners() []entity.Staff {
	return c.staff.List()
}

// Delete 删除订单（仅 Admin）
func (c *OrdersController) Delete(ctx context.Context, orderID string) error {
	if !c.sess.IsAdmin() {
		return errorx.Validation(errorx.ErrAdminOnly, "only admins can delete orders")
	}
	if err := c.api.DeleteOrderByOrderID(ctx, orderID); err != nil {
		return err
	}
	return c.orders.Load(ctx)
}

// Cancel 取消订单（服务端回补库存后全量刷新）
func (c *OrdersController) Cancel(ctx context.Context, orderID, reason string) error {
	if err := c.api.CancelOrder(ctx, orderID, reason); err != nil {
		return err
	}
	return c.orders.Load(ctx)
}

// ToggleUrgent 切换加急标记（与状态无关）
func (c *OrdersController) ToggleUrgent(ctx context.Context, orderID string) error {
	order, ok := c.orders.GetByOrderID(orderID)
	if !ok {
		return errorx.Validation(errorx.ErrOrderNotFound, fmt.Sprintf("order not found: %s", orderID))
	}
	urgent := !order.Urgent
	if _, err := c.api.UpdateOrderByOrderID(ctx, orderID, apix.OrderPatch{Urgent: &urgent}); err != nil {
		return err
	}
	return c.orders.Load(ctx)
}

// MarkPayment 标记付款（记录操作人）
func (c *OrdersController) MarkPayment(ctx context.Context, orderID string) error {
	name := c.sess.UserName
	if _, err := c.api.UpdateOrderByOrderID(ctx, orderID, apix.OrderPatch{PaymentMarkedBy: &name}); err != nil {
		return err
	}
	return c.orders.Load(ctx)
}

// ConfirmPaymentReceived 确认收款（两个标记都在即视为已付款）
func (c *OrdersController) ConfirmPaymentReceived(ctx context.Context, orderID string) error {
	name := c.sess.UserName
	if _, err := c.api.UpdateOrderByOrderID(ctx, orderID, apix.OrderPatch{PaymentRecievedBy: &name}); err != nil {
		return err
	}
	return c.orders.Load(ctx)
}

// Assign 改派订单给指定员工
func (c *OrdersController) Assign(ctx context.Context, orderID string, member *entity.Staff) error {
	if member == nil {
		return errorx.Validation(nil, "select a staff member first")
	}
	patch := apix.OrderPatch{
		AssignedTo:   &member.Name,
		AssignedToID: &member.StorageID,
	}
	if _, err := c.api.UpdateOrderByOrderID(ctx, orderID, patch); err != nil {
		return err
	}
	return c.orders.Load(ctx)
}

// StockStatus 订单逐项库存充足性（详情展示）
func (c *OrdersController) StockStatus(ctx context.Context, orderID string) ([]apix.StockStatusItem, error) {
	return c.api.FetchStockStatus(ctx, orderID)
}
