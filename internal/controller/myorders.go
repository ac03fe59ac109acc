package controller

import (
	"context"

	"somp/ordersync/internal/entity"
	"somp/ordersync/internal/notify"
	"somp/ordersync/internal/realtime"
	"somp/ordersync/internal/session"
	"somp/ordersync/internal/store"
	"somp/ordersync/pkg/logger"
)

// MyOrdersAPI 我的订单屏依赖的后端接口
type MyOrdersAPI interface {
	FetchAssignedOrders(ctx context.Context, userID string) ([]entity.Order, error)
}

// assignedLoader 按当前用户过滤的全量拉取
type assignedLoader struct {
	api    MyOrdersAPI
	userID string
}

func (l *assignedLoader) FetchOrders(ctx context.Context) ([]entity.Order, error) {
	return l.api.FetchAssignedOrders(ctx, l.userID)
}

// MyOrdersController 我的订单屏控制器
// 持有独立缓存；只调和指派给当前用户的订单事件，
// 改派他人的更新事件会把订单从本屏移除
type MyOrdersController struct {
	sess       *session.Session
	orders     *store.OrderStore
	reconciler *realtime.Reconciler
	log        logger.Logger
	detach     func()
}

// NewMyOrdersController 创建我的订单屏控制器
func NewMyOrdersController(
	api MyOrdersAPI,
	sess *session.Session,
	source realtime.EventSource,
	sink notify.Sink,
	log logger.Logger,
) *MyOrdersController {
	orders := store.NewOrderStore(&assignedLoader{api: api, userID: sess.UserID}, log)

	reconciler := realtime.NewReconciler(&realtime.Config{
		Screen: "my-orders",
		Orders: orders,
		Filter: func(o *entity.Order) bool {
			return o.AssignedToID == sess.UserID
		},
	}, source, sink, log)

	return &MyOrdersController{
		sess:       sess,
		orders:     orders,
		reconciler: reconciler,
		log:        log,
	}
}

// Focus 聚焦：挂订阅并全量刷新
func (c *MyOrdersController) Focus(ctx context.Context) error {
	detach, err := c.reconciler.Attach(ctx)
	if err != nil {
		return err
	}
	c.detach = detach
	return c.orders.Load(ctx)
}

// Blur 失焦：卸载订阅
func (c *MyOrdersController) Blur() {
	if c.detach != nil {
		c.detach()
		c.detach = nil
	}
}

// Refresh 手动刷新
func (c *MyOrdersController) Refresh(ctx context.Context) error {
	return c.orders.Load(ctx)
}

// Orders 当前用户名下的订单
func (c *MyOrdersController) Orders() []entity.Order {
	return c.orders.List()
}

// Counts 状态角标计数
func (c *MyOrdersController) Counts() map[entity.OrderStatus]int {
	return c.orders.CountsByStatus()
}

// Store 本屏缓存（测试与组合用）
func (c *MyOrdersController) Store() *store.OrderStore {
	return c.orders
}
