package controller

import (
	"context"

	"somp/ordersync/internal/entity"
	"somp/ordersync/internal/notify"
	"somp/ordersync/internal/realtime"
	"somp/ordersync/internal/store"
	"somp/ordersync/pkg/logger"
)

// InventoryController 库存检查屏控制器
// 只关心产品缓存与 product:* 事件；库存量本身从不由客户端改写
type InventoryController struct {
	products   *store.ProductStore
	reconciler *realtime.Reconciler
	log        logger.Logger
	detach     func()
}

// NewInventoryController 创建库存屏控制器
func NewInventoryController(
	loader store.ProductLoader,
	source realtime.EventSource,
	sink notify.Sink,
	log logger.Logger,
) *InventoryController {
	products := store.NewProductStore(loader, log)

	reconciler := realtime.NewReconciler(&realtime.Config{
		Screen:   "inventory",
		Products: products,
	}, source, sink, log)

	return &InventoryController{
		products:   products,
		reconciler: reconciler,
		log:        log,
	}
}

// Focus 聚焦：挂订阅并全量刷新
func (c *InventoryController) Focus(ctx context.Context) error {
	detach, err := c.reconciler.Attach(ctx)
	if err != nil {
		return err
	}
	c.detach = detach
	return c.products.Load(ctx)
}

// Blur 失焦：卸载订阅
func (c *InventoryController) Blur() {
	if c.detach != nil {
		c.detach()
		c.detach = nil
	}
}

// Refresh 手动刷新
func (c *InventoryController) Refresh(ctx context.Context) error {
	return c.products.Load(ctx)
}

// Products 全部产品
func (c *InventoryController) Products() []entity.Product {
	return c.products.List()
}

// LowStock 达到低库存阈值的产品
func (c *InventoryController) LowStock() []entity.Product {
	return c.products.LowStock()
}
