package apix

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"somp/ordersync/internal/entity"
)

// OrderPatch 订单字段更新（零值字段不提交）
type OrderPatch struct {
	OrderStatus       *entity.OrderStatus `json:"orderStatus,omitempty"`
	DeliveryPartner   *string             `json:"deliveryPartner,omitempty"`
	AssignedTo        *string             `json:"assignedTo,omitempty"`
	AssignedToID      *string             `json:"assignedToId,omitempty"`
	PaymentMarkedBy   *string             `json:"paymentMarkedBy,omitempty"`
	PaymentRecievedBy *string             `json:"paymentRecievedBy,omitempty"`
	Urgent            *bool               `json:"urgent,omitempty"`
	OrderItems        []entity.OrderItem  `json:"orderItems,omitempty"`
}

// DispatchPreviewItem 发货确认预览明细
type DispatchPreviewItem struct {
	ProductID      string          `json:"productId"`
	Name           string          `json:"name"`
	Dimension      string          `json:"dimension,omitempty"`
	Qty            int             `json:"qty"`
	Price          decimal.Decimal `json:"price"`
	AvailableStock int             `json:"availableStock"`
	CanFulfill     bool            `json:"canFulfill"`
}

// DispatchConfirmation 发货确认预览（进入发货工作流时拉取）
type DispatchConfirmation struct {
	OrderID string                `json:"orderId"`
	Items   []DispatchPreviewItem `json:"items"`
}

// DispatchItem 实际发货明细（提交用）
type DispatchItem struct {
	ProductID string `json:"productId,omitempty"`
	Name      string `json:"name"`
	Dimension string `json:"dimension,omitempty"`
	Qty       int    `json:"qty"`
}

// DispatchSubmission 发货提交（单次状态变更请求）
type DispatchSubmission struct {
	OrderStatus     entity.OrderStatus `json:"orderStatus"`
	DeliveryPartner string             `json:"deliveryPartner"`
	DispatchItems   []DispatchItem     `json:"dispatchItems"`
}

// StockStatusItem 单条库存充足性检查结果
type StockStatusItem struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	Dimension      string `json:"dimension,omitempty"`
	Qty            int    `json:"qty"`
	AvailableStock int    `json:"availableStock"`
	Sufficient     bool   `json:"sufficient"`
}

// FetchOrders 拉取订单全量列表
func (c *Client) FetchOrders(ctx context.Context) ([]entity.Order, error) {
	var orders []entity.Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// FetchOrderByOrderID 按业务键拉取单个订单
func (c *Client) FetchOrderByOrderID(ctx context.Context, orderID string) (*entity.Order, error) {
	var order entity.Order
	if err := c.do(ctx, http.MethodGet, "/orders/by-order-id/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchAssignedOrders 拉取指定员工名下的订单
func (c *Client) FetchAssignedOrders(ctx context.Context, userID string) ([]entity.Order, error) {
	var orders []entity.Order
	if err := c.do(ctx, http.MethodGet, "/orders/assigned/"+url.PathEscape(userID), nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder 创建订单
func (c *Client) CreateOrder(ctx context.Context, order *entity.Order) (*entity.Order, error) {
	var created entity.Order
	if err := c.do(ctx, http.MethodPost, "/orders", order, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateOrderByOrderID 按业务键更新订单字段（状态迁移、指派、付款标记等）
func (c *Client) UpdateOrderByOrderID(ctx context.Context, orderID string, patch OrderPatch) (*entity.Order, error) {
	var updated entity.Order
	if err := c.do(ctx, http.MethodPut, "/orders/by-order-id/"+url.PathEscape(orderID), patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteOrderByOrderID 删除订单（仅 Admin）
func (c *Client) DeleteOrderByOrderID(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodDelete, "/orders/by-order-id/"+url.PathEscape(orderID), nil, nil)
}

// CancelOrder 取消订单（服务端负责回补库存）
func (c *Client) CancelOrder(ctx context.Context, orderID, reason string) error {
	body := map[string]string{}
	if reason != "" {
		body["reason"] = reason
	}
	return c.do(ctx, http.MethodPost, "/orders/cancel/"+url.PathEscape(orderID), body, nil)
}

// FetchDispatchConfirmation 拉取发货确认预览（逐项库存可满足性）
func (c *Client) FetchDispatchConfirmation(ctx context.Context, orderID string) (*DispatchConfirmation, error) {
	var confirmation DispatchConfirmation
	if err := c.do(ctx, http.MethodGet, "/orders/dispatch-confirmation/"+url.PathEscape(orderID), nil, &confirmation); err != nil {
		return nil, err
	}
	return &confirmation, nil
}

// SubmitDispatch 提交发货（携带配送员与逐项发货数量的单次状态变更）
func (c *Client) SubmitDispatch(ctx context.Context, orderID string, submission DispatchSubmission) error {
	return c.do(ctx, http.MethodPut, "/orders/by-order-id/"+url.PathEscape(orderID), submission, nil)
}

// FetchStockStatus 拉取订单逐项库存充足性（详情页展示用）
func (c *Client) FetchStockStatus(ctx context.Context, orderID string) ([]StockStatusItem, error) {
	var items []StockStatusItem
	if err := c.do(ctx, http.MethodGet, "/orders/stock-status/"+url.PathEscape(orderID), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}
