package entity

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// 错误定义
var (
	ErrInvalidOrderID = errors.New("order ID cannot be empty")
	ErrNoOrderItems   = errors.New("order must have at least one item")
	ErrInvalidItemQty = errors.New("item quantity must be positive")
)

// OrderStatus 订单状态（工作流唯一事实来源）
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusDC         OrderStatus = "DC"
	OrderStatusInvoice    OrderStatus = "Invoice"
	OrderStatusDispatched OrderStatus = "Dispatched"
)

// PaymentCondition 付款条件
type PaymentCondition string

const (
	PaymentImmediate PaymentCondition = "Immediate"
	Payment15Days    PaymentCondition = "15 Days"
	Payment30Days    PaymentCondition = "30 Days"
)

// Order 订单聚合根
// OrderID 为业务键（创建后不可变），StorageID 为存储标识（_id）
type Order struct {
	StorageID        string           `json:"_id"`
	OrderID          string           `json:"orderId"`
	OrderStatus      OrderStatus      `json:"orderStatus"`
	OrderItems       []OrderItem      `json:"orderItems"`
	AssignedTo       string           `json:"assignedTo,omitempty"`
	AssignedToID     string           `json:"assignedToId,omitempty"`
	DeliveryPartner  string           `json:"deliveryPartner,omitempty"`
	PaymentCondition PaymentCondition `json:"paymentCondition,omitempty"`
	PaymentMarkedBy  string           `json:"paymentMarkedBy,omitempty"`
	// 字段名沿用后端契约的拼写
	PaymentRecievedBy string    `json:"paymentRecievedBy,omitempty"`
	Urgent            bool      `json:"urgent"`
	Date              time.Time `json:"date"`
}

// OrderItem 订单明细（值对象）
// 不变量：Total = Qty * Price
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Dimension string          `json:"dimension,omitempty"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

// ComputedTotal 按 Qty*Price 计算的明细金额
func (i OrderItem) ComputedTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// NewOrderItem 创建订单明细（自动维护 Total 不变量）
func NewOrderItem(productID, name, dimension string, qty int, price decimal.Decimal) (OrderItem, error) {
	if qty <= 0 {
		return OrderItem{}, ErrInvalidItemQty
	}
	item := OrderItem{
		ProductID: productID,
		Name:      name,
		Dimension: dimension,
		Qty:       qty,
		Price:     price,
	}
	item.Total = item.ComputedTotal()
	return item, nil
}

// NewOrder 创建订单（工厂方法，新订单始终处于 Pending）
func NewOrder(storageID, orderID string, items []OrderItem) (*Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if len(items) == 0 {
		return nil, ErrNoOrderItems
	}

	return &Order{
		StorageID:   storageID,
		OrderID:     orderID,
		OrderStatus: OrderStatusPending,
		OrderItems:  items,
		Date:        time.Now(),
	}, nil
}

// Total 订单总金额（明细金额之和）
func (o *Order) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.OrderItems {
		sum = sum.Add(item.Total)
	}
	return sum
}

// ItemTotalsConsistent 校验每条明细是否满足 Total = Qty*Price
func (o *Order) ItemTotalsConsistent() bool {
	for _, item := range o.OrderItems {
		if !item.Total.Equal(item.ComputedTotal()) {
			return false
		}
	}
	return true
}

// IsPaid 付款标记与收款标记都存在时视为已付款
func (o *Order) IsPaid() bool {
	return o.PaymentMarkedBy != "" && o.PaymentRecievedBy != ""
}
