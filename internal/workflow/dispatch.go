package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/atomic"

	"somp/ordersync/internal/entity"
	"somp/ordersync/internal/store"
	"somp/ordersync/pkg/apix"
	"somp/ordersync/pkg/errorx"
	"somp/ordersync/pkg/logger"
)

// DispatchAPI 发货工作流依赖的后端接口
type DispatchAPI interface {
	FetchDispatchConfirmation(ctx context.Context, orderID string) (*apix.DispatchConfirmation, error)
	SubmitDispatch(ctx context.Context, orderID string, submission apix.DispatchSubmission) error
}

// State 工作流状态
type State int

const (
	// StateIdle 未进入工作流
	StateIdle State = iota
	// StateLoading 正在拉取发货确认预览
	StateLoading
	// StateReviewing 复核中（可编辑数量、选配送员、确认发票）
	StateReviewing
	// StateSubmitting 提交中
	StateSubmitting
)

// String 状态名
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StateReviewing:
		return "Reviewing"
	case StateSubmitting:
		return "Submitting"
	default:
		return "Unknown"
	}
}

// ReviewItem 复核明细
// DispatchQty 可编辑，进入复核时预填为订购数量
type ReviewItem struct {
	ProductID      string
	Name           string
	Dimension      string
	OrderedQty     int
	Price          decimal.Decimal
	AvailableStock int
	CanFulfill     bool
	DispatchQty    int
}

// Dispatch 发货工作流
// 短生命周期的模态子状态机：
// Idle → Loading → Reviewing → Submitting → {成功回 Idle | 失败回 Reviewing}
// 提交前不对 Order Store 做任何投机修改，成功后触发权威全量刷新
type Dispatch struct {
	api    DispatchAPI
	orders *store.OrderStore
	log    logger.Logger

	mu         sync.Mutex
	state      State
	orderID    string
	gen        uint64 // 每次 Open/reset 递增，标记迟到的加载结果
	items      []ReviewItem
	partner    *entity.Staff
	invoiceAck bool

	// 在途请求防抖：同一动作重复触发直接拒绝
	inFlight *atomic.Bool
}

// NewDispatch 创建发货工作流
func NewDispatch(api DispatchAPI, orders *store.OrderStore, log logger.Logger) *Dispatch {
	return &Dispatch{
		api:      api,
		orders:   orders,
		log:      log,
		state:    StateIdle,
		inFlight: atomic.NewBool(false),
	}
}

// State 当前状态
func (d *Dispatch) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// OrderID 当前复核的订单业务键
func (d *Dispatch) OrderID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.orderID
}

// Items 复核明细副本
func (d *Dispatch) Items() []ReviewItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ReviewItem, len(d.items))
	copy(out, d.items)
	return out
}

// Partner 当前选中的配送员
func (d *Dispatch) Partner() *entity.Staff {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.partner
}

// InvoiceAcked 发票确认状态
func (d *Dispatch) InvoiceAcked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.invoiceAck
}

// Open 进入工作流（目标状态选择 Dispatched 时触发）
// 拉取逐项库存预览并预填发货数量；失败回到 Idle
func (d *Dispatch) Open(ctx context.Context, orderID string) error {
	d.mu.Lock()
	if d.state != StateIdle {
		d.mu.Unlock()
		return errorx.Validation(errorx.ErrWorkflowState,
			fmt.Sprintf("dispatch workflow is already open (state: %s)", d.state))
	}
	d.state = StateLoading
	d.orderID = orderID
	d.gen++
	gen := d.gen
	d.mu.Unlock()

	confirmation, err := d.api.FetchDispatchConfirmation(ctx, orderID)

	d.mu.Lock()
	defer d.mu.Unlock()

	// Loading 期间被 Cancel 或被新的 Open 取代：迟到的结果直接丢弃，
	// 不能让已关闭的工作流被复活
	if d.state != StateLoading || d.gen != gen {
		return errorx.Validation(errorx.ErrWorkflowState, "dispatch workflow closed while loading")
	}

	if err != nil {
		d.reset()
		return err
	}

	d.items = make([]ReviewItem, 0, len(confirmation.Items))
	for _, item := range confirmation.Items {
		d.items = append(d.items, ReviewItem{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Dimension:      item.Dimension,
			OrderedQty:     item.Qty,
			Price:          item.Price,
			AvailableStock: item.AvailableStock,
			CanFulfill:     item.CanFulfill,
			DispatchQty:    item.Qty, // 预填订购数量
		})
	}
	d.state = StateReviewing

	d.log.Infof(ctx, "[Dispatch] Reviewing order %s, %d items", orderID, len(d.items))
	return nil
}

// SelectPartner 选择配送员
func (d *Dispatch) SelectPartner(partner *entity.Staff) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateReviewing {
		return errorx.Validation(errorx.ErrWorkflowState, "cannot select partner outside reviewing")
	}
	d.partner = partner
	return nil
}

// AckInvoice 勾选/取消"发票已创建"确认
func (d *Dispatch) AckInvoice(acked bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateReviewing {
		return errorx.Validation(errorx.ErrWorkflowState, "cannot ack invoice outside reviewing")
	}
	d.invoiceAck = acked
	return nil
}

// SetDispatchQty 录入第 index 项的发货数量
// 越界数值照存不截断，由提交前校验拦下（静默截断会掩盖操作失误）
func (d *Dispatch) SetDispatchQty(index, qty int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateReviewing {
		return errorx.Validation(errorx.ErrWorkflowState, "cannot edit quantity outside reviewing")
	}
	if index < 0 || index >= len(d.items) {
		return errorx.Validation(nil, fmt.Sprintf("item index out of range: %d", index))
	}
	d.items[index].DispatchQty = qty
	return nil
}

// validate 提交前本地校验（持锁调用）
// 任一校验不通过则不发起网络请求
func (d *Dispatch) validate() error {
	if d.partner == nil {
		return errorx.Validation(errorx.ErrPartnerRequired, "select a delivery partner before dispatch")
	}
	if !d.invoiceAck {
		return errorx.Validation(errorx.ErrInvoiceAckRequired, "confirm the invoice has been created")
	}
	for _, item := range d.items {
		if item.DispatchQty < 0 || item.DispatchQty > item.OrderedQty {
			return errorx.Validation(errorx.ErrQtyOutOfRange,
				fmt.Sprintf("dispatch quantity for %s must be between 0 and %d", item.Name, item.OrderedQty))
		}
	}
	return nil
}

// Submit 提交发货
// 成功：关闭工作流、清空暂存、触发 Order Store 全量刷新（发货还会变动库存）
// 失败：停留在 Reviewing，暂存内容全部保留
func (d *Dispatch) Submit(ctx context.Context) error {
	if !d.inFlight.CAS(false, true) {
		return errorx.Validation(errorx.ErrSubmitInFlight, "dispatch submission already in flight")
	}
	defer d.inFlight.Store(false)

	d.mu.Lock()
	if d.state != StateReviewing {
		d.mu.Unlock()
		return errorx.Validation(errorx.ErrWorkflowState,
			fmt.Sprintf("cannot submit in state %s", d.state))
	}

	if err := d.validate(); err != nil {
		d.mu.Unlock()
		return err
	}

	orderID := d.orderID
	submission := apix.DispatchSubmission{
		OrderStatus:     entity.OrderStatusDispatched,
		DeliveryPartner: d.partner.Name,
		DispatchItems:   make([]apix.DispatchItem, 0, len(d.items)),
	}
	for _, item := range d.items {
		submission.DispatchItems = append(submission.DispatchItems, apix.DispatchItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Dimension: item.Dimension,
			Qty:       item.DispatchQty,
		})
	}
	d.state = StateSubmitting
	d.mu.Unlock()

	err := d.api.SubmitDispatch(ctx, orderID, submission)

	d.mu.Lock()
	if err != nil {
		// 服务端拒绝（如并发库存变动）：消息原样上抛，暂存保留
		d.state = StateReviewing
		d.mu.Unlock()
		d.log.Warnf(ctx, "[Dispatch] Submit rejected for %s: %v", orderID, err)
		return err
	}

	d.reset()
	d.mu.Unlock()

	d.log.Infof(ctx, "[Dispatch] Order %s dispatched", orderID)

	// 权威全量刷新；失败不影响已成功的提交，留给调用方重试
	if loadErr := d.orders.Load(ctx); loadErr != nil {
		d.log.Warnf(ctx, "[Dispatch] Post-dispatch reload failed: %v", loadErr)
	}
	return nil
}

// Cancel 提交前关闭工作流
// 丢弃全部暂存，不发起任何网络请求，订单状态保持不变
func (d *Dispatch) Cancel() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateSubmitting {
		return errorx.Validation(errorx.ErrWorkflowState, "cannot cancel while submitting")
	}
	d.reset()
	return nil
}

// reset 清空暂存回到 Idle（持锁调用）
// gen 递增使在途的加载结果全部失效
func (d *Dispatch) reset() {
	d.state = StateIdle
	d.orderID = ""
	d.gen++
	d.items = nil
	d.partner = nil
	d.invoiceAck = false
}
