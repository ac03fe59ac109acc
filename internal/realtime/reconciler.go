package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"somp/ordersync/internal/entity"
	"somp/ordersync/internal/notify"
	"somp/ordersync/internal/store"
	"somp/ordersync/pkg/logger"
)

// OrderFilter 按屏幕上下文过滤订单事件
// 如"我的订单"屏只调和指派给当前用户的订单
type OrderFilter func(*entity.Order) bool

// Config 调和器配置
// Orders 必填；Products/Staff 为 nil 时不订阅对应频道
type Config struct {
	Screen   string
	Orders   *store.OrderStore
	Products *store.ProductStore
	Staff    *store.StaffStore
	Filter   OrderFilter
}

// Reconciler 实时调和器
// 把推送事件翻译成对各缓存的幂等操作；订阅随屏幕聚焦挂载、失焦卸载
type Reconciler struct {
	cfg      *Config
	source   EventSource
	sink     notify.Sink
	log      logger.Logger
	attached *atomic.Bool
	wg       sync.WaitGroup
}

// NewReconciler 创建调和器
func NewReconciler(cfg *Config, source EventSource, sink notify.Sink, log logger.Logger) *Reconciler {
	return &Reconciler{
		cfg:      cfg,
		source:   source,
		sink:     sink,
		log:      log,
		attached: atomic.NewBool(false),
	}
}

// channels 根据挂载的缓存决定订阅哪些频道
func (r *Reconciler) channels() []string {
	channels := make([]string, 0, 10)
	if r.cfg.Orders != nil {
		channels = append(channels, OrderChannels()...)
	}
	if r.cfg.Products != nil {
		channels = append(channels, ProductChannels()...)
	}
	if r.cfg.Staff != nil {
		channels = append(channels, StaffChannels()...)
	}
	channels = append(channels, ChannelUserConnected)
	return channels
}

// Attach 挂载订阅，返回卸载函数
// 重复挂载视为缺陷（会导致事件被调和两次），直接报错；
// 卸载函数幂等，错误路径上也必须被调用
func (r *Reconciler) Attach(ctx context.Context) (func(), error) {
	if !r.attached.CAS(false, true) {
		return nil, fmt.Errorf("reconciler already attached: %s", r.cfg.Screen)
	}

	ctx = context.WithValue(ctx, "screen", r.cfg.Screen)

	sub, err := r.source.Subscribe(ctx, r.channels()...)
	if err != nil {
		r.attached.Store(false)
		return nil, fmt.Errorf("attach reconciler failed: %w", err)
	}

	r.wg.Add(1)
	go r.loop(ctx, sub)

	r.log.Infof(ctx, "[Reconciler] Attached: %s", r.cfg.Screen)

	detached := atomic.NewBool(false)
	detach := func() {
		if !detached.CAS(false, true) {
			return
		}
		_ = sub.Close()
		r.wg.Wait()
		r.attached.Store(false)
		r.log.Infof(ctx, "[Reconciler] Detached: %s", r.cfg.Screen)
	}
	return detach, nil
}

// loop 事件循环（订阅关闭后退出）
func (r *Reconciler) loop(ctx context.Context, sub Subscription) {
	defer r.wg.Done()

	for ev := range sub.Events() {
		r.apply(ctx, ev)
	}
}

// apply 调和单个事件（捕获 panic，单个坏事件不拖垮订阅）
func (r *Reconciler) apply(ctx context.Context, ev *Event) {
	ctx = context.WithValue(ctx, "event", ev.Channel)

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorf(ctx, "[Reconciler] apply panic: %v", rec)
		}
	}()

	switch ev.Entity {
	case EntityOrder:
		r.applyOrder(ctx, ev)
	case EntityProduct:
		r.applyProduct(ctx, ev)
	case EntityStaff:
		r.applyStaff(ctx, ev)
	case EntityUser:
		r.applyUser(ctx, ev)
	default:
		r.log.Debugf(ctx, "[Reconciler] Ignore unknown entity: %s", ev.Entity)
	}
}

// applyOrder 调和订单事件
func (r *Reconciler) applyOrder(ctx context.Context, ev *Event) {
	orders := r.cfg.Orders
	if orders == nil {
		return
	}

	switch ev.Action {
	case ActionCreated, ActionUpdated:
		var order entity.Order
		if err := json.Unmarshal(ev.Data, &order); err != nil {
			r.log.Warnf(ctx, "[Reconciler] Bad order payload: %v", err)
			return
		}

		if r.cfg.Filter != nil && !r.cfg.Filter(&order) {
			if ev.Action == ActionUpdated {
				// 更新后不再满足过滤条件（如改派他人），从本屏移除
				orders.Remove(order.StorageID)
			}
			return
		}

		if ev.Action == ActionCreated {
			// 防止本地刚插入的订单与事件赛跑造成重复
			if _, exists := orders.Get(order.StorageID); exists {
				r.log.Debugf(ctx, "[Reconciler] Duplicate create, skip: %s", order.OrderID)
				return
			}
			orders.Upsert(order)
			r.notifyActor(ctx, ev, fmt.Sprintf("Order %s created", order.OrderID))
			return
		}

		// updated：事件到达顺序即权威顺序，无条件覆盖
		orders.Upsert(order)
		r.notifyActor(ctx, ev, fmt.Sprintf("Order %s updated", order.OrderID))

	case ActionDeleted:
		id := ev.ID
		if id == "" {
			id = ev.OrderID
		}
		if id == "" {
			r.log.Warnf(ctx, "[Reconciler] Delete event without id, skip")
			return
		}
		orders.Remove(id)
		r.notifyActor(ctx, ev, fmt.Sprintf("Order %s deleted", ev.OrderID))

	default:
		r.log.Debugf(ctx, "[Reconciler] Ignore order action: %s", ev.Action)
	}
}

// applyProduct 调和产品事件
func (r *Reconciler) applyProduct(ctx context.Context, ev *Event) {
	products := r.cfg.Products
	if products == nil {
		return
	}

	switch ev.Action {
	case ActionCreated, ActionUpdated:
		var product entity.Product
		if err := json.Unmarshal(ev.Data, &product); err != nil {
			r.log.Warnf(ctx, "[Reconciler] Bad product payload: %v", err)
			return
		}
		products.Upsert(product)
		r.notifyActor(ctx, ev, fmt.Sprintf("Product %s %s", product.Name, ev.Action))

	case ActionDeleted:
		if ev.ID == "" {
			return
		}
		products.Remove(ev.ID)
		r.notifyActor(ctx, ev, "Product deleted")
	}
}

// applyStaff 调和员工事件
func (r *Reconciler) applyStaff(ctx context.Context, ev *Event) {
	staff := r.cfg.Staff
	if staff == nil {
		return
	}

	switch ev.Action {
	case ActionCreated, ActionUpdated:
		var member entity.Staff
		if err := json.Unmarshal(ev.Data, &member); err != nil {
			r.log.Warnf(ctx, "[Reconciler] Bad staff payload: %v", err)
			return
		}
		staff.Upsert(member)
		r.notifyActor(ctx, ev, fmt.Sprintf("Staff %s %s", member.Name, ev.Action))

	case ActionDeleted:
		if ev.ID == "" {
			return
		}
		staff.Remove(ev.ID)
		r.notifyActor(ctx, ev, "Staff deleted")
	}
}

// applyUser 用户上线事件（仅通知）
func (r *Reconciler) applyUser(ctx context.Context, ev *Event) {
	var payload struct {
		Name string `json:"name"`
	}
	if len(ev.Data) > 0 {
		_ = json.Unmarshal(ev.Data, &payload)
	}
	if payload.Name != "" && r.sink != nil {
		r.sink.Notify(ctx, fmt.Sprintf("%s connected", payload.Name))
	}
}

// notifyActor 携带操作人的通知文案
func (r *Reconciler) notifyActor(ctx context.Context, ev *Event, text string) {
	if r.sink == nil {
		return
	}
	if actor := ev.Actor(); actor != "" {
		text = fmt.Sprintf("%s by %s", text, actor)
	}
	r.sink.Notify(ctx, text)
}
