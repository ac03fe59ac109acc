package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"somp/ordersync/internal/entity"
	"somp/ordersync/internal/notify"
	"somp/ordersync/internal/store"
	"somp/ordersync/pkg/logger"
)

// fakeSource 内存事件源（测试用）
type fakeSource struct {
	mu   sync.Mutex
	subs []*fakeSub
}

type fakeSub struct {
	ch     chan *Event
	closed bool
	mu     sync.Mutex
}

func (s *fakeSub) Events() <-chan *Event { return s.ch }

func (s *fakeSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

func (f *fakeSource) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	sub := &fakeSub{ch: make(chan *Event, 16)}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, nil
}

func (f *fakeSource) Close() error { return nil }

// emit 向所有在线订阅广播
func (f *fakeSource) emit(ev *Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		sub.mu.Lock()
		if !sub.closed {
			sub.ch <- ev
		}
		sub.mu.Unlock()
	}
}

type stubLoader struct{ orders []entity.Order }

func (l *stubLoader) FetchOrders(ctx context.Context) ([]entity.Order, error) {
	return l.orders, nil
}

func orderEvent(t *testing.T, channel string, o entity.Order, actor string) *Event {
	t.Helper()
	data, err := json.Marshal(o)
	require.NoError(t, err)

	ev, err := ParseEvent(channel, nil)
	require.NoError(t, err)
	ev.Data = data
	ev.ID = o.StorageID
	ev.OrderID = o.OrderID
	switch ev.Action {
	case ActionCreated:
		ev.CreatedBy = actor
	case ActionUpdated:
		ev.UpdatedBy = actor
	case ActionDeleted:
		ev.DeletedBy = actor
	}
	return ev
}

func newOrderReconciler(t *testing.T, source *fakeSource, filter OrderFilter) (*Reconciler, *store.OrderStore) {
	t.Helper()
	orders := store.NewOrderStore(&stubLoader{}, logger.NopLogger{})
	r := NewReconciler(&Config{
		Screen: "test",
		Orders: orders,
		Filter: filter,
	}, source, notify.NopSink{}, logger.NopLogger{})
	return r, orders
}

func eventuallyLen(t *testing.T, s *store.OrderStore, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Len() == want }, time.Second, 5*time.Millisecond)
}

func TestReconciler_CreateUpdateDelete(t *testing.T) {
	source := &fakeSource{}
	r, orders := newOrderReconciler(t, source, nil)

	detach, err := r.Attach(context.Background())
	require.NoError(t, err)
	defer detach()

	o := entity.Order{StorageID: "a", OrderID: "ORD-1", OrderStatus: entity.OrderStatusPending}
	source.emit(orderEvent(t, ChannelOrderCreated, o, "Asha"))
	eventuallyLen(t, orders, 1)

	o.OrderStatus = entity.OrderStatusDC
	source.emit(orderEvent(t, ChannelOrderUpdated, o, "Asha"))
	require.Eventually(t, func() bool {
		got, ok := orders.Get("a")
		return ok && got.OrderStatus == entity.OrderStatusDC
	}, time.Second, 5*time.Millisecond)

	source.emit(orderEvent(t, ChannelOrderDeleted, o, "Asha"))
	eventuallyLen(t, orders, 0)
}

func TestReconciler_DuplicateCreateIsGuarded(t *testing.T) {
	source := &fakeSource{}
	r, orders := newOrderReconciler(t, source, nil)

	detach, err := r.Attach(context.Background())
	require.NoError(t, err)
	defer detach()

	// 本地乐观插入与 created 事件赛跑
	local := entity.Order{StorageID: "a", OrderID: "ORD-1", OrderStatus: entity.OrderStatusPending}
	orders.Upsert(local)

	stale := local
	stale.Urgent = true
	source.emit(orderEvent(t, ChannelOrderCreated, stale, "Asha"))

	// 事件被跳过：仍是本地那份，条数不变
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, orders.Len())
	got, _ := orders.Get("a")
	require.False(t, got.Urgent)
}

func TestReconciler_MyOrdersFilter(t *testing.T) {
	source := &fakeSource{}
	r, orders := newOrderReconciler(t, source, func(o *entity.Order) bool {
		return o.AssignedToID == "me"
	})

	detach, err := r.Attach(context.Background())
	require.NoError(t, err)
	defer detach()

	mine := entity.Order{StorageID: "a", OrderID: "ORD-1", AssignedToID: "me", OrderStatus: entity.OrderStatusPending}
	other := entity.Order{StorageID: "b", OrderID: "ORD-2", AssignedToID: "someone", OrderStatus: entity.OrderStatusPending}

	source.emit(orderEvent(t, ChannelOrderCreated, mine, ""))
	source.emit(orderEvent(t, ChannelOrderCreated, other, ""))
	eventuallyLen(t, orders, 1)

	// 改派他人后从本屏移除
	mine.AssignedToID = "someone"
	source.emit(orderEvent(t, ChannelOrderUpdated, mine, ""))
	eventuallyLen(t, orders, 0)
}

func TestReconciler_DeleteReachesEveryScreen(t *testing.T) {
	source := &fakeSource{}

	listReconciler, listOrders := newOrderReconciler(t, source, nil)
	detailReconciler, detailOrders := newOrderReconciler(t, source, nil)

	detachList, err := listReconciler.Attach(context.Background())
	require.NoError(t, err)
	defer detachList()

	detachDetail, err := detailReconciler.Attach(context.Background())
	require.NoError(t, err)
	defer detachDetail()

	o := entity.Order{StorageID: "a", OrderID: "ORD-1", OrderStatus: entity.OrderStatusDC}
	listOrders.Upsert(o)
	detailOrders.Upsert(o)

	// 无需手动刷新，删除事件同时打到所有已挂载屏幕
	source.emit(orderEvent(t, ChannelOrderDeleted, o, "Admin"))
	eventuallyLen(t, listOrders, 0)
	eventuallyLen(t, detailOrders, 0)
}

func TestReconciler_DetachStopsReconciliation(t *testing.T) {
	source := &fakeSource{}
	r, orders := newOrderReconciler(t, source, nil)

	detach, err := r.Attach(context.Background())
	require.NoError(t, err)

	o := entity.Order{StorageID: "a", OrderID: "ORD-1", OrderStatus: entity.OrderStatusPending}
	source.emit(orderEvent(t, ChannelOrderCreated, o, ""))
	eventuallyLen(t, orders, 1)

	detach()
	// 卸载幂等
	detach()

	source.emit(orderEvent(t, ChannelOrderDeleted, o, ""))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, orders.Len())
}

func TestReconciler_DoubleAttachIsRejected(t *testing.T) {
	source := &fakeSource{}
	r, _ := newOrderReconciler(t, source, nil)

	detach, err := r.Attach(context.Background())
	require.NoError(t, err)
	defer detach()

	_, err = r.Attach(context.Background())
	require.Error(t, err)
}

func TestReconciler_MalformedPayloadDoesNotKillSubscription(t *testing.T) {
	source := &fakeSource{}
	r, orders := newOrderReconciler(t, source, nil)

	detach, err := r.Attach(context.Background())
	require.NoError(t, err)
	defer detach()

	source.emit(&Event{Channel: ChannelOrderCreated, Entity: EntityOrder, Action: ActionCreated,
		Envelope: Envelope{Data: json.RawMessage(`{"orderItems": "not-an-array"}`)}})

	o := entity.Order{StorageID: "a", OrderID: "ORD-1", OrderStatus: entity.OrderStatusPending}
	source.emit(orderEvent(t, ChannelOrderCreated, o, ""))
	eventuallyLen(t, orders, 1)
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent("order:updated", []byte(`{"data": {"_id": "a"}, "updatedBy": "Asha"}`))
	require.NoError(t, err)
	require.Equal(t, EntityOrder, ev.Entity)
	require.Equal(t, ActionUpdated, ev.Action)
	require.Equal(t, "Asha", ev.Actor())

	_, err = ParseEvent("garbage", nil)
	require.Error(t, err)
}
