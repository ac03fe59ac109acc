package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"somp/ordersync/internal/entity"
	"somp/ordersync/pkg/logger"
)

// fakeOrderLoader 可编程的全量拉取
type fakeOrderLoader struct {
	orders []entity.Order
	err    error
	calls  int
}

func (l *fakeOrderLoader) FetchOrders(ctx context.Context) ([]entity.Order, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.orders, nil
}

func order(storageID, orderID string, s entity.OrderStatus) entity.Order {
	return entity.Order{StorageID: storageID, OrderID: orderID, OrderStatus: s}
}

func newTestStore(loader *fakeOrderLoader) *OrderStore {
	return NewOrderStore(loader, logger.NopLogger{})
}

func TestLoad_FailureKeepsCache(t *testing.T) {
	loader := &fakeOrderLoader{orders: []entity.Order{order("a", "ORD-1", entity.OrderStatusPending)}}
	s := newTestStore(loader)
	require.NoError(t, s.Load(context.Background()))
	require.Equal(t, 1, s.Len())

	// 拉取失败：错误上抛，缓存不被清空
	loader.err = errors.New("network down")
	require.Error(t, s.Load(context.Background()))
	require.Equal(t, 1, s.Len())

	got, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, "ORD-1", got.OrderID)
}

func TestUpsert_Idempotent(t *testing.T) {
	s := newTestStore(&fakeOrderLoader{})
	o := order("a", "ORD-1", entity.OrderStatusPending)

	s.Upsert(o)
	s.Upsert(o)

	require.Equal(t, 1, s.Len())
	got, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, o, got)
}

func TestUpsert_PreservesListPosition(t *testing.T) {
	s := newTestStore(&fakeOrderLoader{})
	s.Upsert(order("a", "ORD-1", entity.OrderStatusPending))
	s.Upsert(order("b", "ORD-2", entity.OrderStatusPending))
	s.Upsert(order("c", "ORD-3", entity.OrderStatusPending))

	// 原位替换，列表位置不变
	s.Upsert(order("b", "ORD-2", entity.OrderStatusDC))

	list := s.List()
	require.Equal(t, []string{"a", "b", "c"}, []string{list[0].StorageID, list[1].StorageID, list[2].StorageID})
	require.Equal(t, entity.OrderStatusDC, list[1].OrderStatus)
}

func TestRemove_MissingIsNoop(t *testing.T) {
	s := newTestStore(&fakeOrderLoader{})
	s.Upsert(order("a", "ORD-1", entity.OrderStatusPending))

	require.NotPanics(t, func() { s.Remove("no-such-id") })
	require.Equal(t, 1, s.Len())
}

func TestRemove_ByStorageIDOrOrderID(t *testing.T) {
	s := newTestStore(&fakeOrderLoader{})
	s.Upsert(order("a", "ORD-1", entity.OrderStatusPending))
	s.Upsert(order("b", "ORD-2", entity.OrderStatusPending))

	s.Remove("a")
	require.Equal(t, 1, s.Len())

	// 业务键同样可以删除
	s.Remove("ORD-2")
	require.Equal(t, 0, s.Len())

	_, ok := s.GetByOrderID("ORD-2")
	require.False(t, ok)
}

func TestCountsByStatus_MatchesFullScan(t *testing.T) {
	s := newTestStore(&fakeOrderLoader{})
	s.Upsert(order("a", "ORD-1", entity.OrderStatusPending))
	s.Upsert(order("b", "ORD-2", entity.OrderStatusDC))
	s.Upsert(order("c", "ORD-3", entity.OrderStatusDC))
	s.Upsert(order("d", "ORD-4", entity.OrderStatusDispatched))

	// 一组乱序变更后角标计数必须与全量扫描一致
	s.Remove("b")
	s.Upsert(order("a", "ORD-1", entity.OrderStatusInvoice))
	s.Upsert(order("e", "ORD-5", entity.OrderStatusDC))
	s.Remove("no-such")

	expected := make(map[entity.OrderStatus]int)
	for _, o := range s.List() {
		expected[o.OrderStatus]++
	}
	require.Equal(t, expected, s.CountsByStatus())
	require.Equal(t, 2, s.CountsByStatus()[entity.OrderStatusDC])
}

func TestReplaceAll_RebuildsSecondaryIndex(t *testing.T) {
	s := newTestStore(&fakeOrderLoader{})
	s.Upsert(order("a", "ORD-1", entity.OrderStatusPending))

	s.ReplaceAll([]entity.Order{
		order("x", "ORD-9", entity.OrderStatusDC),
		order("y", "ORD-10", entity.OrderStatusPending),
	})

	_, ok := s.GetByOrderID("ORD-1")
	require.False(t, ok)

	got, ok := s.GetByOrderID("ORD-9")
	require.True(t, ok)
	require.Equal(t, "x", got.StorageID)
}

func TestSubscribe_NotifiesOnStructuralChange(t *testing.T) {
	s := newTestStore(&fakeOrderLoader{})

	var fired int
	unsubscribe := s.Subscribe(func() { fired++ })

	s.Upsert(order("a", "ORD-1", entity.OrderStatusPending))
	s.Remove("a")
	require.Equal(t, 2, fired)

	unsubscribe()
	s.Upsert(order("b", "ORD-2", entity.OrderStatusPending))
	require.Equal(t, 2, fired)
}
