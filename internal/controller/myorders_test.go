package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"somp/ordersync/internal/entity"
	"somp/ordersync/internal/notify"
	"somp/ordersync/internal/session"
	"somp/ordersync/pkg/logger"
)

type fakeMyOrdersAPI struct {
	byUser map[string][]entity.Order
}

func (f *fakeMyOrdersAPI) FetchAssignedOrders(ctx context.Context, userID string) ([]entity.Order, error) {
	return f.byUser[userID], nil
}

func TestMyOrders_LoadsOnlyOwnOrders(t *testing.T) {
	api := &fakeMyOrdersAPI{byUser: map[string][]entity.Order{
		"s1": {
			{StorageID: "a", OrderID: "ORD-1", AssignedToID: "s1", OrderStatus: entity.OrderStatusPending},
			{StorageID: "b", OrderID: "ORD-2", AssignedToID: "s1", OrderStatus: entity.OrderStatusDC},
		},
		"s2": {
			{StorageID: "c", OrderID: "ORD-3", AssignedToID: "s2", OrderStatus: entity.OrderStatusPending},
		},
	}}

	sess := session.New("s1", "Asha", entity.RoleStaff, "jwt-abc", nil, logger.NopLogger{})
	c := NewMyOrdersController(api, sess, nopSource{}, notify.NopSink{}, logger.NopLogger{})

	require.NoError(t, c.Focus(context.Background()))
	defer c.Blur()

	require.Len(t, c.Orders(), 2)
	require.Equal(t, 1, c.Counts()[entity.OrderStatusDC])
	for _, o := range c.Orders() {
		require.Equal(t, "s1", o.AssignedToID)
	}
}
