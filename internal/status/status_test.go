package status

import (
	"testing"

	"github.com/stretchr/testify/require"

	"somp/ordersync/internal/entity"
)

// 工作流顺序（用于回退检查）
var rank = map[entity.OrderStatus]int{
	entity.OrderStatusPending:    0,
	entity.OrderStatusDC:         1,
	entity.OrderStatusInvoice:    2,
	entity.OrderStatusDispatched: 3,
}

func TestValidNextStatuses_NoSelfNoRegression(t *testing.T) {
	for _, current := range AllStatuses() {
		for _, next := range ValidNextStatuses(current) {
			require.NotEqual(t, current, next, "status %s must not succeed itself", current)
			require.Greater(t, rank[next], rank[current],
				"transition %s → %s goes backwards", current, next)
		}
	}
}

func TestValidNextStatuses_DispatchedIsTerminal(t *testing.T) {
	require.Empty(t, ValidNextStatuses(entity.OrderStatusDispatched))
	require.True(t, IsTerminal(entity.OrderStatusDispatched))
}

func TestValidNextStatuses_Table(t *testing.T) {
	cases := []struct {
		current entity.OrderStatus
		want    []entity.OrderStatus
	}{
		{entity.OrderStatusPending, []entity.OrderStatus{entity.OrderStatusDC}},
		{entity.OrderStatusDC, []entity.OrderStatus{entity.OrderStatusInvoice, entity.OrderStatusDispatched}},
		{entity.OrderStatusInvoice, []entity.OrderStatus{entity.OrderStatusDispatched}},
		{entity.OrderStatusDispatched, []entity.OrderStatus{}},
	}

	for _, tc := range cases {
		require.ElementsMatch(t, tc.want, ValidNextStatuses(tc.current), "current=%s", tc.current)
	}
}

func TestCanTransition(t *testing.T) {
	require.True(t, CanTransition(entity.OrderStatusPending, entity.OrderStatusDC))
	require.True(t, CanTransition(entity.OrderStatusDC, entity.OrderStatusDispatched))
	require.False(t, CanTransition(entity.OrderStatusPending, entity.OrderStatusDispatched))
	require.False(t, CanTransition(entity.OrderStatusDispatched, entity.OrderStatusPending))
	require.False(t, CanTransition(entity.OrderStatusInvoice, entity.OrderStatusDC))

	// 未知状态无任何合法迁移
	require.False(t, CanTransition("Cancelled", entity.OrderStatusDC))
	require.Empty(t, ValidNextStatuses("Cancelled"))
}

func TestValidNextStatuses_ReturnsCopy(t *testing.T) {
	next := ValidNextStatuses(entity.OrderStatusDC)
	require.Len(t, next, 2)
	next[0] = "Corrupted"

	require.ElementsMatch(t,
		[]entity.OrderStatus{entity.OrderStatusInvoice, entity.OrderStatusDispatched},
		ValidNextStatuses(entity.OrderStatusDC))
}
