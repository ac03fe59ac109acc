package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"somp/ordersync/pkg/logger"
)

func newDrainSource() *RedisSource {
	return &RedisSource{bufferSize: 8, errorBackoff: time.Millisecond, log: logger.NopLogger{}}
}

func TestDrain_ForwardsAndDropsMalformed(t *testing.T) {
	s := newDrainSource()
	in := make(chan *redis.Message, 3)
	out := make(chan *Event, 3)

	in <- &redis.Message{Channel: "order:created", Payload: `{"id": "a", "createdBy": "Asha"}`}
	in <- &redis.Message{Channel: "garbage", Payload: `{}`}
	in <- &redis.Message{Channel: "order:deleted", Payload: `{"orderId": "ORD-1"}`}
	close(in)

	// 消息通道关闭（非 ctx 取消）返回 true：pump 据此走退避重建订阅
	require.True(t, s.drain(context.Background(), in, out))
	require.Len(t, out, 2)

	ev := <-out
	require.Equal(t, ActionCreated, ev.Action)
	require.Equal(t, "Asha", ev.Actor())

	ev = <-out
	require.Equal(t, ActionDeleted, ev.Action)
	require.Equal(t, "ORD-1", ev.OrderID)
}

func TestDrain_ContextCancelStopsRetrying(t *testing.T) {
	s := newDrainSource()
	in := make(chan *redis.Message)
	out := make(chan *Event)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// ctx 取消返回 false：pump 据此退出，不再退避重连
	require.False(t, s.drain(ctx, in, out))
}
