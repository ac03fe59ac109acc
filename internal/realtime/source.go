package realtime

import (
	"context"
)

// EventSource 事件源接口（适配不同推送通道）
type EventSource interface {
	// Subscribe 订阅若干频道，返回订阅句柄
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)

	// Close 关闭事件源
	Close() error
}

// Subscription 一次订阅
// 事件经由 Events 通道推送；Close 之后通道关闭，不再投递
type Subscription interface {
	Events() <-chan *Event
	Close() error
}
