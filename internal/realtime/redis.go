package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/atomic"

	"somp/ordersync/pkg/logger"
)

// RedisSource Redis Pub/Sub 事件源
// 推送通道无重放语义：断线期间的事件不会补投，重连后由消费方全量刷新
type RedisSource struct {
	client       *redis.Client
	bufferSize   int
	errorBackoff time.Duration
	log          logger.Logger
}

// NewRedisSource 创建 Redis 事件源
func NewRedisSource(addr, password string, db, bufferSize int, errorBackoff time.Duration, log logger.Logger) (*RedisSource, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSource{
		client:       client,
		bufferSize:   bufferSize,
		errorBackoff: errorBackoff,
		log:          log,
	}, nil
}

// Subscribe 订阅频道
func (s *RedisSource) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	sub := s.client.Subscribe(ctx, channels...)

	// 确认订阅建立
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe failed: %w", err)
	}

	rs := &redisSubscription{
		sub:    sub,
		out:    make(chan *Event, s.bufferSize),
		closed: atomic.NewBool(false),
	}

	go s.pump(ctx, rs, channels)

	s.log.Infof(ctx, "[RedisSource] Subscribed to %d channels", len(channels))
	return rs, nil
}

// pump 持续消费订阅消息
// 连接异常断开时退避后重建订阅；主动退订或 ctx 取消时退出。
// 断线期间的事件不补投，重连后的全量刷新由消费方负责
func (s *RedisSource) pump(ctx context.Context, rs *redisSubscription, channels []string) {
	defer close(rs.out)

	for {
		if !s.drain(ctx, rs.current().Channel(), rs.out) {
			_ = rs.Close()
			return
		}

		// 消息通道关闭：主动退订或 ctx 取消时正常退出
		if rs.closed.Load() || ctx.Err() != nil {
			return
		}

		// 异常断开：退避后重建订阅
		s.log.Warnf(ctx, "[RedisSource] Subscription lost, resubscribing in %s", s.errorBackoff)
		select {
		case <-time.After(s.errorBackoff):
		case <-ctx.Done():
			return
		}

		sub := s.client.Subscribe(ctx, channels...)
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			s.log.Warnf(ctx, "[RedisSource] Resubscribe failed: %v", err)
			continue
		}
		rs.replace(sub)
		s.log.Infof(ctx, "[RedisSource] Resubscribed to %d channels", len(channels))
	}
}

// drain 消费一条消息流直到其通道关闭
// 返回 false 表示 ctx 已取消，调用方不再重试；格式错误的消息只记录不中断
func (s *RedisSource) drain(ctx context.Context, ch <-chan *redis.Message, out chan<- *Event) bool {
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return true
			}

			ev, err := ParseEvent(msg.Channel, []byte(msg.Payload))
			if err != nil {
				s.log.Warnf(ctx, "[RedisSource] Drop malformed event on %s: %v", msg.Channel, err)
				continue
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				return false
			}

		case <-ctx.Done():
			return false
		}
	}
}

// Close 关闭事件源
func (s *RedisSource) Close() error {
	return s.client.Close()
}

// redisSubscription Redis 订阅句柄（底层订阅可能被 pump 重建替换）
type redisSubscription struct {
	mu     sync.Mutex
	sub    *redis.PubSub
	out    chan *Event
	closed *atomic.Bool
}

// current 当前底层订阅
func (r *redisSubscription) current() *redis.PubSub {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sub
}

// replace 换上重建后的订阅；若期间已被关闭则直接释放新订阅
func (r *redisSubscription) replace(sub *redis.PubSub) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		_ = sub.Close()
		return
	}
	r.sub = sub
}

// Events 事件通道
func (r *redisSubscription) Events() <-chan *Event {
	return r.out
}

// Close 取消订阅（事件通道随之关闭，不再重建）
func (r *redisSubscription) Close() error {
	r.closed.Store(true)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sub.Close()
}
