package store

import (
	"context"
	"sync"

	"somp/ordersync/internal/entity"
	"somp/ordersync/pkg/logger"
)

// OrderLoader 订单全量拉取接口（由 REST 客户端实现）
type OrderLoader interface {
	FetchOrders(ctx context.Context) ([]entity.Order, error)
}

// OrderStore 订单缓存
// 客户端可见的订单快照，多个屏幕控制器共享读写；
// 同一 _id 永不出现两条记录，orderId 作为二级查找键
type OrderStore struct {
	mu        sync.RWMutex
	ids       []string                 // _id 插入顺序（列表位置）
	byID      map[string]entity.Order  // _id → 订单
	byOrderID map[string]string        // orderId → _id
	loader    OrderLoader
	log       logger.Logger

	subMu     sync.Mutex
	subs      map[int]func()
	nextSubID int
}

// NewOrderStore 创建订单缓存
func NewOrderStore(loader OrderLoader, log logger.Logger) *OrderStore {
	return &OrderStore{
		ids:       make([]string, 0),
		byID:      make(map[string]entity.Order),
		byOrderID: make(map[string]string),
		loader:    loader,
		log:       log,
		subs:      make(map[int]func()),
	}
}

// Load 全量刷新
// 拉取失败时保留原有缓存并返回错误，绝不清空数据
func (s *OrderStore) Load(ctx context.Context) error {
	orders, err := s.loader.FetchOrders(ctx)
	if err != nil {
		s.log.Warnf(ctx, "[OrderStore] Load failed, cache kept: %v", err)
		return err
	}

	s.ReplaceAll(orders)
	s.log.Debugf(ctx, "[OrderStore] Loaded %d orders", len(orders))
	return nil
}

// ReplaceAll 用权威数据整体替换缓存
func (s *OrderStore) ReplaceAll(orders []entity.Order) {
	s.mu.Lock()
	s.ids = make([]string, 0, len(orders))
	s.byID = make(map[string]entity.Order, len(orders))
	s.byOrderID = make(map[string]string, len(orders))
	for _, o := range orders {
		if _, exists := s.byID[o.StorageID]; exists {
			// 后端不应返回重复 _id，保守起见取后者
			s.byID[o.StorageID] = o
			continue
		}
		s.ids = append(s.ids, o.StorageID)
		s.byID[o.StorageID] = o
		s.byOrderID[o.OrderID] = o.StorageID
	}
	s.mu.Unlock()

	s.notify()
}

// Upsert 插入或原位替换（幂等）
// 已存在的 _id 保留列表位置，只替换内容
func (s *OrderStore) Upsert(o entity.Order) {
	s.mu.Lock()
	if old, exists := s.byID[o.StorageID]; exists {
		if old.OrderID != o.OrderID {
			delete(s.byOrderID, old.OrderID)
		}
	} else {
		s.ids = append(s.ids, o.StorageID)
	}
	s.byID[o.StorageID] = o
	s.byOrderID[o.OrderID] = o.StorageID
	s.mu.Unlock()

	s.notify()
}

// Remove 按标识删除（幂等，缺失时为 no-op）
// 既接受存储标识 _id，也接受业务键 orderId
func (s *OrderStore) Remove(id string) {
	s.mu.Lock()
	storageID := id
	if _, exists := s.byID[storageID]; !exists {
		// 尝试按业务键解析
		mapped, ok := s.byOrderID[id]
		if !ok {
			s.mu.Unlock()
			return
		}
		storageID = mapped
	}

	old := s.byID[storageID]
	delete(s.byID, storageID)
	delete(s.byOrderID, old.OrderID)
	for i, existing := range s.ids {
		if existing == storageID {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify()
}

// Get 按存储标识查找（返回副本）
func (s *OrderStore) Get(storageID string) (entity.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[storageID]
	return o, ok
}

// GetByOrderID 按业务键查找（返回副本）
func (s *OrderStore) GetByOrderID(orderID string) (entity.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	storageID, ok := s.byOrderID[orderID]
	if !ok {
		return entity.Order{}, false
	}
	o, ok := s.byID[storageID]
	return o, ok
}

// List 按列表位置返回全部订单副本
func (s *OrderStore) List() []entity.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Order, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.byID[id])
	}
	return out
}

// Len 当前缓存条数
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// CountsByStatus 按状态统计
// 每次从全量缓存重算，不做增量累加，避免漏事件后漂移
func (s *OrderStore) CountsByStatus() map[entity.OrderStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[entity.OrderStatus]int)
	for _, id := range s.ids {
		counts[s.byID[id].OrderStatus]++
	}
	return counts
}

// Subscribe 注册变更回调，返回注销函数
// 回调在每次结构性变更（Upsert/Remove/ReplaceAll）后触发
func (s *OrderStore) Subscribe(fn func()) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// notify 通知所有订阅者（在持锁之外调用回调）
func (s *OrderStore) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
