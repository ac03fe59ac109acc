package store

import (
	"context"
	"sync"

	"somp/ordersync/internal/entity"
	"somp/ordersync/pkg/logger"
)

// ProductLoader 产品全量拉取接口
type ProductLoader interface {
	FetchProducts(ctx context.Context) ([]entity.Product, error)
}

// ProductStore 产品缓存（库存检查屏幕使用）
type ProductStore struct {
	mu     sync.RWMutex
	ids    []string
	byID   map[string]entity.Product
	loader ProductLoader
	log    logger.Logger
}

// NewProductStore 创建产品缓存
func NewProductStore(loader ProductLoader, log logger.Logger) *ProductStore {
	return &ProductStore{
		ids:    make([]string, 0),
		byID:   make(map[string]entity.Product),
		loader: loader,
		log:    log,
	}
}

// Load 全量刷新（失败时保留原有缓存）
func (s *ProductStore) Load(ctx context.Context) error {
	products, err := s.loader.FetchProducts(ctx)
	if err != nil {
		s.log.Warnf(ctx, "[ProductStore] Load failed, cache kept: %v", err)
		return err
	}

	s.mu.Lock()
	s.ids = make([]string, 0, len(products))
	s.byID = make(map[string]entity.Product, len(products))
	for _, p := range products {
		s.ids = append(s.ids, p.StorageID)
		s.byID[p.StorageID] = p
	}
	s.mu.Unlock()
	return nil
}

// Upsert 插入或原位替换（幂等）
func (s *ProductStore) Upsert(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[p.StorageID]; !exists {
		s.ids = append(s.ids, p.StorageID)
	}
	s.byID[p.StorageID] = p
}

// Remove 按 _id 删除（幂等）
func (s *ProductStore) Remove(storageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[storageID]; !exists {
		return
	}
	delete(s.byID, storageID)
	for i, id := range s.ids {
		if id == storageID {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
}

// Get 按 _id 查找
func (s *ProductStore) Get(storageID string) (entity.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[storageID]
	return p, ok
}

// List 返回全部产品副本
func (s *ProductStore) List() []entity.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Product, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.byID[id])
	}
	return out
}

// LowStock 返回达到低库存阈值的产品
func (s *ProductStore) LowStock() []entity.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Product, 0)
	for _, id := range s.ids {
		if p := s.byID[id]; p.IsLowStock() {
			out = append(out, p)
		}
	}
	return out
}
