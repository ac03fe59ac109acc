package store

import (
	"context"
	"sync"

	"somp/ordersync/internal/entity"
	"somp/ordersync/pkg/logger"
)

// StaffLoader 员工全量拉取接口
type StaffLoader interface {
	FetchStaff(ctx context.Context) ([]entity.Staff, error)
}

// StaffStore 员工缓存（配送员下拉列表使用）
type StaffStore struct {
	mu     sync.RWMutex
	ids    []string
	byID   map[string]entity.Staff
	loader StaffLoader
	log    logger.Logger
}

// NewStaffStore 创建员工缓存
func NewStaffStore(loader StaffLoader, log logger.Logger) *StaffStore {
	return &StaffStore{
		ids:    make([]string, 0),
		byID:   make(map[string]entity.Staff),
		loader: loader,
		log:    log,
	}
}

// Load 全量刷新（失败时保留原有缓存）
func (s *StaffStore) Load(ctx context.Context) error {
	staff, err := s.loader.FetchStaff(ctx)
	if err != nil {
		s.log.Warnf(ctx, "[StaffStore] Load failed, cache kept: %v", err)
		return err
	}

	s.mu.Lock()
	s.ids = make([]string, 0, len(staff))
	s.byID = make(map[string]entity.Staff, len(staff))
	for _, m := range staff {
		s.ids = append(s.ids, m.StorageID)
		s.byID[m.StorageID] = m
	}
	s.mu.Unlock()
	return nil
}

// Upsert 插入或原位替换（幂等）
func (s *StaffStore) Upsert(m entity.Staff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[m.StorageID]; !exists {
		s.ids = append(s.ids, m.StorageID)
	}
	s.byID[m.StorageID] = m
}

// Remove 按 _id 删除（幂等）
func (s *StaffStore) Remove(storageID string) {
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
func (s *StaffStore) Get(storageID string) (entity.Staff, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[storageID]
	return m, ok
}

// List 返回全部员工副本
func (s *StaffStore) List() []entity.Staff {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Staff, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.byID[id])
	}
	return out
}
