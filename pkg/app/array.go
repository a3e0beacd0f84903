package app

import (
	"context"
	"sync"
)

// ArrayManager 基于静态列表的应用存储，支持配置热更新
type ArrayManager struct {
	mu    sync.RWMutex
	byID  map[string]*App
	byKey map[string]*App
}

// NewArrayManager 创建静态应用存储
func NewArrayManager(apps []App) (*ArrayManager, error) {
	m := &ArrayManager{}
	if err := m.Reload(apps); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload 原子替换全部应用，校验失败时保留旧数据
func (m *ArrayManager) Reload(apps []App) error {
	byID := make(map[string]*App, len(apps))
	byKey := make(map[string]*App, len(apps))
	for i := range apps {
		a := apps[i].Clone().Normalize()
		if a.ID == "" || a.Key == "" || a.Secret == "" {
			return ErrAppInvalid.WithMessage("id, key and secret are required")
		}
		if _, dup := byKey[a.Key]; dup {
			return ErrAppInvalid.WithMessage("duplicate app key: " + a.Key)
		}
		if _, dup := byID[a.ID]; dup {
			return ErrAppInvalid.WithMessage("duplicate app id: " + a.ID)
		}
		byID[a.ID] = a
		byKey[a.Key] = a
	}

	m.mu.Lock()
	m.byID, m.byKey = byID, byKey
	m.mu.Unlock()
	return nil
}

func (m *ArrayManager) FindByID(_ context.Context, id string) (*App, error) {
	m.mu.RLock()
	a, ok := m.byID[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrAppNotFound
	}
	return a.Clone(), nil
}

func (m *ArrayManager) FindByKey(_ context.Context, key string) (*App, error) {
	m.mu.RLock()
	a, ok := m.byKey[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrAppNotFound
	}
	return a.Clone(), nil
}

// Len 当前应用数量
func (m *ArrayManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
