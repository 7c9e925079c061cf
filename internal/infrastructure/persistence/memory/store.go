// Package memory 提供音频缓存的进程内存储实现
// redis 不可用或单机部署时的兜底后端，过期惰性回收
package memory

import (
	"context"
	"sync"
	"time"
)

type item struct {
	value     []byte
	expiresAt time.Time
}

// Store 进程内键值存储，实现 repository.AudioStore
type Store struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

// NewStore 创建进程内存储
func NewStore() *Store {
	return &Store{
		items: make(map[string]item),
		now:   time.Now,
	}
}

// WithClock 注入时钟，仅测试使用
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Get 读取缓存值，未命中或已过期返回 (nil, nil)
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if s.now().After(it.expiresAt) {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		return nil, nil
	}
	return it.value, nil
}

// Set 写入缓存值
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = item{
		value:     value,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Ping 进程内存储恒可用
func (s *Store) Ping(context.Context) error {
	return nil
}

// ExpiresAt 返回键的过期时刻，不存在时返回零值
func (s *Store) ExpiresAt(key string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[key]
	return it.expiresAt, ok
}

// Len 返回存量条目数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
