// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package statuscache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore 进程内缓存实现
type MemoryStore struct {
	items map[string]*cacheItem
	ttl   time.Duration
	mu    sync.RWMutex
	now   func() time.Time
}

// cacheItem 缓存项
type cacheItem struct {
	value      []byte
	expiration time.Time
}

// NewMemoryStore 创建内存缓存；ttl<=0 表示不过期
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*cacheItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Set 设置缓存
func (s *MemoryStore) Set(ctx context.Context, taskID string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	item := &cacheItem{value: data}
	if s.ttl > 0 {
		item.expiration = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.items[KeyPrefix+taskID] = item
	s.mu.Unlock()
	return nil
}

// Get 获取缓存
func (s *MemoryStore) Get(ctx context.Context, taskID string, dest interface{}) (bool, error) {
	s.mu.RLock()
	item, exists := s.items[KeyPrefix+taskID]
	s.mu.RUnlock()
	if !exists {
		return false, nil
	}

	if !item.expiration.IsZero() && s.now().After(item.expiration) {
		s.mu.Lock()
		delete(s.items, KeyPrefix+taskID)
		s.mu.Unlock()
		return false, nil
	}

	if err := json.Unmarshal(item.value, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

// Len 当前条目数
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close 关闭缓存连接
func (s *MemoryStore) Close() error {
	return nil
}
