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

// Package statuscache 缓存已到终态的任务状态；终态不可回退，因此命中即可直接返回
package statuscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"memu-sdk/pkg/config"
)

// KeyPrefix 缓存键前缀
const KeyPrefix = "memu:task:"

// Scope 由服务地址与凭证等派生短摘要，作为任务键的命名空间。
// 共享缓存的不同客户端各自只看到自己的任务。
func Scope(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:8])
}

// Cache 终态任务缓存接口；taskID 由调用方按需加上 Scope 前缀
type Cache interface {
	// Get 读取缓存到 dest，未命中返回 false
	Get(ctx context.Context, taskID string, dest interface{}) (bool, error)
	// Set 写入缓存；调用方保证只写终态
	Set(ctx context.Context, taskID string, value interface{}) error
	// Close 关闭缓存连接
	Close() error
}

// New 按配置创建缓存；type 为空或 none 时返回 nil（不缓存）
func New(cfg config.CacheConfig) (Cache, error) {
	var ttl time.Duration
	if cfg.TTL != "" {
		d, err := time.ParseDuration(cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("statuscache: invalid ttl %q: %w", cfg.TTL, err)
		}
		ttl = d
	}
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryStore(ttl), nil
	case "redis":
		s, err := NewRedisStore(RedisConfig{Addr: cfg.Addr, DB: cfg.DB, Password: cfg.Password, TTL: ttl})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("statuscache: unsupported type %q", cfg.Type)
	}
}
