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
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memu-sdk/pkg/config"
)

type record struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

func TestMemoryStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	var got record
	ok, err := s.Get(ctx, "t1", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "t1", record{TaskID: "t1", Status: "SUCCESS"}))
	ok, err = s.Get(ctx, "t1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, record{TaskID: "t1", Status: "SUCCESS"}, got)
	assert.Equal(t, 1, s.Len())
	assert.NoError(t, s.Close())
}

func TestMemoryStore_Expiration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "t1", record{TaskID: "t1"}))
	now = now.Add(2 * time.Minute)

	var got record
	ok, err := s.Get(ctx, "t1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestScope(t *testing.T) {
	a := Scope("https://memu.example.com/", "key-a")
	assert.Len(t, a, 16)
	assert.Equal(t, a, Scope("https://memu.example.com/", "key-a"))
	assert.NotEqual(t, a, Scope("https://memu.example.com/", "key-b"))
	assert.NotEqual(t, a, Scope("https://other.example.com/", "key-a"))
	assert.NotEqual(t, Scope("ab", "c"), Scope("a", "bc"))
}

func TestNew(t *testing.T) {
	c, err := New(config.CacheConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(config.CacheConfig{Type: "memory", TTL: "1h"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, c)

	_, err = New(config.CacheConfig{Type: "memcached"})
	assert.Error(t, err)

	_, err = New(config.CacheConfig{Type: "memory", TTL: "forever"})
	assert.Error(t, err)
}

// 需要真实 Redis：MEMU_TEST_REDIS_ADDR=localhost:6379
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("MEMU_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MEMU_TEST_REDIS_ADDR not set")
	}
	s, err := NewRedisStore(RedisConfig{Addr: addr, TTL: time.Minute})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	id := "redis-test-" + time.Now().Format("150405.000000")
	var got record
	ok, err := s.Get(ctx, id, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, id, record{TaskID: id, Status: "FAILURE"}))
	ok, err = s.Get(ctx, id, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "FAILURE", got.Status)
}
