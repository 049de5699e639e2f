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

// Package memu 远端记忆服务的 Go 客户端：提交记忆任务、轮询任务状态、检索分类与相关记忆。
//
// 每个操作先做本地校验（不发请求），再经 casing 转为 wire case、由 transport 发送并按策略重试，
// 最后把响应转回 library case 解码为类型化结果。失败时只返回一个 *errors.Error，不返回部分结果。
// 客户端不做任何后台轮询；Client 可并发使用。
package memu

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"memu-sdk/internal/transport"
	"memu-sdk/pkg/config"
	sdkerrors "memu-sdk/pkg/errors"
	"memu-sdk/pkg/log"
	"memu-sdk/pkg/statuscache"
)

// 服务端路径（相对 BaseURL）
const (
	pathMemorize                   = "api/v1/memory/memorize"
	pathMemorizeStatus             = "api/v1/memory/memorize/status/"
	pathDefaultCategories          = "api/v1/memory/retrieve/default-categories"
	pathRelatedMemoryItems         = "api/v1/memory/retrieve/related-memory-items"
	pathRelatedClusteredCategories = "api/v1/memory/retrieve/related-clustered-categories"
)

// 检索默认参数
const (
	DefaultMemoryItemsTopK = 10
	DefaultCategoriesTopK  = 5
	DefaultMinSimilarity   = 0.3
)

// Client 远端记忆服务客户端
type Client struct {
	transport *transport.Transport
	logger    *log.Logger
	cache     statuscache.Cache
	scope     string
	now       func() time.Time
}

type clientOptions struct {
	logger       *log.Logger
	cache        statuscache.Cache
	roundTripper http.RoundTripper
	limiter      *rate.Limiter
	now          func() time.Time
}

// Option 创建 Client 时的可选配置
type Option func(*clientOptions)

// WithLogger 设置日志；默认丢弃
func WithLogger(l *log.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithStatusCache 缓存终态任务状态，之后的 GetTaskStatus 不再访问网络
func WithStatusCache(c statuscache.Cache) Option {
	return func(o *clientOptions) { o.cache = c }
}

// WithRoundTripper 替换底层 HTTP RoundTripper
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.roundTripper = rt }
}

// WithRateLimiter 客户端侧限流，覆盖 Profile.RequestsPerSecond
func WithRateLimiter(l *rate.Limiter) Option {
	return func(o *clientOptions) { o.limiter = l }
}

// WithNow 替换时钟（SessionDate 默认值用）
func WithNow(now func() time.Time) Option {
	return func(o *clientOptions) { o.now = now }
}

// New 用已解析的 Profile 创建 Client
func New(profile *config.Profile, opts ...Option) (*Client, error) {
	if profile == nil {
		return nil, sdkerrors.Configuration("profile", "connection profile is required")
	}
	o := clientOptions{logger: log.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Nop()
	}
	if o.now == nil {
		o.now = time.Now
	}

	topts := []transport.Option{transport.WithLogger(o.logger)}
	if o.roundTripper != nil {
		topts = append(topts, transport.WithRoundTripper(o.roundTripper))
	}
	if o.limiter != nil {
		topts = append(topts, transport.WithLimiter(o.limiter))
	}
	return &Client{
		transport: transport.New(profile, topts...),
		logger:    o.logger,
		cache:     o.cache,
		scope:     statuscache.Scope(profile.BaseURL, profile.APIKey),
		now:       o.now,
	}, nil
}

// NewFromEnv 从 MEMU_BASE_URL / MEMU_API_KEY 等环境变量解析 Profile 后创建 Client
func NewFromEnv(opts ...Option) (*Client, error) {
	profile, err := config.Resolve(config.Options{}, nil)
	if err != nil {
		return nil, err
	}
	return New(profile, opts...)
}

// Profile 返回连接参数副本
func (c *Client) Profile() config.Profile { return c.transport.Profile() }

// Close 释放状态缓存
func (c *Client) Close() error {
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}
