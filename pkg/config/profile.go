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

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	sdkerrors "memu-sdk/pkg/errors"
	"memu-sdk/pkg/utils"
)

// 回退时读取的环境变量名
const (
	EnvBaseURL    = "MEMU_BASE_URL"
	EnvAPIKey     = "MEMU_API_KEY"
	EnvTimeout    = "MEMU_TIMEOUT"
	EnvMaxRetries = "MEMU_MAX_RETRIES"
)

// 默认值
const (
	DefaultTimeout         = 60 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryBackoff    = 500 * time.Millisecond
	DefaultMaxRetryBackoff = 10 * time.Second
)

// LookupFunc 按名称查找配置值，签名与 os.LookupEnv 一致
type LookupFunc func(key string) (string, bool)

// EnvLookup 进程环境变量
func EnvLookup(key string) (string, bool) { return os.LookupEnv(key) }

// MapLookup 固定 map 作为来源，测试用
func MapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// ChainLookup 依次查询，返回第一个非空值
func ChainLookup(lookups ...LookupFunc) LookupFunc {
	return func(key string) (string, bool) {
		for _, l := range lookups {
			if l == nil {
				continue
			}
			if v, ok := l(key); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}
}

// Options Resolve 的显式输入；零值字段回退到 lookup，再回退到默认值
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries *int // 0 合法，故用指针区分未设置
	// RetryBackoff 首次重试前等待；指向 0 表示不退避
	RetryBackoff      *time.Duration
	MaxRetryBackoff   time.Duration
	RequestsPerSecond float64 // <=0 不限流
	Burst             int
}

// Profile 校验后的连接参数，构造后只读
type Profile struct {
	BaseURL           string // 恰好以一个 "/" 结尾
	APIKey            string
	Timeout           time.Duration // 单次请求超时
	MaxRetries        int           // 不含首次
	RetryBackoff      time.Duration
	MaxRetryBackoff   time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Int 便于构造 Options.MaxRetries
func Int(v int) *int { return &v }

// Duration 便于构造 Options.RetryBackoff
func Duration(d time.Duration) *time.Duration { return &d }

// NormalizeBaseURL 去掉所有结尾 "/" 后补一个；幂等
func NormalizeBaseURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	return strings.TrimRight(u, "/") + "/"
}

// Resolve 生成 Profile；lookup 为 nil 时使用进程环境变量
func Resolve(opts Options, lookup LookupFunc) (*Profile, error) {
	if lookup == nil {
		lookup = EnvLookup
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	p := &Profile{
		BaseURL:           opts.BaseURL,
		APIKey:            strings.TrimSpace(opts.APIKey),
		Timeout:           opts.Timeout,
		RequestsPerSecond: opts.RequestsPerSecond,
		Burst:             opts.Burst,
	}
	p.BaseURL = NormalizeBaseURL(utils.Coalesce(p.BaseURL, get(EnvBaseURL)))
	if p.BaseURL == "" || p.BaseURL == "/" {
		return nil, sdkerrors.Configuration("base_url", "base URL is required (option or %s)", EnvBaseURL)
	}
	p.APIKey = utils.Coalesce(p.APIKey, get(EnvAPIKey))
	if p.APIKey == "" {
		return nil, sdkerrors.Configuration("api_key", "API key is required (option or %s)", EnvAPIKey)
	}

	if p.Timeout == 0 {
		if raw := get(EnvTimeout); raw != "" {
			d, err := parseDuration(raw)
			if err != nil {
				return nil, invalid(EnvTimeout, raw, err)
			}
			p.Timeout = d
		} else {
			p.Timeout = DefaultTimeout
		}
	}
	if p.Timeout <= 0 {
		return nil, sdkerrors.Configuration("timeout", "timeout must be positive, got %s", p.Timeout)
	}

	if opts.MaxRetries != nil {
		p.MaxRetries = *opts.MaxRetries
	} else if raw := get(EnvMaxRetries); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, invalid(EnvMaxRetries, raw, err)
		}
		p.MaxRetries = n
	} else {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.MaxRetries < 0 {
		return nil, sdkerrors.Configuration("max_retries", "max retries must not be negative, got %d", p.MaxRetries)
	}

	p.RetryBackoff = DefaultRetryBackoff
	if opts.RetryBackoff != nil {
		p.RetryBackoff = *opts.RetryBackoff
	}
	p.MaxRetryBackoff = utils.Coalesce(opts.MaxRetryBackoff, DefaultMaxRetryBackoff)
	if p.RetryBackoff < 0 || p.MaxRetryBackoff < 0 {
		return nil, sdkerrors.Configuration("retry_backoff", "backoff must not be negative")
	}
	if p.RequestsPerSecond > 0 && p.Burst <= 0 {
		p.Burst = 1
	}
	return p, nil
}

// parseDuration 接受 Go duration（"30s"）或秒数（"30"、"2.5"）
func parseDuration(raw string) (time.Duration, error) {
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func invalid(field, raw string, err error) *sdkerrors.Error {
	e := sdkerrors.Configuration(field, "cannot parse %q", raw)
	e.Err = err
	return e
}
