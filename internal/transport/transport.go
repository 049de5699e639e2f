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

// Package transport 执行单次 HTTP 交换并负责重试：无响应（网络错误、超时）重试，有响应立即归类返回
package transport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"memu-sdk/pkg/casing"
	"memu-sdk/pkg/config"
	sdkerrors "memu-sdk/pkg/errors"
	"memu-sdk/pkg/log"
	"memu-sdk/pkg/metrics"
	"memu-sdk/pkg/redaction"
	"memu-sdk/pkg/tracing"
)

// UserAgent 默认 User-Agent
const UserAgent = "memu-sdk-go/0.1.0"

// HeaderRequestID 同一次调用的所有重试共享同一个值
const HeaderRequestID = "X-Request-ID"

// Request 一次调用的描述
type Request struct {
	// Operation 指标与 span 的标签，如 "memorize"
	Operation string
	Method    string
	// Path 相对 BaseURL 的路径，不带前导 "/"
	Path string
	// Body library case 的请求体（结构体或 map），GET 时为 nil
	Body any
	// Check 解码成功后调用；返回的错误转为携带实际状态码与原始响应体的 KindAPI
	Check func() error
}

// Transport 持有只读的 Profile 与 resty 客户端，可并发使用
type Transport struct {
	client   *resty.Client
	profile  config.Profile
	limiter  *rate.Limiter
	logger   *log.Logger
	redactor *redaction.Engine
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option Transport 可选配置
type Option func(*Transport)

// WithLogger 设置日志
func WithLogger(l *log.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithRoundTripper 替换底层 http.RoundTripper（代理、测试桩等）
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(t *Transport) {
		if rt != nil {
			t.client.SetTransport(rt)
		}
	}
}

// WithLimiter 使用外部限流器，覆盖 Profile 中的 RequestsPerSecond
func WithLimiter(l *rate.Limiter) Option {
	return func(t *Transport) {
		t.limiter = l
	}
}

// WithRedactor 替换调试日志里请求体的脱敏策略
func WithRedactor(e *redaction.Engine) Option {
	return func(t *Transport) {
		if e != nil {
			t.redactor = e
		}
	}
}

// New 创建 Transport；resty 自身的重试关闭，由 Do 控制重试次数
func New(p *config.Profile, opts ...Option) *Transport {
	t := &Transport{
		profile:  *p,
		logger:   log.Nop(),
		redactor: redaction.NewEngine(redaction.DefaultPolicy()),
		sleep:    sleepContext,
	}
	t.client = resty.New().
		SetTimeout(p.Timeout).
		SetRetryCount(0).
		SetAuthToken(p.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", UserAgent)
	if p.RequestsPerSecond > 0 {
		burst := p.Burst
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(p.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(t)
	}
	t.client.SetLogger(restyLogger{t.logger})
	return t
}

// Profile 返回构造时的连接参数副本
func (t *Transport) Profile() config.Profile { return t.profile }

// Do 把 req.Body 转为 wire case 发送，成功时把响应转回 library case 解码进 out（out 可为 nil）
func (t *Transport) Do(ctx context.Context, req Request, out any) error {
	var body []byte
	if req.Body != nil {
		b, err := casing.Marshal(req.Body)
		if err != nil {
			e := sdkerrors.Validation("body", "cannot encode request")
			e.Err = err
			return e
		}
		body = b
	}
	data, status, err := t.Send(ctx, req, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := casing.Unmarshal(data, out); err != nil {
		return sdkerrors.InvalidResponse(status, data, err)
	}
	if req.Check != nil {
		if err := req.Check(); err != nil {
			return sdkerrors.InvalidResponse(status, data, err)
		}
	}
	return nil
}

// Send 发送已编码的请求体，最多尝试 MaxRetries+1 次；返回 2xx 响应体与状态码
func (t *Transport) Send(ctx context.Context, req Request, body []byte) ([]byte, int, error) {
	start := time.Now()
	requestID := uuid.NewString()
	url := t.profile.BaseURL + strings.TrimPrefix(req.Path, "/")

	if body != nil && t.logger.Enabled(ctx, slog.LevelDebug) {
		t.logger.Debug("memu request body", "operation", req.Operation,
			"request_id", requestID, "body", t.redactor.Redact(body))
	}

	ctx, span := tracing.StartRequestSpan(ctx, req.Operation, req.Method, req.Path, requestID)
	data, status, attempts, err := t.send(ctx, req, url, requestID, body)
	tracing.EndRequestSpan(span, attempts, status, err)

	outcome := "ok"
	if err != nil {
		outcome = sdkerrors.KindOf(err).String()
	}
	metrics.RequestTotal.WithLabelValues(req.Operation, outcome).Inc()
	metrics.RequestDuration.WithLabelValues(req.Operation).Observe(time.Since(start).Seconds())
	return data, status, err
}

func (t *Transport) send(ctx context.Context, req Request, url, requestID string, body []byte) ([]byte, int, int, error) {
	attempts := 0
	var lastErr error
	for attempt := 0; attempt <= t.profile.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := Backoff(t.profile.RetryBackoff, t.profile.MaxRetryBackoff, attempt-1)
			t.logger.Warn("memu request retry",
				"operation", req.Operation, "request_id", requestID,
				"attempt", attempt+1, "wait", wait, "error", lastErr)
			if err := t.sleep(ctx, wait); err != nil {
				return nil, 0, attempts, sdkerrors.Connection(attempts, err)
			}
		}
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return nil, 0, attempts, sdkerrors.Connection(attempts, err)
			}
		}

		attempts++
		metrics.AttemptTotal.WithLabelValues(req.Operation).Inc()
		t.logger.Debug("memu request", "operation", req.Operation, "method", req.Method,
			"path", req.Path, "request_id", requestID, "attempt", attempts)

		r := t.client.R().
			SetContext(ctx).
			SetHeader(HeaderRequestID, requestID)
		if body != nil {
			r.SetBody(body)
		}
		resp, err := r.Execute(req.Method, url)
		if err != nil {
			// 调用方取消或截止：不再重试
			if ctx.Err() != nil {
				return nil, 0, attempts, sdkerrors.Connection(attempts, ctx.Err())
			}
			lastErr = err
			continue
		}

		status := resp.StatusCode()
		if status >= 200 && status < 300 {
			return resp.Body(), status, attempts, nil
		}
		e := Classify(status, resp.Body())
		t.logger.Debug("memu request rejected", "operation", req.Operation,
			"request_id", requestID, "status", status, "kind", e.Kind.String())
		return nil, status, attempts, e
	}
	return nil, 0, attempts, sdkerrors.Connection(attempts, lastErr)
}

// Backoff 第 retry 次重试（从 0 计）前的等待：base 起按 2 倍递增，封顶 maxWait；base<=0 不等待
func Backoff(base, maxWait time.Duration, retry int) time.Duration {
	if base <= 0 {
		return 0
	}
	if retry > 30 {
		retry = 30
	}
	d := base << uint(retry)
	if maxWait > 0 && (d > maxWait || d <= 0) {
		d = maxWait
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// restyLogger 把 resty 内部日志接到 slog
type restyLogger struct {
	l *log.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) { r.l.Error(sprintf(format, v...)) }
func (r restyLogger) Warnf(format string, v ...interface{})  { r.l.Warn(sprintf(format, v...)) }
func (r restyLogger) Debugf(format string, v ...interface{}) { r.l.Debug(sprintf(format, v...)) }
