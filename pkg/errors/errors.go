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

// Package errors 定义 SDK 统一错误类型：一个封闭的 Kind 枚举加 *Error 载荷，调用方可按 Kind 穷举处理
package errors

import (
	"errors"
	"fmt"
)

// Kind 错误种类（封闭集合，新增种类需同步 String 与哨兵）
type Kind int

const (
	// KindConfiguration 构造期配置缺失或非法
	KindConfiguration Kind = iota + 1
	// KindValidation 本地参数校验失败，或服务端 422
	KindValidation
	// KindAuthentication 服务端 401/403
	KindAuthentication
	// KindAPI 其他非 2xx，或 2xx 但响应体不可用
	KindAPI
	// KindConnection 重试耗尽仍未收到任何响应
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAPI:
		return "api"
	case KindConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// 哨兵错误，配合 errors.Is 做粗粒度判断
var (
	ErrConfiguration  = errors.New("memu: configuration error")
	ErrValidation     = errors.New("memu: validation error")
	ErrAuthentication = errors.New("memu: authentication error")
	ErrAPI            = errors.New("memu: api error")
	ErrConnection     = errors.New("memu: connection error")

	ErrNotFound   = errors.New("not found")
	ErrInvalidArg = errors.New("invalid argument")
)

// Error SDK 对外暴露的唯一错误类型
type Error struct {
	Kind Kind
	// StatusCode HTTP 状态码；本地错误与连接错误为 0
	StatusCode int
	// Body 原始响应体（有响应时）
	Body []byte
	// Detail 解码后的错误体（library case），仅 422 时填充
	Detail any
	// Attempts 已发起的请求次数，仅 KindConnection 有意义
	Attempts int
	// Field 出错的配置项或参数名
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Kind == KindConnection && e.Attempts > 0 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "memu: " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, ErrValidation) 等按 Kind 匹配
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrAuthentication:
		return e.Kind == KindAuthentication
	case ErrAPI:
		return e.Kind == KindAPI
	case ErrConnection:
		return e.Kind == KindConnection
	}
	return false
}

// Configuration 构造配置错误，field 为缺失或非法的配置项
func Configuration(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfiguration, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validation 构造本地校验错误（未发起网络请求）
func Validation(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Connection 构造连接错误，err 为最后一次失败原因
func Connection(attempts int, err error) *Error {
	return &Error{Kind: KindConnection, Attempts: attempts, Message: "no response from server", Err: err}
}

// FromStatus 按 HTTP 状态码归类；detail 仅在 422 时保留
func FromStatus(status int, body []byte, detail any) *Error {
	e := &Error{StatusCode: status, Body: body}
	switch {
	case status == 422:
		e.Kind = KindValidation
		e.Detail = detail
		e.Message = "request rejected by server"
	case status == 401 || status == 403:
		e.Kind = KindAuthentication
		e.Message = "credential rejected"
	default:
		e.Kind = KindAPI
		e.Message = "unexpected response"
	}
	return e
}

// InvalidResponse 2xx 但响应体无法使用时的错误
func InvalidResponse(status int, body []byte, err error) *Error {
	return &Error{Kind: KindAPI, StatusCode: status, Body: body, Message: "invalid response body", Err: err}
}

// KindOf 返回 err 链上第一个 *Error 的 Kind；非 SDK 错误返回 0
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Retryable 仅连接类错误值得调用方稍后重试
func Retryable(err error) bool {
	return KindOf(err) == KindConnection
}

// As 透传标准库，便于调用方只引入本包
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is 透传标准库
func Is(err, target error) bool { return errors.Is(err, target) }

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
