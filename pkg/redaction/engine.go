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

// Package redaction 在调试日志输出请求体前屏蔽对话内容等敏感字段
package redaction

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Placeholder redact 模式的替换值
const Placeholder = "***REDACTED***"

// Engine 脱敏引擎，构造后只读，可并发使用
type Engine struct {
	policy *Policy
}

// NewEngine 创建脱敏引擎；policy 为 nil 时不做任何处理
func NewEngine(policy *Policy) *Engine {
	return &Engine{policy: policy}
}

// Redact 返回脱敏后的 JSON；非 JSON 内容只输出长度
func (e *Engine) Redact(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if e == nil || e.policy == nil {
		return string(data)
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Sprintf("<non-json body, %d bytes>", len(data))
	}
	for _, rule := range e.policy.Rules {
		e.applyFieldMask(obj, rule)
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return fmt.Sprintf("<unencodable body, %d bytes>", len(data))
	}
	return string(out)
}

func (e *Engine) applyFieldMask(obj map[string]interface{}, mask FieldMask) {
	parts := strings.Split(mask.FieldPath, ".")

	current := obj
	for i := 0; i < len(parts)-1; i++ {
		next, ok := current[parts[i]].(map[string]interface{})
		if !ok {
			return
		}
		current = next
	}

	lastKey := parts[len(parts)-1]
	value, exists := current[lastKey]
	if !exists {
		return
	}

	switch mask.Mode {
	case ModeRedact:
		current[lastKey] = Placeholder
	case ModeHash:
		current[lastKey] = hashValue(fmt.Sprintf("%v", value), mask.Salt)
	case ModeRemove:
		delete(current, lastKey)
	}
}

// hashValue 截取 SHA256 前 12 位，足够在日志中比对
func hashValue(value, salt string) string {
	h := sha256.New()
	h.Write([]byte(value))
	if salt != "" {
		h.Write([]byte(salt))
	}
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}
