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

package redaction

// Policy 请求体脱敏策略，路径为 wire case
type Policy struct {
	Rules []FieldMask
}

// FieldMask 字段掩码配置
type FieldMask struct {
	FieldPath string // 点分路径，如 "memory.content"
	Mode      Mode
	Salt      string // hash 模式可选
}

// Mode 脱敏模式
type Mode string

const (
	ModeRedact Mode = "redact" // 替换为固定占位符
	ModeHash   Mode = "hash"   // 替换为 SHA256 前缀，便于比对同一内容
	ModeRemove Mode = "remove" // 移除字段
)

// DefaultPolicy 对话内容与检索语句不进日志原文
func DefaultPolicy() *Policy {
	return &Policy{Rules: []FieldMask{
		{FieldPath: "conversation_text", Mode: ModeHash},
		{FieldPath: "conversation", Mode: ModeRedact},
		{FieldPath: "query", Mode: ModeHash},
		{FieldPath: "category_query", Mode: ModeHash},
		{FieldPath: "api_key", Mode: ModeRemove},
	}}
}

// With 追加规则，返回新策略
func (p *Policy) With(masks ...FieldMask) *Policy {
	out := &Policy{}
	if p != nil {
		out.Rules = append(out.Rules, p.Rules...)
	}
	out.Rules = append(out.Rules, masks...)
	return out
}
