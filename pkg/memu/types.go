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

package memu

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TaskStatus 异步任务状态
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskProcessing TaskStatus = "PROCESSING"
	TaskSuccess    TaskStatus = "SUCCESS"
	TaskFailure    TaskStatus = "FAILURE"
)

// IsTerminal SUCCESS / FAILURE 为终态，之后不会再变化
func (s TaskStatus) IsTerminal() bool {
	return s == TaskSuccess || s == TaskFailure
}

// Turn 对话中的一轮
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MemorizeInput MemorizeConversation 的参数；ConversationText 与 Conversation 必须且只能给一个
type MemorizeInput struct {
	ConversationText string
	Conversation     []Turn
	UserID           string
	UserName         string
	AgentID          string
	AgentName        string
	// SessionDate 为零值时取调用时刻
	SessionDate time.Time
}

type memorizeRequest struct {
	ConversationText string `json:"conversationText,omitempty"`
	Conversation     []Turn `json:"conversation,omitempty"`
	UserID           string `json:"userId"`
	UserName         string `json:"userName"`
	AgentID          string `json:"agentId"`
	AgentName        string `json:"agentName"`
	SessionDate      string `json:"sessionDate"`
}

// MemorizeResponse 提交记忆任务的回执；TaskID 是后续轮询的唯一句柄
type MemorizeResponse struct {
	TaskID  string     `json:"taskId"`
	Status  TaskStatus `json:"status"`
	Message string     `json:"message"`
}

// TaskStatusRecord 任务状态
type TaskStatusRecord struct {
	TaskID      string         `json:"taskId"`
	Status      TaskStatus     `json:"status"`
	Progress    map[string]any `json:"progress,omitempty"`
	Result      any            `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   *Timestamp     `json:"startedAt,omitempty"`
	CompletedAt *Timestamp     `json:"completedAt,omitempty"`
}

// MemoryItem 单条记忆
type MemoryItem struct {
	MemoryID   string     `json:"memoryId"`
	Category   string     `json:"category"`
	Content    string     `json:"content"`
	HappenedAt *Timestamp `json:"happenedAt,omitempty"`
	CreatedAt  Timestamp  `json:"createdAt"`
	UpdatedAt  Timestamp  `json:"updatedAt"`
}

// CategoryRecord 默认分类及其记忆
type CategoryRecord struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Description string       `json:"description"`
	IsActive    bool         `json:"isActive"`
	Memories    []MemoryItem `json:"memories"`
	MemoryCount int          `json:"memoryCount"`
}

// DefaultCategoriesInput RetrieveDefaultCategories 的参数
type DefaultCategoriesInput struct {
	UserID          string
	AgentID         string // 可选
	IncludeInactive bool
}

type defaultCategoriesRequest struct {
	UserID          string `json:"userId"`
	AgentID         string `json:"agentId,omitempty"`
	IncludeInactive bool   `json:"includeInactive"`
}

// defaultCategoriesResponse total 用指针区分缺省与显式 0
type defaultCategoriesResponse struct {
	Categories      []CategoryRecord `json:"categories"`
	TotalCategories *int             `json:"totalCategories"`
}

// DefaultCategoriesResult 默认分类列表，顺序与服务端一致
type DefaultCategoriesResult struct {
	Categories      []CategoryRecord `json:"categories"`
	TotalCategories int              `json:"totalCategories"`
}

// RelatedMemory 语义检索命中的记忆，SimilarityScore ∈ [0,1]
type RelatedMemory struct {
	Memory          MemoryItem `json:"memory"`
	UserID          string     `json:"userId,omitempty"`
	AgentID         string     `json:"agentId,omitempty"`
	SimilarityScore float64    `json:"similarityScore"`
}

// RelatedMemoryItemsInput RetrieveRelatedMemoryItems 的参数
type RelatedMemoryItemsInput struct {
	UserID  string
	Query   string
	AgentID string // 可选
	// TopK 为 0 时取默认 10
	TopK int
	// MinSimilarity 为 nil 时取默认 0.3；0 是合法下限
	MinSimilarity     *float64
	IncludeCategories []string
}

type relatedMemoryItemsRequest struct {
	UserID            string   `json:"userId"`
	AgentID           string   `json:"agentId,omitempty"`
	Query             string   `json:"query"`
	TopK              int      `json:"topK"`
	MinSimilarity     float64  `json:"minSimilarity"`
	IncludeCategories []string `json:"includeCategories,omitempty"`
}

// RelatedMemoryItemsResult 检索结果；RelatedMemories 保持服务端顺序
type RelatedMemoryItemsResult struct {
	RelatedMemories []RelatedMemory `json:"relatedMemories"`
	Query           string          `json:"query"`
	TotalFound      int             `json:"totalFound"`
	SearchParams    map[string]any  `json:"searchParams,omitempty"`
}

// ClusteredCategory 与查询相关的聚类分类
type ClusteredCategory struct {
	Name            string       `json:"name"`
	UserID          string       `json:"userId,omitempty"`
	AgentID         string       `json:"agentId,omitempty"`
	SimilarityScore float64      `json:"similarityScore"`
	Memories        []MemoryItem `json:"memories"`
	MemoryCount     int          `json:"memoryCount"`
}

// ClusteredCategoriesInput RetrieveRelatedClusteredCategories 的参数
type ClusteredCategoriesInput struct {
	UserID        string
	CategoryQuery string
	AgentID       string // 可选
	// TopK 为 0 时取默认 5
	TopK          int
	MinSimilarity *float64
}

type clusteredCategoriesRequest struct {
	UserID        string  `json:"userId"`
	AgentID       string  `json:"agentId,omitempty"`
	CategoryQuery string  `json:"categoryQuery"`
	TopK          int     `json:"topK"`
	MinSimilarity float64 `json:"minSimilarity"`
}

// ClusteredCategoriesResult 聚类分类检索结果
type ClusteredCategoriesResult struct {
	ClusteredCategories  []ClusteredCategory `json:"clusteredCategories"`
	CategoryQuery        string              `json:"categoryQuery"`
	TotalCategoriesFound int                 `json:"totalCategoriesFound"`
	SearchParams         map[string]any      `json:"searchParams,omitempty"`
}

// Float 便于填写 MinSimilarity
func Float(v float64) *float64 { return &v }

// Timestamp 兼容 RFC 3339 与不带时区的 ISO-8601（按 UTC 解释）
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02",
}

// UnmarshalJSON 实现 json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	raw, err := strconv.Unquote(s)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", s, err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp %q: unsupported format", raw)
}

// MarshalJSON 实现 json.Marshaler；零值输出 null
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
