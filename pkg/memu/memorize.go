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
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"memu-sdk/internal/transport"
	sdkerrors "memu-sdk/pkg/errors"
	"memu-sdk/pkg/metrics"
)

// MemorizeConversation 提交一段对话做记忆化，返回异步任务回执
func (c *Client) MemorizeConversation(ctx context.Context, in MemorizeInput) (*MemorizeResponse, error) {
	req, err := c.buildMemorizeRequest(in)
	if err != nil {
		return nil, err
	}

	var out MemorizeResponse
	if err := c.transport.Do(ctx, transport.Request{
		Operation: "memorize",
		Method:    http.MethodPost,
		Path:      pathMemorize,
		Body:      req,
		Check: func() error {
			if strings.TrimSpace(out.TaskID) == "" {
				return errMissing("task_id")
			}
			return nil
		},
	}, &out); err != nil {
		return nil, err
	}
	out.Status = normalizeStatus(out.Status)
	c.logger.Info("memorize task submitted", "task_id", out.TaskID, "status", string(out.Status))
	return &out, nil
}

func (c *Client) buildMemorizeRequest(in MemorizeInput) (*memorizeRequest, error) {
	hasText := strings.TrimSpace(in.ConversationText) != ""
	hasTurns := len(in.Conversation) > 0
	switch {
	case hasText && hasTurns:
		return nil, sdkerrors.Validation("conversation", "provide either conversation text or conversation turns, not both")
	case !hasText && !hasTurns:
		return nil, sdkerrors.Validation("conversation", "conversation text or conversation turns is required")
	}
	for i, turn := range in.Conversation {
		if strings.TrimSpace(turn.Role) == "" {
			return nil, sdkerrors.Validation("conversation", "turn %d: role is required", i)
		}
		if strings.TrimSpace(turn.Content) == "" {
			return nil, sdkerrors.Validation("conversation", "turn %d: content is required", i)
		}
	}
	if err := required(map[string]string{
		"user_id":    in.UserID,
		"user_name":  in.UserName,
		"agent_id":   in.AgentID,
		"agent_name": in.AgentName,
	}); err != nil {
		return nil, err
	}

	session := in.SessionDate
	if session.IsZero() {
		session = c.now()
	}
	req := &memorizeRequest{
		UserID:      in.UserID,
		UserName:    in.UserName,
		AgentID:     in.AgentID,
		AgentName:   in.AgentName,
		SessionDate: session.UTC().Format(time.RFC3339),
	}
	if hasText {
		req.ConversationText = in.ConversationText
	} else {
		req.Conversation = in.Conversation
	}
	return req, nil
}

// GetTaskStatus 查询任务状态；只读，可重复调用。配置了状态缓存时终态结果直接从缓存返回
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusRecord, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, sdkerrors.Validation("task_id", "task id is required")
	}

	if c.cache != nil {
		var cached TaskStatusRecord
		ok, err := c.cache.Get(ctx, c.cacheKey(taskID), &cached)
		if err != nil {
			c.logger.Warn("status cache read failed", "task_id", taskID, "error", err)
		} else if ok && cached.Status.IsTerminal() {
			metrics.CacheHitTotal.Inc()
			return &cached, nil
		}
	}

	var out TaskStatusRecord
	if err := c.transport.Do(ctx, transport.Request{
		Operation: "get_task_status",
		Method:    http.MethodGet,
		Path:      pathMemorizeStatus + url.PathEscape(taskID),
	}, &out); err != nil {
		return nil, err
	}
	out.Status = normalizeStatus(out.Status)
	if out.TaskID == "" {
		out.TaskID = taskID
	}

	if c.cache != nil && out.Status.IsTerminal() {
		if err := c.cache.Set(ctx, c.cacheKey(taskID), &out); err != nil {
			c.logger.Warn("status cache write failed", "task_id", taskID, "error", err)
		}
	}
	return &out, nil
}

func normalizeStatus(s TaskStatus) TaskStatus {
	return TaskStatus(strings.ToUpper(strings.TrimSpace(string(s))))
}

// cacheKey 同一缓存可被多个服务地址或 API Key 共享，任务 ID 需加命名空间
func (c *Client) cacheKey(taskID string) string {
	return c.scope + ":" + taskID
}
