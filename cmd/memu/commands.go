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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	sdkerrors "memu-sdk/pkg/errors"
	"memu-sdk/pkg/memu"
)

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// taskIDArg 取唯一的位置参数
func taskIDArg(fs *flag.FlagSet, stderr io.Writer) (string, error) {
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Usage: memu %s [flags] <task_id>\n", fs.Name())
		return "", errUsage
	}
	return fs.Arg(0), nil
}

func runConfig(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("config", stderr)
	if err := parse(fs, args); err != nil {
		return err
	}
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	p, err := resolveProfile(ctx, cfg)
	if err != nil {
		return err
	}
	cacheType := cfg.Cache.Type
	if cacheType == "" {
		cacheType = "none"
	}
	return writeJSON(stdout, map[string]interface{}{
		"baseUrl":           p.BaseURL,
		"apiKey":            maskSecret(p.APIKey),
		"timeout":           p.Timeout.String(),
		"maxRetries":        p.MaxRetries,
		"retryBackoff":      p.RetryBackoff.String(),
		"maxRetryBackoff":   p.MaxRetryBackoff.String(),
		"requestsPerSecond": p.RequestsPerSecond,
		"statusCache":       cacheType,
	})
}

func runMemorize(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("memorize", stderr)
	var in memu.MemorizeInput
	var file, session string
	fs.StringVar(&in.UserID, "user", "", "用户 ID")
	fs.StringVar(&in.UserName, "user-name", "", "用户名")
	fs.StringVar(&in.AgentID, "agent", "", "Agent ID")
	fs.StringVar(&in.AgentName, "agent-name", "", "Agent 名称")
	fs.StringVar(&in.ConversationText, "text", "", "对话文本")
	fs.StringVar(&file, "file", "", "对话轮次 JSON 文件，[{\"role\":..,\"content\":..}]；- 表示 stdin")
	fs.StringVar(&session, "session-date", "", "会话时间 RFC 3339，默认当前时间")
	if err := parse(fs, args); err != nil {
		return err
	}
	if file != "" {
		turns, err := readTurns(file)
		if err != nil {
			return err
		}
		in.Conversation = turns
	}
	if session != "" {
		t, err := time.Parse(time.RFC3339, session)
		if err != nil {
			return sdkerrors.Validation("session_date", "invalid session date %q", session)
		}
		in.SessionDate = t
	}

	s, err := openSession(ctx, g, stderr)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	resp, err := s.client.MemorizeConversation(ctx, in)
	if err != nil {
		return err
	}
	return writeJSON(stdout, resp)
}

func readTurns(path string) ([]memu.Turn, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, sdkerrors.Wrap(err, "读取对话文件失败")
		}
		defer f.Close()
		r = f
	}
	var turns []memu.Turn
	if err := json.NewDecoder(r).Decode(&turns); err != nil {
		return nil, sdkerrors.Validation("conversation", "invalid conversation file: %v", err)
	}
	return turns, nil
}

func runStatus(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("status", stderr)
	if err := parse(fs, args); err != nil {
		return err
	}
	taskID, err := taskIDArg(fs, stderr)
	if err != nil {
		return err
	}

	s, err := openSession(ctx, g, stderr)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	rec, err := s.client.GetTaskStatus(ctx, taskID)
	if err != nil {
		return err
	}
	return writeJSON(stdout, rec)
}

// runWait 由调用方驱动的轮询：库本身不做后台轮询
func runWait(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("wait", stderr)
	interval := fs.Duration("interval", 2*time.Second, "轮询间隔")
	timeout := fs.Duration("timeout", 10*time.Minute, "最长等待时间")
	if err := parse(fs, args); err != nil {
		return err
	}
	taskID, err := taskIDArg(fs, stderr)
	if err != nil {
		return err
	}
	if *interval <= 0 {
		*interval = 2 * time.Second
	}

	s, err := openSession(ctx, g, stderr)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	var last memu.TaskStatus
	for {
		rec, err := s.client.GetTaskStatus(ctx, taskID)
		switch {
		case err == nil:
			if rec.Status != last {
				fmt.Fprintf(stderr, "  status: %s\n", rec.Status)
				last = rec.Status
			}
			if rec.Status.IsTerminal() {
				if err := writeJSON(stdout, rec); err != nil {
					return err
				}
				if rec.Status == memu.TaskFailure {
					return fmt.Errorf("任务 %s 失败: %s", taskID, rec.Error)
				}
				return nil
			}
		case sdkerrors.Retryable(err) && ctx.Err() == nil:
			s.logger.Warn("查询任务状态失败，稍后重试", "task_id", taskID, "error", err)
		default:
			return err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("等待任务 %s 超时（最后状态 %s）: %w", taskID, last, ctx.Err())
		case <-ticker.C:
		}
	}
}

func runCategories(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("categories", stderr)
	var in memu.DefaultCategoriesInput
	fs.StringVar(&in.UserID, "user", "", "用户 ID")
	fs.StringVar(&in.AgentID, "agent", "", "Agent ID（可选）")
	fs.BoolVar(&in.IncludeInactive, "include-inactive", false, "包含未激活分类")
	if err := parse(fs, args); err != nil {
		return err
	}

	s, err := openSession(ctx, g, stderr)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	res, err := s.client.RetrieveDefaultCategories(ctx, in)
	if err != nil {
		return err
	}
	return writeJSON(stdout, res)
}

func runSearch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("search", stderr)
	var in memu.RelatedMemoryItemsInput
	var categories string
	fs.StringVar(&in.UserID, "user", "", "用户 ID")
	fs.StringVar(&in.AgentID, "agent", "", "Agent ID（可选）")
	fs.StringVar(&in.Query, "query", "", "检索语句")
	fs.IntVar(&in.TopK, "top-k", memu.DefaultMemoryItemsTopK, "最多返回条数")
	minSim := fs.Float64("min-similarity", memu.DefaultMinSimilarity, "最低相似度 [0,1]")
	fs.StringVar(&categories, "categories", "", "只检索这些分类，逗号分隔")
	if err := parse(fs, args); err != nil {
		return err
	}
	in.MinSimilarity = minSim
	in.IncludeCategories = splitList(categories)

	s, err := openSession(ctx, g, stderr)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	res, err := s.client.RetrieveRelatedMemoryItems(ctx, in)
	if err != nil {
		return err
	}
	return writeJSON(stdout, res)
}

func runClusters(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, g := newFlagSet("clusters", stderr)
	var in memu.ClusteredCategoriesInput
	fs.StringVar(&in.UserID, "user", "", "用户 ID")
	fs.StringVar(&in.AgentID, "agent", "", "Agent ID（可选）")
	fs.StringVar(&in.CategoryQuery, "query", "", "分类检索语句")
	fs.IntVar(&in.TopK, "top-k", memu.DefaultCategoriesTopK, "最多返回分类数")
	minSim := fs.Float64("min-similarity", memu.DefaultMinSimilarity, "最低相似度 [0,1]")
	if err := parse(fs, args); err != nil {
		return err
	}
	in.MinSimilarity = minSim

	s, err := openSession(ctx, g, stderr)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	res, err := s.client.RetrieveRelatedClusteredCategories(ctx, in)
	if err != nil {
		return err
	}
	return writeJSON(stdout, res)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
