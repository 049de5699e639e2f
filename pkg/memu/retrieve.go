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
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"

	"memu-sdk/internal/transport"
	sdkerrors "memu-sdk/pkg/errors"
	"memu-sdk/pkg/utils"
)

// RetrieveDefaultCategories 获取用户（可选 Agent）的默认分类及其记忆
func (c *Client) RetrieveDefaultCategories(ctx context.Context, in DefaultCategoriesInput) (*DefaultCategoriesResult, error) {
	if err := required(map[string]string{"user_id": in.UserID}); err != nil {
		return nil, err
	}

	var resp defaultCategoriesResponse
	if err := c.transport.Do(ctx, transport.Request{
		Operation: "retrieve_default_categories",
		Method:    http.MethodPost,
		Path:      pathDefaultCategories,
		Body: defaultCategoriesRequest{
			UserID:          in.UserID,
			AgentID:         in.AgentID,
			IncludeInactive: in.IncludeInactive,
		},
		Check: func() error {
			if t := resp.TotalCategories; t != nil && *t != len(resp.Categories) {
				return fmt.Errorf("total_categories %d does not match %d categories", *t, len(resp.Categories))
			}
			for i, cat := range resp.Categories {
				if err := checkMemoryCount("categories", i, cat.MemoryCount, len(cat.Memories)); err != nil {
					return err
				}
			}
			return nil
		},
	}, &resp); err != nil {
		return nil, err
	}

	out := &DefaultCategoriesResult{Categories: resp.Categories, TotalCategories: len(resp.Categories)}
	for i := range out.Categories {
		out.Categories[i].MemoryCount = len(out.Categories[i].Memories)
	}
	return out, nil
}

// RetrieveRelatedMemoryItems 按语义检索相关记忆。结果保持服务端顺序，
// 仅剔除低于 MinSimilarity 的条目并截断到 TopK
func (c *Client) RetrieveRelatedMemoryItems(ctx context.Context, in RelatedMemoryItemsInput) (*RelatedMemoryItemsResult, error) {
	if err := required(map[string]string{"user_id": in.UserID, "query": in.Query}); err != nil {
		return nil, err
	}
	topK, minSim, err := searchBounds(in.TopK, DefaultMemoryItemsTopK, in.MinSimilarity)
	if err != nil {
		return nil, err
	}

	var out RelatedMemoryItemsResult
	if err := c.transport.Do(ctx, transport.Request{
		Operation: "retrieve_related_memory_items",
		Method:    http.MethodPost,
		Path:      pathRelatedMemoryItems,
		Body: relatedMemoryItemsRequest{
			UserID:            in.UserID,
			AgentID:           in.AgentID,
			Query:             in.Query,
			TopK:              topK,
			MinSimilarity:     minSim,
			IncludeCategories: in.IncludeCategories,
		},
		Check: func() error {
			for i, m := range out.RelatedMemories {
				if err := checkScore("related_memories", i, m.SimilarityScore); err != nil {
					return err
				}
			}
			return nil
		},
	}, &out); err != nil {
		return nil, err
	}

	kept := out.RelatedMemories[:0]
	for _, m := range out.RelatedMemories {
		if m.SimilarityScore >= minSim && len(kept) < topK {
			kept = append(kept, m)
		}
	}
	out.RelatedMemories = kept
	if out.Query == "" {
		out.Query = in.Query
	}
	return &out, nil
}

// RetrieveRelatedClusteredCategories 按语义检索相关的聚类分类，排序规则同 RetrieveRelatedMemoryItems
func (c *Client) RetrieveRelatedClusteredCategories(ctx context.Context, in ClusteredCategoriesInput) (*ClusteredCategoriesResult, error) {
	if err := required(map[string]string{"user_id": in.UserID, "category_query": in.CategoryQuery}); err != nil {
		return nil, err
	}
	topK, minSim, err := searchBounds(in.TopK, DefaultCategoriesTopK, in.MinSimilarity)
	if err != nil {
		return nil, err
	}

	var out ClusteredCategoriesResult
	if err := c.transport.Do(ctx, transport.Request{
		Operation: "retrieve_related_clustered_categories",
		Method:    http.MethodPost,
		Path:      pathRelatedClusteredCategories,
		Body: clusteredCategoriesRequest{
			UserID:        in.UserID,
			AgentID:       in.AgentID,
			CategoryQuery: in.CategoryQuery,
			TopK:          topK,
			MinSimilarity: minSim,
		},
		Check: func() error {
			for i, cat := range out.ClusteredCategories {
				if err := checkScore("clustered_categories", i, cat.SimilarityScore); err != nil {
					return err
				}
				if err := checkMemoryCount("clustered_categories", i, cat.MemoryCount, len(cat.Memories)); err != nil {
					return err
				}
			}
			return nil
		},
	}, &out); err != nil {
		return nil, err
	}

	kept := out.ClusteredCategories[:0]
	for _, cat := range out.ClusteredCategories {
		if cat.SimilarityScore >= minSim && len(kept) < topK {
			cat.MemoryCount = len(cat.Memories)
			kept = append(kept, cat)
		}
	}
	out.ClusteredCategories = kept
	if out.CategoryQuery == "" {
		out.CategoryQuery = in.CategoryQuery
	}
	return &out, nil
}

func checkScore(field string, i int, score float64) error {
	if !validScore(score) {
		return fmt.Errorf("%s[%d]: similarity score %v outside [0, 1]", field, i, score)
	}
	return nil
}

// checkMemoryCount memory_count 缺省（0）时由列表长度补齐，非零时必须与列表长度一致
func checkMemoryCount(field string, i, count, n int) error {
	if count != 0 && count != n {
		return fmt.Errorf("%s[%d]: memory_count %d does not match %d memories", field, i, count, n)
	}
	return nil
}

func searchBounds(topK, defaultTopK int, minSimilarity *float64) (int, float64, error) {
	topK = utils.Coalesce(topK, defaultTopK)
	if topK < 0 {
		return 0, 0, sdkerrors.Validation("top_k", "top_k must be positive, got %d", topK)
	}
	minSim := DefaultMinSimilarity
	if minSimilarity != nil {
		minSim = *minSimilarity
	}
	if !validScore(minSim) {
		return 0, 0, sdkerrors.Validation("min_similarity", "min_similarity must be within [0, 1], got %v", minSim)
	}
	return topK, minSim, nil
}

func validScore(s float64) bool {
	return !math.IsNaN(s) && s >= 0 && s <= 1
}

// required 按字段名顺序检查必填项，保证错误信息稳定
func required(fields map[string]string) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.TrimSpace(fields[name]) == "" {
			return sdkerrors.Validation(name, "%s is required", name)
		}
	}
	return nil
}

func errMissing(field string) error {
	return fmt.Errorf("response missing %s", field)
}
