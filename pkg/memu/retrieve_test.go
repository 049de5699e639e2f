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
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "memu-sdk/pkg/errors"
)

const relatedItemsFixture = `{
  "related_memories": [
    {"memory": {"memory_id": "m1", "category": "profile", "content": "likes tea", "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z"}, "user_id": "u1", "similarity_score": 0.95},
    {"memory": {"memory_id": "m2", "category": "event", "content": "went hiking", "happened_at": "2025-12-30", "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z"}, "user_id": "u1", "similarity_score": 0.92},
    {"memory": {"memory_id": "m3", "category": "event", "content": "bought a bike", "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z"}, "user_id": "u1", "similarity_score": 0.5}
  ],
  "query": "hobbies",
  "total_found": 3,
  "search_params": {"top_k": 5, "min_similarity": 0.9}
}`

func TestRetrieveRelatedMemoryItems_FilterKeepsOrder(t *testing.T) {
	srv := newFixtureServer(t)
	srv.respond(http.MethodPost, "/api/v1/memory/retrieve/related-memory-items", http.StatusOK, relatedItemsFixture)

	c := newTestClient(t, srv.URL)
	res, err := c.RetrieveRelatedMemoryItems(context.Background(), RelatedMemoryItemsInput{
		UserID:        "u1",
		Query:         "hobbies",
		TopK:          5,
		MinSimilarity: Float(0.9),
	})
	require.NoError(t, err)
	require.Len(t, res.RelatedMemories, 2)
	assert.Equal(t, "m1", res.RelatedMemories[0].Memory.MemoryID)
	assert.Equal(t, "m2", res.RelatedMemories[1].Memory.MemoryID)
	assert.Equal(t, 0.95, res.RelatedMemories[0].SimilarityScore)
	require.NotNil(t, res.RelatedMemories[1].Memory.HappenedAt)
	assert.Equal(t, 2025, res.RelatedMemories[1].Memory.HappenedAt.Year())
	assert.Nil(t, res.RelatedMemories[0].Memory.HappenedAt)
	assert.Equal(t, "hobbies", res.Query)
	assert.Equal(t, 3, res.TotalFound)
	assert.Contains(t, res.SearchParams, "topK")

	body := srv.body("/api/v1/memory/retrieve/related-memory-items")
	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, "hobbies", body["query"])
	assert.Equal(t, float64(5), body["top_k"])
	assert.Equal(t, 0.9, body["min_similarity"])
	assert.NotContains(t, body, "agent_id")
}

func TestRetrieveRelatedMemoryItems_TopKTruncates(t *testing.T) {
	srv := newFixtureServer(t)
	srv.respond(http.MethodPost, "/api/v1/memory/retrieve/related-memory-items", http.StatusOK, relatedItemsFixture)

	c := newTestClient(t, srv.URL)
	res, err := c.RetrieveRelatedMemoryItems(context.Background(), RelatedMemoryItemsInput{
		UserID: "u1", Query: "hobbies", TopK: 1, MinSimilarity: Float(0),
	})
	require.NoError(t, err)
	require.Len(t, res.RelatedMemories, 1)
	assert.Equal(t, "m1", res.RelatedMemories[0].Memory.MemoryID)

	body := srv.body("/api/v1/memory/retrieve/related-memory-items")
	assert.Equal(t, float64(0), body["min_similarity"], "explicit zero is sent as is")
}

func TestRetrieveRelatedMemoryItems_Defaults(t *testing.T) {
	srv := newFixtureServer(t)
	srv.respond(http.MethodPost, "/api/v1/memory/retrieve/related-memory-items", http.StatusOK,
		`{"related_memories": [], "total_found": 0}`)

	c := newTestClient(t, srv.URL)
	res, err := c.RetrieveRelatedMemoryItems(context.Background(), RelatedMemoryItemsInput{
		UserID: "u1", Query: "q", AgentID: "a1", IncludeCategories: []string{"profile"},
	})
	require.NoError(t, err)
	assert.Empty(t, res.RelatedMemories)
	assert.Equal(t, "q", res.Query, "query echoed when server omits it")

	body := srv.body("/api/v1/memory/retrieve/related-memory-items")
	assert.Equal(t, float64(DefaultMemoryItemsTopK), body["top_k"])
	assert.Equal(t, DefaultMinSimilarity, body["min_similarity"])
	assert.Equal(t, "a1", body["agent_id"])
	assert.Equal(t, []any{"profile"}, body["include_categories"])
}

func TestRetrieveRelatedMemoryItems_ScoreOutOfRange(t *testing.T) {
	srv := newFixtureServer(t)
	srv.respond(http.MethodPost, "/api/v1/memory/retrieve/related-memory-items", http.StatusOK,
		`{"related_memories": [{"memory": {"memory_id": "m1"}, "similarity_score": 1.5}], "total_found": 1}`)

	c := newTestClient(t, srv.URL)
	res, err := c.RetrieveRelatedMemoryItems(context.Background(), RelatedMemoryItemsInput{UserID: "u1", Query: "q"})
	assert.Nil(t, res)
	assert.Equal(t, sdkerrors.KindAPI, sdkerrors.KindOf(err))
}

func TestRetrieve_InvalidBodyKeepsStatusAndBody(t *testing.T) {
	const raw = `{"related_memories": [{"memory": {"memory_id": "m1"}, "similarity_score": 1.5}], "total_found": 1}`
	srv := newFixtureServer(t)
	srv.respond(http.MethodPost, "/api/v1/memory/retrieve/related-memory-items", http.StatusCreated, raw)

	c := newTestClient(t, srv.URL)
	_, err := c.RetrieveRelatedMemoryItems(context.Background(), RelatedMemoryItemsInput{UserID: "u1", Query: "q"})
	var e *sdkerrors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, sdkerrors.KindAPI, e.Kind)
	assert.Equal(t, http.StatusCreated, e.StatusCode)
	assert.JSONEq(t, raw, string(e.Body))
	assert.Contains(t, e.Error(), "similarity score")
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestSearchInputValidation(t *testing.T) {
	srv := newFixtureServer(t)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	tests := []struct {
		name  string
		call  func() error
		field string
	}{
		{"items missing query", func() error {
			_, err := c.RetrieveRelatedMemoryItems(ctx, RelatedMemoryItemsInput{UserID: "u1"})
			return err
		}, "query"},
		{"items missing user", func() error {
			_, err := c.RetrieveRelatedMemoryItems(ctx, RelatedMemoryItemsInput{Query: "q"})
			return err
		}, "user_id"},
		{"items negative top k", func() error {
			_, err := c.RetrieveRelatedMemoryItems(ctx, RelatedMemoryItemsInput{UserID: "u1", Query: "q", TopK: -1})
			return err
		}, "top_k"},
		{"items similarity above one", func() error {
			_, err := c.RetrieveRelatedMemoryItems(ctx, RelatedMemoryItemsInput{UserID: "u1", Query: "q", MinSimilarity: Float(1.1)})
			return err
		}, "min_similarity"},
		{"clusters missing query", func() error {
			_, err := c.RetrieveRelatedClusteredCategories(ctx, ClusteredCategoriesInput{UserID: "u1"})
			return err
		}, "category_query"},
		{"clusters negative similarity", func() error {
			_, err := c.RetrieveRelatedClusteredCategories(ctx, ClusteredCategoriesInput{UserID: "u1", CategoryQuery: "q", MinSimilarity: Float(-0.1)})
			return err
		}, "min_similarity"},
		{"categories missing user", func() error {
			_, err := c.RetrieveDefaultCategories(ctx, DefaultCategoriesInput{})
			return err
		}, "user_id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			var e *sdkerrors.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, sdkerrors.KindValidation, e.Kind)
			assert.Equal(t, tc.field, e.Field)
		})
	}
	assert.Equal(t, int32(0), srv.hits.Load())
}

func TestRetrieveRelatedClusteredCategories(t *testing.T) {
	srv := newFixtureServer(t)
	srv.respond(http.MethodPost, "/api/v1/memory/retrieve/related-clustered-categories", http.StatusOK, `{
  "clustered_categories": [
    {"name": "outdoor", "user_id": "u1", "similarity_score": 0.8, "memories": [{"memory_id": "m2", "content": "went hiking"}]},
    {"name": "food", "user_id": "u1", "similarity_score": 0.2, "memories": []}
  ],
  "category_query": "hobbies",
  "total_categories_found": 2
}`)

	c := newTestClient(t, srv.URL)
	res, err := c.RetrieveRelatedClusteredCategories(context.Background(), ClusteredCategoriesInput{
		UserID: "u1", CategoryQuery: "hobbies",
	})
	require.NoError(t, err)
	require.Len(t, res.ClusteredCategories, 1)
	cat := res.ClusteredCategories[0]
	assert.Equal(t, "outdoor", cat.Name)
	assert.Equal(t, 1, cat.MemoryCount)
	assert.Equal(t, "went hiking", cat.Memories[0].Content)
	assert.Equal(t, 2, res.TotalCategoriesFound)

	body := srv.body("/api/v1/memory/retrieve/related-clustered-categories")
	assert.Equal(t, "hobbies", body["category_query"])
	assert.Equal(t, float64(DefaultCategoriesTopK), body["top_k"])
	assert.Equal(t, DefaultMinSimilarity, body["min_similarity"])
}

func TestRetrieveDefaultCategories(t *testing.T) {
	srv := newFixtureServer(t)
	srv.respond(http.MethodPost, "/api/v1/memory/retrieve/default-categories", http.StatusOK, `{
  "categories": [
    {"name": "profile", "type": "default", "description": "who the user is", "is_active": true,
     "memories": [{"memory_id": "m1", "content": "likes tea", "created_at": "2026-01-01 08:00:00"}]},
    {"name": "event", "type": "default", "is_active": false, "memories": [], "memory_count": 0}
  ]
}`)

	c := newTestClient(t, srv.URL)
	res, err := c.RetrieveDefaultCategories(context.Background(), DefaultCategoriesInput{
		UserID: "u1", IncludeInactive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCategories)
	require.Len(t, res.Categories, 2)
	assert.Equal(t, "profile", res.Categories[0].Name)
	assert.True(t, res.Categories[0].IsActive)
	assert.Equal(t, 1, res.Categories[0].MemoryCount)
	assert.Equal(t, 8, res.Categories[0].Memories[0].CreatedAt.Hour())
	assert.Equal(t, 0, res.Categories[1].MemoryCount)

	body := srv.body("/api/v1/memory/retrieve/default-categories")
	assert.Equal(t, true, body["include_inactive"])
	assert.NotContains(t, body, "agent_id")
}

func TestRetrieveDefaultCategories_CountMismatch(t *testing.T) {
	srv := newFixtureServer(t)
	srv.respond(http.MethodPost, "/api/v1/memory/retrieve/default-categories", http.StatusOK,
		`{"categories": [{"name": "profile"}], "total_categories": 3}`)

	c := newTestClient(t, srv.URL)
	res, err := c.RetrieveDefaultCategories(context.Background(), DefaultCategoriesInput{UserID: "u1"})
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, sdkerrors.ErrAPI))
}

func TestRetrieveDefaultCategories_ZeroTotalWithCategories(t *testing.T) {
	srv := newFixtureServer(t)
	srv.respond(http.MethodPost, "/api/v1/memory/retrieve/default-categories", http.StatusOK,
		`{"categories": [{"name": "profile", "memories": []}], "total_categories": 0}`)

	c := newTestClient(t, srv.URL)
	res, err := c.RetrieveDefaultCategories(context.Background(), DefaultCategoriesInput{UserID: "u1"})
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, sdkerrors.ErrAPI))
	assert.Contains(t, err.Error(), "total_categories 0")
}

func TestRetrieveDefaultCategories_MemoryCountMismatch(t *testing.T) {
	srv := newFixtureServer(t)
	srv.respond(http.MethodPost, "/api/v1/memory/retrieve/default-categories", http.StatusOK,
		`{"categories": [{"name": "profile", "memories": [{"memory_id": "m1"}], "memory_count": 7}]}`)

	c := newTestClient(t, srv.URL)
	res, err := c.RetrieveDefaultCategories(context.Background(), DefaultCategoriesInput{UserID: "u1"})
	assert.Nil(t, res)
	var e *sdkerrors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, sdkerrors.KindAPI, e.Kind)
	assert.Contains(t, e.Error(), "memory_count 7")
}

func TestRetrieveRelatedClusteredCategories_MemoryCountMismatch(t *testing.T) {
	srv := newFixtureServer(t)
	srv.respond(http.MethodPost, "/api/v1/memory/retrieve/related-clustered-categories", http.StatusOK,
		`{"clustered_categories": [{"name": "outdoor", "similarity_score": 0.8, "memories": [{"memory_id": "m2"}], "memory_count": 7}]}`)

	c := newTestClient(t, srv.URL)
	res, err := c.RetrieveRelatedClusteredCategories(context.Background(), ClusteredCategoriesInput{
		UserID: "u1", CategoryQuery: "q",
	})
	assert.Nil(t, res)
	assert.Equal(t, sdkerrors.KindAPI, sdkerrors.KindOf(err))
	assert.Contains(t, err.Error(), "memory_count 7")
}

func TestRetrieve_ServerErrorNotRetried(t *testing.T) {
	srv := newFixtureServer(t)
	srv.respond(http.MethodPost, "/api/v1/memory/retrieve/default-categories", http.StatusServiceUnavailable,
		`{"detail":"maintenance"}`)

	c := newTestClient(t, srv.URL)
	_, err := c.RetrieveDefaultCategories(context.Background(), DefaultCategoriesInput{UserID: "u1"})
	var e *sdkerrors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, sdkerrors.KindAPI, e.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, e.StatusCode)
	assert.Equal(t, int32(1), srv.hits.Load())
}
