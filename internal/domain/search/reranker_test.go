package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedResults(n int) []Result {
	results := make([]Result, 0, n)
	for i := 1; i <= n; i++ {
		results = append(results, Result{
			Product:    product.Product{Id: int64(i), Name: fmt.Sprintf("item-%d", i), NewPrice: float64(i * 100)},
			SearchType: TypeHybrid,
			Confidence: 1 - float64(i)/10,
		})
	}
	return results
}

func recommended(results []Result) []int64 {
	ids := make([]int64, 0)
	for _, r := range results {
		if r.Recommended {
			ids = append(ids, r.Id)
		}
	}
	return ids
}

func TestAnnotateMarksOneResult(t *testing.T) {
	c := &fakeCompleter{reply: `{"index": 2, "reason": "價格實惠"}`}
	in := rankedResults(3)

	out := NewRecommender(c, 0, time.Second, nil).Annotate(context.Background(), in, "外套")
	require.Len(t, out, 3)
	assert.Equal(t, []int64{2}, recommended(out))
	assert.Equal(t, "價格實惠", out[1].RecommendationReason)
	assert.Equal(t, resultIDs(in), resultIDs(out))
	for i := range in {
		assert.Equal(t, in[i].Confidence, out[i].Confidence)
	}

	assert.Empty(t, recommended(in))
	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], "「外套」")
	assert.Contains(t, c.prompts[0], "2. item-2 - $200")
}

func TestAnnotateLeavesResultsOnFailure(t *testing.T) {
	cases := map[string]*fakeCompleter{
		"provider error": {err: errors.New("rate limited")},
		"malformed":      {reply: "They are all great!"},
		"out of range":   {reply: `{"index": 4, "reason": "x"}`},
		"zero index":     {reply: `{"index": 0, "reason": "x"}`},
		"negative index": {reply: "推薦商品：-1"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			in := rankedResults(3)
			out := NewRecommender(c, 0, time.Second, nil).Annotate(context.Background(), in, "q")
			assert.Equal(t, in, out)
		})
	}
}

func TestAnnotateOnlyConsidersTopN(t *testing.T) {
	c := &fakeCompleter{reply: `{"index": 4, "reason": "x"}`}
	out := NewRecommender(c, 3, time.Second, nil).Annotate(context.Background(), rankedResults(6), "q")
	assert.Empty(t, recommended(out))
	assert.NotContains(t, c.prompts[0], "4. item-4")
}

func TestAnnotateSkipsSingleResult(t *testing.T) {
	c := &fakeCompleter{reply: `{"index": 1, "reason": "x"}`}
	out := NewRecommender(c, 0, time.Second, nil).Annotate(context.Background(), rankedResults(1), "q")
	assert.Empty(t, recommended(out))
	assert.Equal(t, 0, c.calls())

	var r *Recommender
	assert.Len(t, r.Annotate(context.Background(), rankedResults(2), "q"), 2)
}

func TestParseRecommendation(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		index  int
		reason string
	}{
		{"json", `{"index": 3, "reason": "最保暖"}`, 3, "最保暖"},
		{"json string index", `{"index": "2", "reason": "輕便"}`, 2, "輕便"},
		{"fenced json", "```json\n{\"index\": 1, \"reason\": \"經典款\"}\n```", 1, "經典款"},
		{"json with prose", `我推薦 {"index": 2, "reason": "百搭"} 謝謝`, 2, "百搭"},
		{"labeled", "推薦商品：3\n推薦理由：價格實惠", 3, "價格實惠"},
		{"labeled ascii colon", "推薦商品: [2]\n推薦理由: 適合通勤", 2, "適合通勤"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			index, reason, err := ParseRecommendation(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.index, index)
			assert.Equal(t, tc.reason, reason)
		})
	}

	_, _, err := ParseRecommendation("no idea")
	assert.Error(t, err)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "舒適", truncateRunes("舒適", 2))
	assert.Equal(t, "舒適…", truncateRunes("舒適透氣", 2))
}
