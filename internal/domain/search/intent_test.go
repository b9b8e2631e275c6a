package search

import (
	"testing"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		filter product.Filter
		intent Intent
	}{
		{name: "brand wins", query: "NIKE運動鞋", intent: IntentBrand},
		{name: "brand with occasion", query: "adidas 約會", intent: IntentBrand},
		{name: "garment only", query: "外套", intent: IntentCategory},
		{name: "audience and garment", query: "女裝 外套", intent: IntentCategory},
		{name: "english garment", query: "men's jackets", intent: IntentCategory},
		{name: "qualified query with category filter", query: "black tee", filter: product.Filter{Category: "women"}, intent: IntentDefault},
		{name: "garment with category filter", query: "jacket", filter: product.Filter{Category: "women"}, intent: IntentCategory},
		{name: "colored garment", query: "black jacket", intent: IntentDefault},
		{name: "empty query with category filter", query: "", filter: product.Filter{Category: "kids"}, intent: IntentCategory},
		{name: "category filter with price", query: "black tee", filter: product.Filter{Category: "women", MaxPrice: ptr(500)}, intent: IntentDefault},
		{name: "occasion", query: "約會穿搭", intent: IntentOccasion},
		{name: "descriptive", query: "舒適的衣服", intent: IntentDescriptive},
		{name: "long query", query: "black leather biker boots with silver buckles", intent: IntentLongQuery},
		{name: "default", query: "黑色上衣", intent: IntentDefault},
		{name: "men is not women", query: "women", intent: IntentCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := Classify(tc.query, tc.filter)
			assert.Equal(t, tc.intent, w.Intent)
		})
	}
}

func TestClassifyBrandWeights(t *testing.T) {
	w := Classify("NIKE運動鞋", product.Filter{})
	assert.Equal(t, 0.3, w.Vector)
	assert.Equal(t, 0.7, w.Lexical)
}

func TestWeightsSumToOne(t *testing.T) {
	for intent := range intentWeights {
		w := WeightsFor(intent)
		assert.InDelta(t, 1.0, w.Vector+w.Lexical, 1e-9, string(intent))
		assert.Equal(t, intent, w.Intent)
	}
}

func TestWeightsForUnknownIntent(t *testing.T) {
	w := WeightsFor("weird")
	assert.Equal(t, IntentDefault, w.Intent)
	assert.Equal(t, 0.6, w.Vector)
	assert.Equal(t, 0.4, w.Lexical)
}
