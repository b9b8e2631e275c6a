package search

import (
	"strings"
	"unicode/utf8"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
)

type Intent string

const (
	IntentBrand       Intent = "brand"
	IntentCategory    Intent = "category"
	IntentOccasion    Intent = "occasion"
	IntentDescriptive Intent = "descriptive"
	IntentLongQuery   Intent = "long_query"
	IntentDefault     Intent = "default"
	IntentVectorOnly  Intent = "vector_only"
)

// LongQueryRunes is the query length above which a query counts as descriptive.
const LongQueryRunes = 12

var intentWeights = map[Intent]Weights{
	IntentBrand:       {Vector: 0.3, Lexical: 0.7},
	IntentCategory:    {Vector: 0.5, Lexical: 0.5},
	IntentOccasion:    {Vector: 0.85, Lexical: 0.15},
	IntentDescriptive: {Vector: 0.7, Lexical: 0.3},
	IntentLongQuery:   {Vector: 0.75, Lexical: 0.25},
	IntentDefault:     {Vector: 0.6, Lexical: 0.4},
	IntentVectorOnly:  {Vector: 1, Lexical: 0},
}

func WeightsFor(intent Intent) Weights {
	w, ok := intentWeights[intent]
	if !ok {
		w = intentWeights[IntentDefault]
		intent = IntentDefault
	}
	w.Intent = intent
	return w
}

// Classify picks fusion weights from the query wording and the active filter.
// The first matching rule wins: brand, category-only, occasion, descriptive, long query.
func Classify(query string, f product.Filter) Weights {
	return WeightsFor(classify(strings.ToLower(strings.TrimSpace(query)), f))
}

func classify(q string, f product.Filter) Intent {
	switch {
	case containsAny(q, brandTerms):
		return IntentBrand
	case isCategoryOnly(q, f):
		return IntentCategory
	case containsAny(q, occasionTerms):
		return IntentOccasion
	case containsAny(q, descriptiveTerms):
		return IntentDescriptive
	case utf8.RuneCountInString(q) > LongQueryRunes:
		return IntentLongQuery
	default:
		return IntentDefault
	}
}

func isCategoryOnly(q string, f product.Filter) bool {
	if q == "" {
		return f.Category != "" && !f.HasPrice() && len(f.Categories) == 0
	}

	rest := q
	matched := false
	for _, ct := range categoryTerms {
		var found bool
		rest, found = removeTerm(rest, ct.term)
		matched = matched || found
	}
	for _, g := range garmentTerms {
		var found bool
		rest, found = removeTerm(rest, g)
		matched = matched || found
	}
	return matched && cleanKeywords(rest) == ""
}
