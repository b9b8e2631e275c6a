package search

import (
	"math"
	"sort"
	"strings"
)

// Band maps raw scores of at least Min to Confidence.
type Band struct {
	Min        float64
	Confidence float64
}

// Bands are ordered by descending Min; the last band catches everything else.
var (
	SemanticBands = []Band{
		{Min: 0.90, Confidence: 0.95},
		{Min: 0.85, Confidence: 0.85},
		{Min: 0.80, Confidence: 0.75},
		{Min: 0, Confidence: 0.60},
	}
	LexicalBands = []Band{
		{Min: 0.95, Confidence: 1.0},
		{Min: 0.80, Confidence: 0.80},
		{Min: 0, Confidence: 0.50},
	}
)

func bandConfidence(bands []Band, score float64) float64 {
	for _, b := range bands {
		if score >= b.Min {
			return b.Confidence
		}
	}
	return 0
}

func SemanticConfidence(similarity float64) float64 {
	return bandConfidence(SemanticBands, similarity)
}

func LexicalConfidence(score float64) float64 {
	return bandConfidence(LexicalBands, score)
}

// Fuse merges both branches by product id, weights each branch confidence
// and orders by final score, then id. Either branch may be empty.
func Fuse(lexical, semantic Branch, w Weights, limit int) ([]Result, Breakdown) {
	merged := make(map[int64]*Result, len(lexical.Hits)+len(semantic.Hits))
	order := make([]int64, 0, len(lexical.Hits)+len(semantic.Hits))

	for _, h := range lexical.Hits {
		if _, dup := merged[h.Product.Id]; dup {
			continue
		}
		lc := LexicalConfidence(h.Score)
		merged[h.Product.Id] = &Result{
			Product:           h.Product,
			SearchType:        TypeLexical,
			LexicalConfidence: lc,
			Confidence:        lc * w.Lexical,
		}
		order = append(order, h.Product.Id)
	}

	hybrid := 0
	for _, h := range semantic.Hits {
		sc := SemanticConfidence(h.Score)
		if r, ok := merged[h.Product.Id]; ok {
			if r.SearchType == TypeHybrid || r.SearchType == TypeSemantic {
				continue
			}
			r.SearchType = TypeHybrid
			r.SemanticConfidence = sc
			r.Similarity = h.Score
			r.Confidence = r.LexicalConfidence*w.Lexical + sc*w.Vector
			hybrid++
			continue
		}
		merged[h.Product.Id] = &Result{
			Product:            h.Product,
			SearchType:         TypeSemantic,
			SemanticConfidence: sc,
			Similarity:         h.Score,
			Confidence:         sc * w.Vector,
		}
		order = append(order, h.Product.Id)
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		r := merged[id]
		r.Confidence = clamp01(round6(r.Confidence))
		r.Embedding = nil
		results = append(results, *r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Id < results[j].Id
	})

	if limit < 0 {
		limit = 0
	}
	if len(results) > limit {
		results = results[:limit]
	}

	bd := Breakdown{
		SearchMethod:   searchMethod(lexical, semantic),
		LexicalCount:   len(lexical.Hits),
		SemanticCount:  len(semantic.Hits),
		MergedCount:    len(order),
		HybridCount:    hybrid,
		TotalResults:   len(results),
		Weights:        w,
		LexicalStatus:  lexical.Status,
		SemanticStatus: semantic.Status,
		DegradedReason: degradedReason(lexical, semantic),
	}
	return results, bd
}

func searchMethod(lexical, semantic Branch) string {
	lex, sem := len(lexical.Hits) > 0, len(semantic.Hits) > 0
	switch {
	case lex && sem:
		return MethodHybrid
	case lex && semantic.Status == StatusSkipped:
		return MethodLexicalOnly
	case lex && semantic.Status == StatusUnavailable:
		return MethodLexicalFallback
	case lex:
		return MethodLexicalOnly
	case sem && lexical.Status == StatusSkipped:
		return MethodVectorOnly
	case sem && lexical.Status == StatusUnavailable:
		return MethodSemanticFallback
	case sem:
		return MethodSemanticOnly
	case lexical.Status == StatusUnavailable && semantic.Status == StatusUnavailable:
		return MethodUnavailable
	case lexical.Status == StatusSkipped && semantic.Status == StatusUnavailable:
		return MethodUnavailable
	default:
		return MethodNoResults
	}
}

func degradedReason(lexical, semantic Branch) string {
	var reasons []string
	if lexical.Status == StatusUnavailable {
		reasons = append(reasons, "lexical: "+lexical.Reason)
	}
	if semantic.Status == StatusUnavailable {
		reasons = append(reasons, "semantic: "+semantic.Reason)
	}
	return strings.Join(reasons, "; ")
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// round6 drops float noise so equal weighted sums compare equal.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
