package search

import (
	"context"
	"sort"
	"strings"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"go.uber.org/zap"
)

const DefaultRelatedLimit = 4

type RelatedBreakdown struct {
	SearchMethod   string `json:"search_method"`
	TotalResults   int    `json:"total_results"`
	DegradedReason string `json:"degraded_reason,omitempty"`
}

type RelatedResponse struct {
	Success      bool             `json:"success"`
	ProductID    int64            `json:"productId"`
	TotalResults int              `json:"totalResults"`
	Breakdown    RelatedBreakdown `json:"breakdown"`
	Results      []Result         `json:"results"`
}

// Related finds products similar to id: nearest neighbors of its stored
// embedding, or shared categories and tags when no vector match exists.
func (e *Engine) Related(ctx context.Context, id int64, limit int) (RelatedResponse, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	limit = e.clampLimit(limit)

	p, err := e.lookup(ctx, id)
	if err != nil {
		return RelatedResponse{}, err
	}

	reason := ""
	if len(p.Embedding) > 0 {
		branch := e.Semantic.Search(ctx, p.Embedding, limit+1, product.Filter{})
		results := make([]Result, 0, limit)
		for _, h := range branch.Hits {
			if h.Product.Id == id {
				continue
			}
			sc := SemanticConfidence(h.Score)
			results = append(results, Result{
				Product:            h.Product,
				SearchType:         TypeSemantic,
				Confidence:         sc,
				SemanticConfidence: sc,
				Similarity:         h.Score,
			})
		}
		if len(results) > limit {
			results = results[:limit]
		}
		if len(results) > 0 {
			return relatedResponse(id, MethodVectorRelated, "", results), nil
		}
		reason = branch.Reason
	} else {
		reason = "product has no embedding"
	}

	if err := ctx.Err(); err != nil {
		return RelatedResponse{}, err
	}

	all, err := e.Products.FindAvailable(ctx, product.Filter{})
	if err != nil {
		return RelatedResponse{}, err
	}

	results := TagSimilar(p, all, limit)
	e.Logger.Debug("related products by tags", zap.Int64("id", id), zap.String("reason", reason), zap.Int("results", len(results)))
	return relatedResponse(id, MethodTagSimilarity, reason, results), nil
}

func relatedResponse(id int64, method, reason string, results []Result) RelatedResponse {
	return RelatedResponse{
		Success:      true,
		ProductID:    id,
		TotalResults: len(results),
		Breakdown: RelatedBreakdown{
			SearchMethod:   method,
			TotalResults:   len(results),
			DegradedReason: reason,
		},
		Results: results,
	}
}

// TagSimilar ranks candidates by how many categories and tags they share
// with p, plus one for the same category. Candidates sharing nothing are dropped.
func TagSimilar(p product.Product, candidates []product.Product, limit int) []Result {
	own := make(map[string]struct{}, len(p.Categories)+len(p.Tags))
	for _, s := range append(append([]string{}, p.Categories...), p.Tags...) {
		own[strings.ToLower(s)] = struct{}{}
	}
	maxScore := float64(len(own) + 1)

	type scored struct {
		p     product.Product
		score int
	}
	ranked := make([]scored, 0)
	for _, c := range candidates {
		if c.Id == p.Id || !c.Available {
			continue
		}

		score := 0
		if p.Category != "" && strings.EqualFold(c.Category, p.Category) {
			score++
		}
		seen := make(map[string]struct{})
		for _, s := range append(append([]string{}, c.Categories...), c.Tags...) {
			k := strings.ToLower(s)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			if _, ok := own[k]; ok {
				score++
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{p: c, score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].p.Id < ranked[j].p.Id
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]Result, 0, len(ranked))
	for _, r := range ranked {
		r.p.Embedding = nil
		results = append(results, Result{
			Product:           r.p,
			SearchType:        TypeLexical,
			Confidence:        clamp01(round6(float64(r.score) / maxScore)),
			LexicalConfidence: clamp01(round6(float64(r.score) / maxScore)),
		})
	}
	return results
}
