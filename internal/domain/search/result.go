package search

import (
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
)

type SearchType string

const (
	TypeLexical  SearchType = "lexical"
	TypeSemantic SearchType = "semantic"
	TypeHybrid   SearchType = "hybrid"
)

// Status is the outcome of one retrieval branch.
type Status string

const (
	StatusOK          Status = "ok"
	StatusEmpty       Status = "empty"
	StatusUnavailable Status = "unavailable"
	StatusSkipped     Status = "skipped"
)

const (
	MethodHybrid           = "hybrid_search"
	MethodLexicalOnly      = "lexical_only_search"
	MethodLexicalFallback  = "lexical_fallback"
	MethodSemanticOnly     = "semantic_only_search"
	MethodSemanticFallback = "semantic_fallback"
	MethodVectorOnly       = "vector_only_search"
	MethodNoResults        = "no_results"
	MethodUnavailable      = "search_unavailable"
	MethodVectorRelated    = "vector_related"
	MethodTagSimilarity    = "tag_similarity"
	MethodExactName        = "exact_name_match"
)

// Hit is a branch candidate with its branch-native score.
type Hit struct {
	Product product.Product
	Score   float64
}

// Branch is what one retriever produced. Reason explains an empty or unavailable branch.
type Branch struct {
	Hits   []Hit
	Status Status
	Reason string
}

func okOrEmpty(hits []Hit) Branch {
	if len(hits) == 0 {
		return Branch{Hits: hits, Status: StatusEmpty, Reason: "no matches"}
	}
	return Branch{Hits: hits, Status: StatusOK}
}

func unavailable(reason string) Branch {
	return Branch{Hits: []Hit{}, Status: StatusUnavailable, Reason: reason}
}

func empty(reason string) Branch {
	return Branch{Hits: []Hit{}, Status: StatusEmpty, Reason: reason}
}

func skipped() Branch {
	return Branch{Hits: []Hit{}, Status: StatusSkipped}
}

type Result struct {
	product.Product
	SearchType           SearchType `json:"search_type"`
	Confidence           float64    `json:"confidence"`
	LexicalConfidence    float64    `json:"lexical_confidence,omitempty"`
	SemanticConfidence   float64    `json:"semantic_confidence,omitempty"`
	Similarity           float64    `json:"similarity,omitempty"`
	Recommended          bool       `json:"recommended,omitempty"`
	RecommendationReason string     `json:"recommendation_reason,omitempty"`
}

// Weights are the per-branch fusion multipliers. Vector + Lexical == 1.
type Weights struct {
	Vector  float64 `json:"vector"`
	Lexical float64 `json:"lexical"`
	Intent  Intent  `json:"intent"`
}

type Breakdown struct {
	SearchMethod    string         `json:"search_method"`
	LexicalCount    int            `json:"lexical_count"`
	SemanticCount   int            `json:"semantic_count"`
	MergedCount     int            `json:"merged_count"`
	HybridCount     int            `json:"hybrid_count"`
	TotalResults    int            `json:"total_results"`
	Weights         Weights        `json:"weights"`
	LexicalStatus   Status         `json:"lexical_status"`
	SemanticStatus  Status         `json:"semantic_status"`
	DegradedReason  string         `json:"degraded_reason,omitempty"`
	NormalizedQuery string         `json:"normalized_query,omitempty"`
	NormalizeSource string         `json:"normalize_source,omitempty"`
	Filters         product.Filter `json:"filters"`
	RequestID       string         `json:"request_id,omitempty"`
}

type Recommendation struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}

type Response struct {
	Success           bool            `json:"success"`
	Query             string          `json:"query"`
	TotalResults      int             `json:"totalResults"`
	Breakdown         Breakdown       `json:"breakdown"`
	Results           []Result        `json:"results"`
	LLMRecommendation *Recommendation `json:"llm_recommendation"`
	Message           string          `json:"message,omitempty"`
	Error             string          `json:"error,omitempty"`
}

func recommendationOf(results []Result) *Recommendation {
	for _, r := range results {
		if r.Recommended {
			return &Recommendation{
				ProductID: r.Id,
				Name:      r.Name,
				Reason:    r.RecommendationReason,
			}
		}
	}
	return nil
}
