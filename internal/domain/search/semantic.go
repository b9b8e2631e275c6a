package search

import (
	"context"
	"sort"
	"time"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/embedding"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"go.uber.org/zap"
)

const (
	// DefaultSimilarityFloor is the minimum cosine similarity a semantic match must reach.
	DefaultSimilarityFloor = 0.75

	candidatePoolFactor = 10
	candidatePoolFloor  = 100
)

// NeighborSource runs a nearest-neighbor search over available products,
// honoring the category of f. Other filter fields are ignored.
type NeighborSource interface {
	Neighbors(ctx context.Context, v embedding.Vector, k int, f product.Filter) ([]product.Neighbor, error)
}

type SemanticRetriever struct {
	source  NeighborSource
	floor   float64
	timeout time.Duration
	logger  *zap.Logger
}

// NewSemanticRetriever returns a retriever; a floor <= 0 means DefaultSimilarityFloor.
func NewSemanticRetriever(source NeighborSource, floor float64, timeout time.Duration, logger *zap.Logger) *SemanticRetriever {
	if floor <= 0 {
		floor = DefaultSimilarityFloor
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemanticRetriever{source: source, floor: floor, timeout: timeout, logger: logger}
}

func (r *SemanticRetriever) Floor() float64 {
	return r.floor
}

func CandidatePool(limit int) int {
	if n := limit * candidatePoolFactor; n > candidatePoolFloor {
		return n
	}
	return candidatePoolFloor
}

// Search returns up to limit products scoring at least the floor, most similar first.
// A nil vector means the embedding was unavailable.
func (r *SemanticRetriever) Search(ctx context.Context, v embedding.Vector, limit int, f product.Filter) Branch {
	if r == nil || r.source == nil {
		return unavailable("vector search not configured")
	}
	if len(v) == 0 {
		return unavailable("embedding unavailable")
	}
	if limit <= 0 {
		return empty("zero limit")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	neighbors, err := r.source.Neighbors(ctx, v, CandidatePool(limit), product.Filter{Category: f.Category})
	if err != nil {
		r.logger.Warn("semantic retrieval failed", zap.Error(err))
		return unavailable("vector index error: " + err.Error())
	}

	hits := make([]Hit, 0, limit)
	for _, n := range neighbors {
		if n.Score < r.floor {
			continue
		}
		if !n.Product.Available || !f.Match(n.Product) {
			continue
		}
		n.Product.Embedding = nil
		hits = append(hits, Hit{Product: n.Product, Score: n.Score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Product.Id < hits[j].Product.Id
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	if len(hits) == 0 {
		return empty("no matches above similarity floor")
	}
	return okOrEmpty(hits)
}
