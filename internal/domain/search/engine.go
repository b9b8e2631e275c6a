package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/embedding"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/llm"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"github.com/ringbrew/newaim/ecommerce/internal/logger"
	"github.com/ringbrew/newaim/ecommerce/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoProductSource is returned by lookups on an engine built without a ProductSource.
var ErrNoProductSource = errors.New("product source not configured")

// ProductSource reads single products and the filtered available catalog.
type ProductSource interface {
	Get(ctx context.Context, id int64) (product.Product, error)
	FindAvailable(ctx context.Context, f product.Filter) ([]product.Product, error)
}

// Deps are the collaborators of an Engine. Any of them may be nil; searches
// then run the corresponding degraded path and product lookups fail with
// ErrNoProductSource.
type Deps struct {
	Normalizer  *Normalizer
	Lexical     *LexicalRetriever
	Semantic    *SemanticRetriever
	Embedder    *embedding.Client
	Recommender *Recommender
	Products    ProductSource
	LLM         llm.Completer
	LLMTimeout  time.Duration
	Logger      *zap.Logger
}

type Options struct {
	MaxLimit  int
	Normalize bool
	Recommend bool
}

type Engine struct {
	Deps
	opts Options
}

func NewEngine(deps Deps, opts Options) *Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Engine{Deps: deps, opts: opts}
}

func (e *Engine) lookup(ctx context.Context, id int64) (product.Product, error) {
	if e.Products == nil {
		return product.Product{}, ErrNoProductSource
	}
	return e.Products.Get(ctx, id)
}

func (e *Engine) clampLimit(limit int) int {
	if limit < 0 {
		return 0
	}
	if e.opts.MaxLimit > 0 && limit > e.opts.MaxLimit {
		return e.opts.MaxLimit
	}
	return limit
}

func (e *Engine) normalize(ctx context.Context, query string) Normalized {
	if !e.opts.Normalize || e.Normalizer == nil {
		return ExtractManually(query)
	}
	return e.Normalizer.Normalize(ctx, query)
}

func (e *Engine) embed(ctx context.Context, query string) embedding.Vector {
	if e.Semantic == nil {
		return nil
	}
	return e.Embedder.Embed(ctx, query)
}

// HybridSearch runs lexical and semantic retrieval concurrently and fuses
// them. Provider failures degrade the response; only a cancelled ctx fails it.
func (e *Engine) HybridSearch(ctx context.Context, query string, limit int, f product.Filter) Response {
	start := time.Now()
	requestID := uuid.NewString()
	query = strings.TrimSpace(query)
	limit = e.clampLimit(limit)
	log := logger.FromContext(ctx, e.Logger).With(zap.String("request_id", requestID), zap.String("query", query))

	normalized := e.normalize(ctx, query)
	filter := f.Merge(normalized.Filter).Normalize()
	weights := Classify(query, filter)

	var lexical, semantic Branch
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lexical = e.Lexical.Search(gctx, normalized.Keywords, limit, filter)
		return nil
	})
	g.Go(func() error {
		semantic = e.Semantic.Search(gctx, e.embed(gctx, query), limit, filter)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		log.Warn("search cancelled", zap.Error(err))
		return failed(query, "search cancelled", err)
	}

	results, bd := Fuse(lexical, semantic, weights, limit)
	if e.opts.Recommend && e.Recommender != nil {
		results = e.Recommender.Annotate(ctx, results, query)
	}

	bd.RequestID = requestID
	bd.NormalizedQuery = normalized.Keywords
	bd.NormalizeSource = normalized.Source
	bd.Filters = filter

	observe("hybrid", bd, start)
	log.Info("hybrid search",
		zap.String("method", bd.SearchMethod),
		zap.String("intent", string(weights.Intent)),
		zap.Int("lexical", bd.LexicalCount),
		zap.Int("semantic", bd.SemanticCount),
		zap.Int("results", bd.TotalResults),
		zap.String("degraded", bd.DegradedReason),
		zap.Duration("took", time.Since(start)))

	return Response{
		Success:           true,
		Query:             query,
		TotalResults:      len(results),
		Breakdown:         bd,
		Results:           results,
		LLMRecommendation: recommendationOf(results),
	}
}

// VectorOnlySearch is HybridSearch without the lexical branch and recommendation.
func (e *Engine) VectorOnlySearch(ctx context.Context, query string, limit int, f product.Filter) Response {
	start := time.Now()
	requestID := uuid.NewString()
	query = strings.TrimSpace(query)
	limit = e.clampLimit(limit)
	log := logger.FromContext(ctx, e.Logger).With(zap.String("request_id", requestID), zap.String("query", query))

	normalized := e.normalize(ctx, query)
	filter := f.Merge(normalized.Filter).Normalize()

	semantic := e.Semantic.Search(ctx, e.embed(ctx, query), limit, filter)
	if err := ctx.Err(); err != nil {
		log.Warn("search cancelled", zap.Error(err))
		return failed(query, "search cancelled", err)
	}

	results, bd := Fuse(skipped(), semantic, WeightsFor(IntentVectorOnly), limit)
	bd.RequestID = requestID
	bd.NormalizedQuery = normalized.Keywords
	bd.NormalizeSource = normalized.Source
	bd.Filters = filter

	observe("vector_only", bd, start)
	log.Info("vector search",
		zap.String("method", bd.SearchMethod),
		zap.Int("results", bd.TotalResults),
		zap.String("degraded", bd.DegradedReason))

	return Response{
		Success:      true,
		Query:        query,
		TotalResults: len(results),
		Breakdown:    bd,
		Results:      results,
	}
}

func failed(query, message string, err error) Response {
	return Response{
		Success: false,
		Query:   query,
		Results: []Result{},
		Message: message,
		Error:   err.Error(),
	}
}

func observe(kind string, bd Breakdown, start time.Time) {
	metrics.SearchRequestsTotal.WithLabelValues(bd.SearchMethod).Inc()
	metrics.SearchBranchTotal.WithLabelValues("lexical", string(bd.LexicalStatus)).Inc()
	metrics.SearchBranchTotal.WithLabelValues("semantic", string(bd.SemanticStatus)).Inc()
	metrics.SearchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
