package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/embedding"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product/producttest"
)

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ int, _ float32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeEmbedding struct {
	vector embedding.Vector
	err    error
}

func (f fakeEmbedding) EmbedDocument(_ context.Context, _ embedding.DocumentRequest) (embedding.DocumentResponse, error) {
	return embedding.DocumentResponse{}, errors.New("not used")
}

func (f fakeEmbedding) EmbedSingle(_ context.Context, _ embedding.SingleRequest) (embedding.SingleResponse, error) {
	if f.err != nil {
		return embedding.SingleResponse{}, f.err
	}
	return embedding.SingleResponse{Data: embedding.Data{Vector: f.vector}}, nil
}

type stubNeighbors struct {
	neighbors []product.Neighbor
	err       error
	lastK     int
	lastF     product.Filter
}

func (s *stubNeighbors) Neighbors(_ context.Context, _ embedding.Vector, k int, f product.Filter) ([]product.Neighbor, error) {
	s.lastK = k
	s.lastF = f
	if s.err != nil {
		return nil, s.err
	}
	return s.neighbors, nil
}

func ptr(v float64) *float64 {
	return &v
}

// catalogFixture: query vector {1, 0} has similarity 1.0 with id 1, about 0.82
// with id 2 and 4, 0.6 with id 3; id 5 is unavailable.
func catalogFixture() *producttest.Catalog {
	return producttest.NewCatalog(
		product.Product{Id: 1, Name: "Black Jacket", Category: "women", Tags: []string{"outer"}, NewPrice: 1200, Available: true, Embedding: embedding.Vector{1, 0}},
		product.Product{Id: 2, Name: "Red Jacket", Category: "men", Tags: []string{"outer"}, NewPrice: 700, Available: true, Embedding: embedding.Vector{0.82, 0.57}},
		product.Product{Id: 3, Name: "Blue Jeans", Category: "men", Description: "denim", NewPrice: 900, Available: true, Embedding: embedding.Vector{0.6, 0.8}},
		product.Product{Id: 4, Name: "Running Shoes", Category: "kids", Tags: []string{"outer"}, NewPrice: 500, Available: true, Embedding: embedding.Vector{0.82, -0.57}},
		product.Product{Id: 5, Name: "Old Jacket", Category: "women", NewPrice: 300, Available: false, Embedding: embedding.Vector{1, 0}},
	)
}

type engineFixture struct {
	engine    *Engine
	catalog   *producttest.Catalog
	completer *fakeCompleter
}

func newEngineFixture(provider embedding.Embedding, completer *fakeCompleter, opts Options) engineFixture {
	cat := catalogFixture()
	embedder := embedding.NewClient(provider, time.Second, nil)
	uc := product.NewUseCase(cat, nil, nil, embedder, nil)

	deps := Deps{
		Lexical:  NewLexicalRetriever(uc, time.Second, nil),
		Semantic: NewSemanticRetriever(uc, DefaultSimilarityFloor, time.Second, nil),
		Embedder: embedder,
		Products: uc,
	}
	if completer != nil {
		deps.Normalizer = NewNormalizer(completer, time.Second, nil)
		deps.Recommender = NewRecommender(completer, DefaultRecommendTopN, time.Second, nil)
		deps.LLM = completer
	}

	return engineFixture{
		engine:    NewEngine(deps, opts),
		catalog:   cat,
		completer: completer,
	}
}
