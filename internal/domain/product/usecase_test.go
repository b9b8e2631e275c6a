package product_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/embedding"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product/producttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedding struct {
	vector embedding.Vector
	err    error
}

func (s stubEmbedding) EmbedDocument(_ context.Context, req embedding.DocumentRequest) (embedding.DocumentResponse, error) {
	if s.err != nil {
		return embedding.DocumentResponse{}, s.err
	}
	resp := embedding.DocumentResponse{}
	for i := range req.Documents {
		resp.Data = append(resp.Data, embedding.Data{Vector: s.vector, Index: i})
	}
	return resp, nil
}

func (s stubEmbedding) EmbedSingle(_ context.Context, _ embedding.SingleRequest) (embedding.SingleResponse, error) {
	if s.err != nil {
		return embedding.SingleResponse{}, s.err
	}
	return embedding.SingleResponse{Data: embedding.Data{Vector: s.vector}}, nil
}

func (s stubEmbedding) ModelName() string {
	return "stub"
}

func newUseCase(cat *producttest.Catalog, text product.TextIndex, vectors product.VectorIndex, provider embedding.Embedding) *product.UseCase {
	return product.NewUseCase(cat, text, vectors, embedding.NewClient(provider, time.Second, nil), nil)
}

func TestAddAssignsFirstIDOnEmptyCatalog(t *testing.T) {
	cat := producttest.NewCatalog()
	uc := newUseCase(cat, nil, nil, stubEmbedding{vector: embedding.Vector{1, 0}})

	p, hasVector, err := uc.Add(context.Background(), product.Product{Name: "Black Jacket", Category: "women", Available: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Id)
	assert.True(t, hasVector)
}

func TestAddAssignsMaxPlusOne(t *testing.T) {
	cat := producttest.NewCatalog(
		product.Product{Id: 3, Name: "a", Category: "men", Available: true},
		product.Product{Id: 7, Name: "b", Category: "men", Available: false},
	)
	uc := newUseCase(cat, nil, nil, stubEmbedding{vector: embedding.Vector{1, 0}})

	p, _, err := uc.Add(context.Background(), product.Product{Name: "c", Category: "kids", Available: true})
	require.NoError(t, err)
	assert.Equal(t, int64(8), p.Id)
}

func TestAddNormalizesCategories(t *testing.T) {
	cat := producttest.NewCatalog()
	uc := newUseCase(cat, nil, nil, stubEmbedding{vector: embedding.Vector{1, 0}})

	p, _, err := uc.Add(context.Background(), product.Product{
		Name:       "Black Jacket",
		Category:   " Women ",
		Categories: []string{"Outer", " ", "WINTER"},
		Available:  true,
	})
	require.NoError(t, err)

	stored, ok := cat.Stored(p.Id)
	require.True(t, ok)
	assert.Equal(t, "women", stored.Category)
	assert.Equal(t, []string{"outer", "winter"}, stored.Categories)

	found, err := cat.FindAvailable(context.Background(), product.Filter{Category: "WOMEN", Categories: []string{"Outer"}}.Normalize())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, p.Id, found[0].Id)
}

func TestFilterNormalize(t *testing.T) {
	f := product.Filter{Category: " Kids ", Categories: []string{"Outer", "", "Summer "}}.Normalize()
	assert.Equal(t, "kids", f.Category)
	assert.Equal(t, []string{"outer", "summer"}, f.Categories)

	assert.Nil(t, product.Filter{}.Normalize().Categories)
}

func TestAddStoresEmbeddingAndIndexes(t *testing.T) {
	cat := producttest.NewCatalog()
	text := producttest.NewTextIndex()
	vectors := producttest.NewVectorIndex()
	uc := newUseCase(cat, text, vectors, stubEmbedding{vector: embedding.Vector{0.6, 0.8}})

	p, hasVector, err := uc.Add(context.Background(), product.Product{Name: "Red Jacket", Category: "men", Available: true})
	require.NoError(t, err)
	require.True(t, hasVector)
	assert.Nil(t, p.Embedding)

	stored, ok := cat.Stored(p.Id)
	require.True(t, ok)
	assert.Equal(t, embedding.Vector{0.6, 0.8}, stored.Embedding)
	assert.Equal(t, "stub", stored.EmbeddingModel)
	require.NotNil(t, stored.VectorGeneratedAt)
	assert.False(t, stored.Date.IsZero())

	n, err := text.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, vectors.Len())
}

func TestAddToleratesEmbeddingFailure(t *testing.T) {
	cat := producttest.NewCatalog()
	vectors := producttest.NewVectorIndex()
	uc := newUseCase(cat, nil, vectors, stubEmbedding{err: errors.New("provider down")})

	p, hasVector, err := uc.Add(context.Background(), product.Product{Name: "Blue Jeans", Category: "men", Available: true})
	require.NoError(t, err)
	assert.False(t, hasVector)

	stored, ok := cat.Stored(p.Id)
	require.True(t, ok)
	assert.Empty(t, stored.Embedding)
	assert.Nil(t, stored.VectorGeneratedAt)
	assert.Equal(t, 0, vectors.Len())
}

func TestAddToleratesIndexFailure(t *testing.T) {
	cat := producttest.NewCatalog()
	text := producttest.NewTextIndex()
	text.Err = errors.New("es down")
	uc := newUseCase(cat, text, nil, stubEmbedding{vector: embedding.Vector{1}})

	p, _, err := uc.Add(context.Background(), product.Product{Name: "Hat", Category: "kids", Available: true})
	require.NoError(t, err)

	_, ok := cat.Stored(p.Id)
	assert.True(t, ok)
}

func TestAddRejectsMissingFields(t *testing.T) {
	uc := newUseCase(producttest.NewCatalog(), nil, nil, nil)

	_, _, err := uc.Add(context.Background(), product.Product{Name: "  ", Category: "men"})
	assert.ErrorIs(t, err, product.ErrInvalidProduct)

	_, _, err = uc.Add(context.Background(), product.Product{Name: "Shirt"})
	assert.ErrorIs(t, err, product.ErrInvalidProduct)
}

func TestAddPropagatesCatalogError(t *testing.T) {
	cat := producttest.NewCatalog()
	cat.Err = errors.New("mongo down")
	uc := newUseCase(cat, nil, nil, nil)

	_, _, err := uc.Add(context.Background(), product.Product{Name: "Shirt", Category: "men"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cat.Err)
}

func TestGetHidesUnavailable(t *testing.T) {
	cat := producttest.NewCatalog(
		product.Product{Id: 1, Name: "on", Category: "men", Available: true},
		product.Product{Id: 2, Name: "off", Category: "men", Available: false},
	)
	uc := newUseCase(cat, nil, nil, nil)

	p, err := uc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "on", p.Name)

	_, err = uc.Get(context.Background(), 2)
	assert.ErrorIs(t, err, product.ErrNotFound)

	_, err = uc.Get(context.Background(), 3)
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestRemoveDeletesEverywhere(t *testing.T) {
	cat := producttest.NewCatalog()
	text := producttest.NewTextIndex()
	vectors := producttest.NewVectorIndex()
	uc := newUseCase(cat, text, vectors, stubEmbedding{vector: embedding.Vector{1, 0}})

	p, _, err := uc.Add(context.Background(), product.Product{Name: "Scarf", Category: "women", Available: true})
	require.NoError(t, err)

	require.NoError(t, uc.Remove(context.Background(), p.Id))
	_, ok := cat.Stored(p.Id)
	assert.False(t, ok)
	assert.Equal(t, 0, vectors.Len())

	assert.ErrorIs(t, uc.Remove(context.Background(), p.Id), product.ErrNotFound)
}

func TestSuggest(t *testing.T) {
	cat := producttest.NewCatalog(
		product.Product{Id: 1, Name: "Black Jacket", Category: "women", Available: true},
		product.Product{Id: 2, Name: "Denim", Category: "men", Tags: []string{"jacket"}, Available: true},
	)
	uc := newUseCase(cat, nil, nil, nil)

	assert.Equal(t, []string{"Black Jacket", "Denim"}, uc.Suggest(context.Background(), "jack", 5))
	assert.Empty(t, uc.Suggest(context.Background(), "j", 5))

	cat.Err = errors.New("down")
	assert.Empty(t, uc.Suggest(context.Background(), "jack", 5))
}

func TestExactMatch(t *testing.T) {
	cat := producttest.NewCatalog(product.Product{Id: 1, Name: "Black Jacket", Category: "women", Available: true})
	uc := newUseCase(cat, nil, nil, nil)

	p, err := uc.ExactMatch(context.Background(), "Black Jacket")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Id)

	_, err = uc.ExactMatch(context.Background(), "black jacket ")
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestCandidatesFallBackToCatalog(t *testing.T) {
	cat := producttest.NewCatalog(
		product.Product{Id: 1, Name: "Black Jacket", Category: "women", Available: true},
		product.Product{Id: 2, Name: "Red Shirt", Category: "men", Available: true},
	)
	text := producttest.NewTextIndex()
	require.NoError(t, text.Rebuild(context.Background(), []product.Product{{Id: 1, Name: "Black Jacket", Category: "women", Available: true}}))
	uc := newUseCase(cat, text, nil, nil)

	ps, err := uc.Candidates(context.Background(), []string{"jacket"}, product.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, ps, 1)

	text.Err = errors.New("es down")
	ps, err = uc.Candidates(context.Background(), []string{"jacket"}, product.Filter{}, 10)
	require.NoError(t, err)
	assert.Len(t, ps, 2)
}

func TestNeighborsHydratesVectorHits(t *testing.T) {
	cat := producttest.NewCatalog(
		product.Product{Id: 1, Name: "a", Category: "men", Available: true, Embedding: embedding.Vector{1, 0}},
		product.Product{Id: 2, Name: "b", Category: "men", Available: true, Embedding: embedding.Vector{0.8, 0.6}},
		product.Product{Id: 3, Name: "c", Category: "men", Available: true, Embedding: embedding.Vector{0, 1}},
	)
	vectors := producttest.NewVectorIndex()
	uc := newUseCase(cat, nil, vectors, nil)
	require.NoError(t, uc.Rebuild(context.Background()))

	// the catalog flips availability after the vector was indexed
	stale, _ := cat.Stored(2)
	stale.Available = false
	require.NoError(t, cat.Insert(context.Background(), stale))

	ns, err := uc.Neighbors(context.Background(), embedding.Vector{1, 0}, 3, product.Filter{})
	require.NoError(t, err)
	require.Len(t, ns, 2)
	assert.Equal(t, int64(1), ns[0].Product.Id)
	assert.InDelta(t, 1.0, ns[0].Score, 1e-6)
	assert.Equal(t, int64(3), ns[1].Product.Id)
	assert.Nil(t, ns[0].Product.Embedding)
}

func TestNeighborsWithoutVectorIndexScansCatalog(t *testing.T) {
	cat := producttest.NewCatalog(
		product.Product{Id: 1, Name: "a", Category: "men", Available: true, Embedding: embedding.Vector{1, 0}},
		product.Product{Id: 2, Name: "b", Category: "men", Available: true},
	)
	uc := newUseCase(cat, nil, nil, nil)

	ns, err := uc.Neighbors(context.Background(), embedding.Vector{1, 0}, 5, product.Filter{})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, int64(1), ns[0].Product.Id)
}

func TestNeighborsDisabled(t *testing.T) {
	uc := newUseCase(producttest.NewCatalog(), nil, producttest.NewVectorIndex(), nil)
	uc.DisableSemantic()

	_, err := uc.Neighbors(context.Background(), embedding.Vector{1}, 5, product.Filter{})
	assert.ErrorIs(t, err, product.ErrVectorSearchDisabled)
	assert.False(t, uc.SemanticEnabled())
}

func TestBatchCreateAssignsConsecutiveIDs(t *testing.T) {
	cat := producttest.NewCatalog(product.Product{Id: 4, Name: "old", Category: "men", Available: true})
	text := producttest.NewTextIndex()
	vectors := producttest.NewVectorIndex()
	uc := newUseCase(cat, text, vectors, stubEmbedding{vector: embedding.Vector{1, 0}})

	ps := []*product.Product{
		{Name: "x", Category: "men", Available: true},
		{Name: "y", Category: "women", Available: true},
	}
	n, err := uc.BatchCreate(context.Background(), ps)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(5), ps[0].Id)
	assert.Equal(t, int64(6), ps[1].Id)

	count, err := uc.IndexedCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, 2, vectors.Len())
}
