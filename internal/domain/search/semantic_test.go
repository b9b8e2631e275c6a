package search

import (
	"context"
	"errors"
	"testing"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/embedding"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"github.com/stretchr/testify/assert"
)

func neighbor(id int64, score, price float64) product.Neighbor {
	return product.Neighbor{
		Product: product.Product{Id: id, Name: "p", Category: "women", NewPrice: price, Available: true, Embedding: embedding.Vector{1}},
		Score:   score,
	}
}

var queryVector = embedding.Vector{1, 0}

func TestSemanticSearchAppliesFloor(t *testing.T) {
	src := &stubNeighbors{neighbors: []product.Neighbor{
		neighbor(1, 0.95, 100),
		neighbor(2, 0.80, 100),
		neighbor(3, 0.75, 100),
	}}

	b := NewSemanticRetriever(src, 0.8, 0, nil).Search(context.Background(), queryVector, 10, product.Filter{})
	assert.Equal(t, StatusOK, b.Status)
	assert.Equal(t, []int64{1, 2}, hitIDs(b.Hits))
	assert.Equal(t, 0.95, b.Hits[0].Score)
	assert.Nil(t, b.Hits[0].Product.Embedding)
}

func TestSemanticSearchDefaultFloor(t *testing.T) {
	r := NewSemanticRetriever(&stubNeighbors{}, 0, 0, nil)
	assert.Equal(t, DefaultSimilarityFloor, r.Floor())
}

func TestSemanticSearchCandidatePool(t *testing.T) {
	src := &stubNeighbors{}
	r := NewSemanticRetriever(src, 0, 0, nil)

	f := product.Filter{Category: "women", MaxPrice: ptr(500), Categories: []string{"outer"}}
	r.Search(context.Background(), queryVector, 5, f)
	assert.Equal(t, 100, src.lastK)
	assert.Equal(t, product.Filter{Category: "women"}, src.lastF)

	r.Search(context.Background(), queryVector, 20, product.Filter{})
	assert.Equal(t, 200, src.lastK)
}

func TestSemanticSearchPostFilters(t *testing.T) {
	gone := neighbor(4, 0.99, 100)
	gone.Product.Available = false
	src := &stubNeighbors{neighbors: []product.Neighbor{
		gone,
		neighbor(1, 0.95, 1200),
		neighbor(2, 0.90, 700),
	}}

	b := NewSemanticRetriever(src, 0, 0, nil).Search(context.Background(), queryVector, 10, product.Filter{MaxPrice: ptr(1000)})
	assert.Equal(t, []int64{2}, hitIDs(b.Hits))
}

func TestSemanticSearchOrdersByScoreThenID(t *testing.T) {
	src := &stubNeighbors{neighbors: []product.Neighbor{
		neighbor(7, 0.8, 1),
		neighbor(3, 0.9, 1),
		neighbor(5, 0.8, 1),
	}}

	b := NewSemanticRetriever(src, 0, 0, nil).Search(context.Background(), queryVector, 2, product.Filter{})
	assert.Equal(t, []int64{3, 5}, hitIDs(b.Hits))
}

func TestSemanticSearchNothingAboveFloor(t *testing.T) {
	src := &stubNeighbors{neighbors: []product.Neighbor{neighbor(1, 0.5, 1)}}
	b := NewSemanticRetriever(src, 0, 0, nil).Search(context.Background(), queryVector, 10, product.Filter{})
	assert.Equal(t, StatusEmpty, b.Status)
	assert.Empty(t, b.Hits)
}

func TestSemanticSearchUnavailable(t *testing.T) {
	b := NewSemanticRetriever(&stubNeighbors{}, 0, 0, nil).Search(context.Background(), nil, 10, product.Filter{})
	assert.Equal(t, StatusUnavailable, b.Status)
	assert.Equal(t, "embedding unavailable", b.Reason)

	b = NewSemanticRetriever(&stubNeighbors{err: errors.New("milvus down")}, 0, 0, nil).
		Search(context.Background(), queryVector, 10, product.Filter{})
	assert.Equal(t, StatusUnavailable, b.Status)
	assert.Contains(t, b.Reason, "milvus down")

	var r *SemanticRetriever
	b = r.Search(context.Background(), queryVector, 10, product.Filter{})
	assert.Equal(t, StatusUnavailable, b.Status)
}

func TestCandidatePool(t *testing.T) {
	assert.Equal(t, 100, CandidatePool(1))
	assert.Equal(t, 100, CandidatePool(10))
	assert.Equal(t, 500, CandidatePool(50))
}
