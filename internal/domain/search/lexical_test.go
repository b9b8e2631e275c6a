package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCandidates struct {
	products []product.Product
	err      error
}

func (s stubCandidates) Candidates(_ context.Context, _ []string, _ product.Filter, _ int) ([]product.Product, error) {
	return s.products, s.err
}

func newCatalogLexical() *LexicalRetriever {
	uc := product.NewUseCase(catalogFixture(), nil, nil, nil, nil)
	return NewLexicalRetriever(uc, time.Second, nil)
}

func hitIDs(hits []Hit) []int64 {
	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.Product.Id)
	}
	return ids
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"black", "jacket"}, Tokenize("Black, jacket  black"))
	assert.Equal(t, []string{"h&m", "t-shirt"}, Tokenize("H&M t-shirt!"))
	assert.Empty(t, Tokenize(" ,. "))
}

func TestLexicalSearchSkipsUnavailable(t *testing.T) {
	b := newCatalogLexical().Search(context.Background(), "jacket", 10, product.Filter{})

	assert.Equal(t, StatusOK, b.Status)
	assert.Equal(t, []int64{1, 2}, hitIDs(b.Hits))
	for _, h := range b.Hits {
		assert.Equal(t, LexicalBaselineScore, h.Score)
		assert.Nil(t, h.Product.Embedding)
	}
}

func TestLexicalSearchRequiresEveryToken(t *testing.T) {
	r := newCatalogLexical()

	assert.Equal(t, []int64{1}, hitIDs(r.Search(context.Background(), "black jacket", 10, product.Filter{}).Hits))
	assert.Equal(t, []int64{1, 2}, hitIDs(r.Search(context.Background(), "outer jacket", 10, product.Filter{}).Hits))
	assert.Equal(t, []int64{3}, hitIDs(r.Search(context.Background(), "DENIM", 10, product.Filter{}).Hits))

	b := r.Search(context.Background(), "black shoes", 10, product.Filter{})
	assert.Equal(t, StatusEmpty, b.Status)
	assert.Empty(t, b.Hits)
}

func TestLexicalSearchFilterAndLimit(t *testing.T) {
	r := newCatalogLexical()

	b := r.Search(context.Background(), "jacket", 10, product.Filter{MaxPrice: ptr(1000)})
	assert.Equal(t, []int64{2}, hitIDs(b.Hits))

	b = r.Search(context.Background(), "jacket", 1, product.Filter{})
	assert.Equal(t, []int64{1}, hitIDs(b.Hits))

	b = r.Search(context.Background(), "jacket", 0, product.Filter{})
	assert.Equal(t, StatusEmpty, b.Status)
}

func TestLexicalSearchVerifiesCandidates(t *testing.T) {
	src := stubCandidates{products: []product.Product{
		{Id: 9, Name: "Green Jacket", Available: true},
		{Id: 8, Name: "Green Scarf", Available: true},
		{Id: 7, Name: "Green Jacket", Available: false},
	}}
	b := NewLexicalRetriever(src, 0, nil).Search(context.Background(), "green jacket", 10, product.Filter{})
	assert.Equal(t, []int64{9}, hitIDs(b.Hits))
}

func TestLexicalSearchEmptyQuery(t *testing.T) {
	b := newCatalogLexical().Search(context.Background(), "  ", 10, product.Filter{})
	assert.Equal(t, StatusEmpty, b.Status)
	assert.Equal(t, "no keywords", b.Reason)
}

func TestLexicalSearchSourceError(t *testing.T) {
	b := NewLexicalRetriever(stubCandidates{err: errors.New("es down")}, 0, nil).
		Search(context.Background(), "jacket", 10, product.Filter{})
	assert.Equal(t, StatusUnavailable, b.Status)
	assert.Contains(t, b.Reason, "es down")
	require.NotNil(t, b.Hits)
	assert.Empty(t, b.Hits)
}

func TestLexicalSearchNotConfigured(t *testing.T) {
	var r *LexicalRetriever
	b := r.Search(context.Background(), "jacket", 10, product.Filter{})
	assert.Equal(t, StatusUnavailable, b.Status)
}
