// Package producttest provides in-memory product stores for tests.
package producttest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/embedding"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
)

// Catalog is a product.Catalog kept in memory. Set Err to make every call fail.
type Catalog struct {
	mu       sync.Mutex
	products map[int64]product.Product
	Err      error
}

func NewCatalog(ps ...product.Product) *Catalog {
	c := &Catalog{products: make(map[int64]product.Product)}
	for _, p := range ps {
		c.products[p.Id] = p
	}
	return c
}

func (c *Catalog) sorted() []product.Product {
	result := make([]product.Product, 0, len(c.products))
	for _, p := range c.products {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Id < result[j].Id })
	return result
}

func (c *Catalog) FindAvailable(_ context.Context, f product.Filter) ([]product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}

	result := make([]product.Product, 0)
	for _, p := range c.sorted() {
		if p.Available && f.Match(p) {
			p.Embedding = nil
			result = append(result, p)
		}
	}
	return result, nil
}

func (c *Catalog) FindByID(_ context.Context, id int64) (product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return product.Product{}, c.Err
	}

	p, ok := c.products[id]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

func (c *Catalog) FindByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}

	result := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			p.Embedding = nil
			result = append(result, p)
		}
	}
	return result, nil
}

func (c *Catalog) FindByName(_ context.Context, name string) (product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return product.Product{}, c.Err
	}

	for _, p := range c.sorted() {
		if p.Available && p.Name == name {
			p.Embedding = nil
			return p, nil
		}
	}
	return product.Product{}, product.ErrNotFound
}

func (c *Catalog) Neighbors(_ context.Context, v embedding.Vector, k int, f product.Filter) ([]product.Neighbor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}

	result := make([]product.Neighbor, 0)
	for _, p := range c.sorted() {
		if !p.Available || len(p.Embedding) == 0 {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		score, err := v.Cosine(p.Embedding)
		if err != nil {
			continue
		}
		p.Embedding = nil
		result = append(result, product.Neighbor{Product: p, Score: score})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Product.Id < result[j].Product.Id
	})
	if k >= 0 && len(result) > k {
		result = result[:k]
	}
	return result, nil
}

func (c *Catalog) Suggest(_ context.Context, query string, limit int) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}

	q := strings.ToLower(query)
	contains := func(s string) bool { return strings.Contains(strings.ToLower(s), q) }

	result := make([]string, 0)
	for _, p := range c.sorted() {
		if len(result) >= limit {
			break
		}
		match := contains(p.Name)
		for _, s := range append(append([]string{}, p.Categories...), p.Tags...) {
			match = match || contains(s)
		}
		if match {
			result = append(result, p.Name)
		}
	}
	return result, nil
}

func (c *Catalog) All(_ context.Context) ([]product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.sorted(), nil
}

func (c *Catalog) Count(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	return int64(len(c.products)), nil
}

func (c *Catalog) NextID(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}

	var max int64
	for id := range c.products {
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

func (c *Catalog) Insert(_ context.Context, p product.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.products[p.Id] = p
	return nil
}

func (c *Catalog) Delete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	if _, ok := c.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(c.products, id)
	return nil
}

// Stored returns the raw stored document, embedding included.
func (c *Catalog) Stored(id int64) (product.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	return p, ok
}
