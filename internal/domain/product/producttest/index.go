package producttest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
)

// TextIndex is a product.TextIndex doing case-insensitive substring matching in memory.
type TextIndex struct {
	mu   sync.Mutex
	docs map[int64]product.Product
	Err  error
}

func NewTextIndex() *TextIndex {
	return &TextIndex{docs: make(map[int64]product.Product)}
}

func (ti *TextIndex) Search(_ context.Context, tokens []string, f product.Filter, size int) ([]product.Product, error) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if ti.Err != nil {
		return nil, ti.Err
	}

	result := make([]product.Product, 0)
	for _, p := range ti.docs {
		if !p.Available || !f.Match(p) {
			continue
		}
		fields := []string{p.Name, p.Description, p.Category}
		fields = append(fields, p.Categories...)
		fields = append(fields, p.Tags...)
		text := strings.ToLower(strings.Join(fields, " "))
		all := true
		for _, t := range tokens {
			if !strings.Contains(text, strings.ToLower(t)) {
				all = false
				break
			}
		}
		if all {
			result = append(result, p)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Id < result[j].Id })
	if len(result) > size {
		result = result[:size]
	}
	return result, nil
}

func (ti *TextIndex) Index(_ context.Context, p product.Product) error {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if ti.Err != nil {
		return ti.Err
	}
	p.Embedding = nil
	ti.docs[p.Id] = p
	return nil
}

func (ti *TextIndex) Delete(_ context.Context, id int64) error {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if ti.Err != nil {
		return ti.Err
	}
	delete(ti.docs, id)
	return nil
}

func (ti *TextIndex) Rebuild(_ context.Context, ps []product.Product) error {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if ti.Err != nil {
		return ti.Err
	}
	ti.docs = make(map[int64]product.Product, len(ps))
	for _, p := range ps {
		p.Embedding = nil
		ti.docs[p.Id] = p
	}
	return nil
}

func (ti *TextIndex) Count(_ context.Context) (int64, error) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if ti.Err != nil {
		return 0, ti.Err
	}
	return int64(len(ti.docs)), nil
}

// VectorIndex is a product.VectorIndex doing exact cosine search in memory.
type VectorIndex struct {
	mu      sync.Mutex
	entries map[int64]product.Product
	Err     error
}

func NewVectorIndex() *VectorIndex {
	return &VectorIndex{entries: make(map[int64]product.Product)}
}

func (vi *VectorIndex) Query(_ context.Context, req product.QueryVectorRequest) (product.QueryVectorResponse, error) {
	vi.mu.Lock()
	defer vi.mu.Unlock()
	if vi.Err != nil {
		return product.QueryVectorResponse{}, vi.Err
	}

	data := make([]product.QueryVectorRes, 0)
	for _, p := range vi.entries {
		if !p.Available || (req.Category != "" && p.Category != req.Category) {
			continue
		}
		score, err := req.Input.Cosine(p.Embedding)
		if err != nil {
			continue
		}
		data = append(data, product.QueryVectorRes{Id: p.Id, Score: float32(score)})
	}

	sort.Slice(data, func(i, j int) bool {
		if data[i].Score != data[j].Score {
			return data[i].Score > data[j].Score
		}
		return data[i].Id < data[j].Id
	})
	if len(data) > req.Top {
		data = data[:req.Top]
	}
	return product.QueryVectorResponse{Data: data}, nil
}

func (vi *VectorIndex) BatchCreate(_ context.Context, ps []*product.Product) error {
	vi.mu.Lock()
	defer vi.mu.Unlock()
	if vi.Err != nil {
		return vi.Err
	}
	for _, p := range ps {
		vi.entries[p.Id] = *p
	}
	return nil
}

func (vi *VectorIndex) Delete(_ context.Context, id int64) error {
	vi.mu.Lock()
	defer vi.mu.Unlock()
	if vi.Err != nil {
		return vi.Err
	}
	delete(vi.entries, id)
	return nil
}

func (vi *VectorIndex) Len() int {
	vi.mu.Lock()
	defer vi.mu.Unlock()
	return len(vi.entries)
}
