package product

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/embedding"
	"go.uber.org/zap"
)

var (
	ErrInvalidProduct       = errors.New("invalid product")
	ErrVectorSearchDisabled = errors.New("vector search disabled")
)

const (
	embedBatchSize   = 100
	minSuggestLength = 2
)

type UseCase struct {
	catalog  Catalog
	text     TextIndex
	vectors  VectorIndex
	embedder *embedding.Client
	logger   *zap.Logger

	semanticDisabled bool
	now              func() time.Time
}

// NewUseCase wires the catalog with its optional indexes. text and vectors may be nil.
func NewUseCase(catalog Catalog, text TextIndex, vectors VectorIndex, embedder *embedding.Client, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		catalog:  catalog,
		text:     text,
		vectors:  vectors,
		embedder: embedder,
		logger:   logger,
		now:      time.Now,
	}
}

// DisableSemantic turns off nearest-neighbor search for the lifetime of the use case.
func (uc *UseCase) DisableSemantic() {
	uc.semanticDisabled = true
}

func (uc *UseCase) SemanticEnabled() bool {
	return !uc.semanticDisabled
}

// Add assigns the next id, embeds and persists p. An embedding failure is
// tolerated: the product is stored without a vector and hasVector is false.
func (uc *UseCase) Add(ctx context.Context, p Product) (Product, bool, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.NormalizeCategories()
	if p.Name == "" || p.Category == "" {
		return Product{}, false, fmt.Errorf("%w: name and category are required", ErrInvalidProduct)
	}

	id, err := uc.catalog.NextID(ctx)
	if err != nil {
		return Product{}, false, fmt.Errorf("next id: %w", err)
	}
	p.SetId(id)
	if p.Date.IsZero() {
		p.Date = uc.now()
	}

	hasVector := uc.attachEmbedding(&p, uc.embedder.Embed(ctx, p.SearchableText()))
	if !hasVector {
		uc.logger.Warn("product stored without embedding", zap.Int64("id", p.Id), zap.String("name", p.Name))
	}

	if err := uc.catalog.Insert(ctx, p); err != nil {
		return Product{}, false, fmt.Errorf("insert product %d: %w", p.Id, err)
	}

	uc.indexOne(ctx, p)

	p.Embedding = nil
	return p, hasVector, nil
}

func (uc *UseCase) attachEmbedding(p *Product, v embedding.Vector) bool {
	if len(v) == 0 {
		return false
	}
	at := uc.now()
	p.Embedding = v
	p.VectorGeneratedAt = &at
	p.EmbeddingModel = uc.embedder.Model()
	return true
}

func (uc *UseCase) indexOne(ctx context.Context, p Product) {
	if uc.text != nil {
		if err := uc.text.Index(ctx, p); err != nil {
			uc.logger.Error("text index failed", zap.Int64("id", p.Id), zap.Error(err))
		}
	}
	if uc.vectors != nil && !uc.semanticDisabled && len(p.Embedding) > 0 {
		if err := uc.vectors.BatchCreate(ctx, []*Product{&p}); err != nil {
			uc.logger.Error("vector index failed", zap.Int64("id", p.Id), zap.Error(err))
		}
	}
}

// BatchCreate imports ps with consecutive ids, embedding them in batches, then rebuilds the indexes.
func (uc *UseCase) BatchCreate(ctx context.Context, ps []*Product) (int, error) {
	if len(ps) == 0 {
		return 0, nil
	}

	next, err := uc.catalog.NextID(ctx)
	if err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}

	texts := make([]string, len(ps))
	for i, v := range ps {
		v.SetId(next + int64(i))
		v.NormalizeCategories()
		if v.Date.IsZero() {
			v.Date = uc.now()
		}
		texts[i] = v.SearchableText()
	}

	vectors := uc.embedder.EmbedBatch(ctx, texts, embedBatchSize)

	embedded := 0
	for i, v := range ps {
		if uc.attachEmbedding(v, vectors[i]) {
			embedded++
		}
		if err := uc.catalog.Insert(ctx, *v); err != nil {
			return i, fmt.Errorf("insert product %d: %w", v.Id, err)
		}
	}

	uc.logger.Info("products imported", zap.Int("count", len(ps)), zap.Int("embedded", embedded))

	return len(ps), uc.Rebuild(ctx)
}

// Rebuild recreates the text index and re-upserts every stored vector.
func (uc *UseCase) Rebuild(ctx context.Context) error {
	all, err := uc.catalog.All(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	if uc.text != nil {
		if err := uc.text.Rebuild(ctx, all); err != nil {
			return fmt.Errorf("rebuild text index: %w", err)
		}
	}

	if uc.vectors != nil && !uc.semanticDisabled {
		embedded := make([]*Product, 0, len(all))
		for i := range all {
			if len(all[i].Embedding) > 0 {
				embedded = append(embedded, &all[i])
			}
		}
		if len(embedded) > 0 {
			if err := uc.vectors.BatchCreate(ctx, embedded); err != nil {
				return fmt.Errorf("rebuild vector index: %w", err)
			}
		}
	}

	return nil
}

func (uc *UseCase) Remove(ctx context.Context, id int64) error {
	if err := uc.catalog.Delete(ctx, id); err != nil {
		return err
	}

	if uc.text != nil {
		if err := uc.text.Delete(ctx, id); err != nil {
			uc.logger.Error("text index delete failed", zap.Int64("id", id), zap.Error(err))
		}
	}
	if uc.vectors != nil && !uc.semanticDisabled {
		if err := uc.vectors.Delete(ctx, id); err != nil {
			uc.logger.Error("vector index delete failed", zap.Int64("id", id), zap.Error(err))
		}
	}
	return nil
}

// Get returns an available product. Unavailable products are reported as not found.
func (uc *UseCase) Get(ctx context.Context, id int64) (Product, error) {
	p, err := uc.catalog.FindByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !p.Available {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (uc *UseCase) List(ctx context.Context) ([]Product, error) {
	all, err := uc.catalog.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		all[i].Embedding = nil
	}
	return all, nil
}

func (uc *UseCase) ExactMatch(ctx context.Context, name string) (Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, ErrNotFound
	}
	return uc.catalog.FindByName(ctx, name)
}

// Suggest never fails; short queries and lookup errors yield no suggestions.
func (uc *UseCase) Suggest(ctx context.Context, query string, limit int) []string {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSuggestLength || limit <= 0 {
		return []string{}
	}

	result, err := uc.catalog.Suggest(ctx, query, limit)
	if err != nil {
		uc.logger.Warn("suggest failed", zap.String("query", query), zap.Error(err))
		return []string{}
	}
	return result
}

func (uc *UseCase) Count(ctx context.Context) (int64, error) {
	return uc.catalog.Count(ctx)
}

// IndexedCount reports the text index size, or -1 without a text index.
func (uc *UseCase) IndexedCount(ctx context.Context) (int64, error) {
	if uc.text == nil {
		return -1, nil
	}
	return uc.text.Count(ctx)
}

func (uc *UseCase) FindAvailable(ctx context.Context, f Filter) ([]Product, error) {
	return uc.catalog.FindAvailable(ctx, f)
}

// Candidates returns products that may match every token. The text index is
// preferred; without one, or when it fails, the filtered catalog is returned.
func (uc *UseCase) Candidates(ctx context.Context, tokens []string, f Filter, size int) ([]Product, error) {
	if uc.text != nil {
		ps, err := uc.text.Search(ctx, tokens, f, size)
		if err == nil {
			return ps, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		uc.logger.Warn("text index search failed, scanning catalog", zap.Error(err))
	}
	return uc.catalog.FindAvailable(ctx, f)
}

// Neighbors returns up to k available products nearest to v, most similar first.
func (uc *UseCase) Neighbors(ctx context.Context, v embedding.Vector, k int, f Filter) ([]Neighbor, error) {
	if uc.semanticDisabled {
		return nil, ErrVectorSearchDisabled
	}
	if uc.vectors == nil {
		return uc.catalog.Neighbors(ctx, v, k, f)
	}

	resp, err := uc.vectors.Query(ctx, QueryVectorRequest{
		Input:    v,
		Top:      k,
		Category: f.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	ids := make([]int64, 0, len(resp.Data))
	for _, d := range resp.Data {
		ids = append(ids, d.Id)
	}

	ps, err := uc.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate neighbors: %w", err)
	}

	byID := make(map[int64]Product, len(ps))
	for _, p := range ps {
		byID[p.Id] = p
	}

	result := make([]Neighbor, 0, len(resp.Data))
	for _, d := range resp.Data {
		p, ok := byID[d.Id]
		if !ok || !p.Available {
			continue
		}
		result = append(result, Neighbor{Product: p, Score: float64(d.Score)})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Product.Id < result[j].Product.Id
	})
	return result, nil
}
