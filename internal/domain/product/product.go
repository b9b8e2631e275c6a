package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/embedding"
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	Id                int64            `bson:"id" json:"id"`
	Name              string           `bson:"name" json:"name"`
	Image             string           `bson:"image" json:"image"`
	Category          string           `bson:"category" json:"category"`
	Categories        []string         `bson:"categories" json:"categories"`
	Tags              []string         `bson:"tags" json:"tags"`
	Description       string           `bson:"description" json:"description"`
	NewPrice          float64          `bson:"new_price" json:"new_price"`
	OldPrice          float64          `bson:"old_price" json:"old_price"`
	Available         bool             `bson:"available" json:"available"`
	Date              time.Time        `bson:"date" json:"date"`
	Embedding         embedding.Vector `bson:"product_embedding,omitempty,truncate" json:"-"`
	VectorGeneratedAt *time.Time       `bson:"vector_generated_at,omitempty" json:"vector_generated_at,omitempty"`
	EmbeddingModel    string           `bson:"embedding_model,omitempty" json:"embedding_model,omitempty"`
}

func (p *Product) GetId() int64 {
	return p.Id
}

func (p *Product) SetId(id int64) {
	p.Id = id
}

// SearchableText is the text the product embedding is generated from.
func (p *Product) SearchableText() string {
	return embedding.ProductText(p.Name, p.Description, p.Category, p.Categories, p.Tags)
}

// Filter holds the structured constraints of a search. Price bounds apply to NewPrice.
type Filter struct {
	Category   string   `json:"category,omitempty"`
	MinPrice   *float64 `json:"minPrice,omitempty"`
	MaxPrice   *float64 `json:"maxPrice,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// Normalize lower-cases the category constraints, the form stored in the catalog.
func (f Filter) Normalize() Filter {
	f.Category = normalizeCategory(f.Category)
	f.Categories = normalizeCategories(f.Categories)
	return f
}

// NormalizeCategories lower-cases the category fields before the product is stored.
func (p *Product) NormalizeCategories() {
	p.Category = normalizeCategory(p.Category)
	p.Categories = normalizeCategories(p.Categories)
	if p.Categories == nil {
		p.Categories = []string{}
	}
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

func normalizeCategories(cs []string) []string {
	if len(cs) == 0 {
		return cs
	}
	result := make([]string, 0, len(cs))
	for _, c := range cs {
		if c = normalizeCategory(c); c != "" {
			result = append(result, c)
		}
	}
	return result
}

func (f Filter) IsEmpty() bool {
	return f.Category == "" && f.MinPrice == nil && f.MaxPrice == nil && len(f.Categories) == 0
}

func (f Filter) HasPrice() bool {
	return f.MinPrice != nil || f.MaxPrice != nil
}

// Match reports whether p satisfies every constraint in f. Availability is not checked.
func (f Filter) Match(p Product) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, p.Category) {
		return false
	}
	return f.MatchPost(p)
}

// MatchPost checks the constraints vector indexes cannot express natively.
func (f Filter) MatchPost(p Product) bool {
	if f.MinPrice != nil && p.NewPrice < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.NewPrice > *f.MaxPrice {
		return false
	}
	if len(f.Categories) > 0 && !anyEqualFold(f.Categories, p.Categories) {
		return false
	}
	return true
}

// Merge returns f with empty fields filled from other.
func (f Filter) Merge(other Filter) Filter {
	if f.Category == "" {
		f.Category = other.Category
	}
	if f.MinPrice == nil {
		f.MinPrice = other.MinPrice
	}
	if f.MaxPrice == nil {
		f.MaxPrice = other.MaxPrice
	}
	if len(f.Categories) == 0 {
		f.Categories = other.Categories
	}
	return f
}

func anyEqualFold(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

// Neighbor is a product returned by a nearest-neighbor search with its native similarity.
type Neighbor struct {
	Product Product
	Score   float64
}

// Catalog is the system of record for products.
type Catalog interface {
	FindAvailable(ctx context.Context, f Filter) ([]Product, error)
	FindByID(ctx context.Context, id int64) (Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]Product, error)
	FindByName(ctx context.Context, name string) (Product, error)
	Neighbors(ctx context.Context, v embedding.Vector, k int, f Filter) ([]Neighbor, error)
	Suggest(ctx context.Context, query string, limit int) ([]string, error)
	All(ctx context.Context) ([]Product, error)
	Count(ctx context.Context) (int64, error)
	NextID(ctx context.Context) (int64, error)
	Insert(ctx context.Context, p Product) error
	Delete(ctx context.Context, id int64) error
}

// TextIndex is a full-text candidate index over product text fields.
type TextIndex interface {
	Search(ctx context.Context, tokens []string, f Filter, size int) ([]Product, error)
	Index(ctx context.Context, p Product) error
	Delete(ctx context.Context, id int64) error
	Rebuild(ctx context.Context, ps []Product) error
	Count(ctx context.Context) (int64, error)
}

// VectorIndex is an approximate nearest-neighbor index over product embeddings.
type VectorIndex interface {
	Query(ctx context.Context, req QueryVectorRequest) (QueryVectorResponse, error)
	BatchCreate(ctx context.Context, ps []*Product) error
	Delete(ctx context.Context, id int64) error
}

type QueryVectorRequest struct {
	Input    embedding.Vector
	Top      int
	Category string
}

type QueryVectorRes struct {
	Id    int64
	Score float32
}

type QueryVectorResponse struct {
	Data []QueryVectorRes
}
