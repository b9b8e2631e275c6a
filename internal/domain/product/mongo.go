package product

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/ringbrew/newaim/ecommerce/internal/domain"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/embedding"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const embeddingField = "product_embedding"

type MongoCatalog struct {
	col *mongo.Collection
}

func NewMongoCatalog(ctx *domain.UseCaseContext) *MongoCatalog {
	return &MongoCatalog{
		col: ctx.Mongo.Database(ctx.Config.Mongo.Database).Collection(ctx.Config.Mongo.Collection),
	}
}

// EnsureIndexes creates the unique id index the catalog relies on for NextID.
func (mc *MongoCatalog) EnsureIndexes(ctx context.Context) error {
	_, err := mc.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func availableQuery(f Filter) bson.M {
	q := bson.M{"available": true}
	if f.Category != "" {
		q["category"] = f.Category
	}

	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		q["new_price"] = price
	}

	if len(f.Categories) > 0 {
		q["categories"] = bson.M{"$in": f.Categories}
	}
	return q
}

func withoutEmbedding() bson.M {
	return bson.M{"_id": 0, embeddingField: 0}
}

func (mc *MongoCatalog) find(ctx context.Context, query bson.M, opts ...*options.FindOptions) ([]Product, error) {
	cur, err := mc.col.Find(ctx, query, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	result := make([]Product, 0)
	if err := cur.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (mc *MongoCatalog) FindAvailable(ctx context.Context, f Filter) ([]Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "id", Value: 1}}).
		SetProjection(withoutEmbedding())
	return mc.find(ctx, availableQuery(f), opts)
}

func (mc *MongoCatalog) FindByID(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := mc.col.FindOne(ctx, bson.M{"id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (mc *MongoCatalog) FindByIDs(ctx context.Context, ids []int64) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	opts := options.Find().SetProjection(withoutEmbedding())
	return mc.find(ctx, bson.M{"id": bson.M{"$in": ids}}, opts)
}

func (mc *MongoCatalog) FindByName(ctx context.Context, name string) (Product, error) {
	var p Product
	err := mc.col.FindOne(ctx, bson.M{"name": name, "available": true},
		options.FindOne().SetProjection(withoutEmbedding())).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// Neighbors scans every available product carrying an embedding and ranks by cosine similarity.
func (mc *MongoCatalog) Neighbors(ctx context.Context, v embedding.Vector, k int, f Filter) ([]Neighbor, error) {
	query := bson.M{"available": true, embeddingField: bson.M{"$exists": true}}
	if f.Category != "" {
		query["category"] = f.Category
	}

	candidates, err := mc.find(ctx, query, options.Find().SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, err
	}

	result := make([]Neighbor, 0, len(candidates))
	for _, p := range candidates {
		score, err := v.Cosine(p.Embedding)
		if err != nil {
			continue
		}
		p.Embedding = nil
		result = append(result, Neighbor{Product: p, Score: score})
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

func (mc *MongoCatalog) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	pattern := primitiveRegex(query)
	filter := bson.M{"$or": []bson.M{
		{"name": pattern},
		{"categories": bson.M{"$elemMatch": pattern}},
		{"tags": bson.M{"$elemMatch": pattern}},
	}}

	opts := options.Find().
		SetProjection(bson.M{"_id": 0, "name": 1}).
		SetSort(bson.D{{Key: "id", Value: 1}}).
		SetLimit(int64(limit))

	ps, err := mc.find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(ps))
	for _, p := range ps {
		result = append(result, p.Name)
	}
	return result, nil
}

func primitiveRegex(query string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}
}

func (mc *MongoCatalog) All(ctx context.Context) ([]Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	return mc.find(ctx, bson.M{}, opts)
}

func (mc *MongoCatalog) Count(ctx context.Context) (int64, error) {
	return mc.col.CountDocuments(ctx, bson.M{})
}

func (mc *MongoCatalog) NextID(ctx context.Context) (int64, error) {
	var last Product
	err := mc.col.FindOne(ctx, bson.M{},
		options.FindOne().
			SetSort(bson.D{{Key: "id", Value: -1}}).
			SetProjection(bson.M{"id": 1})).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find last product: %w", err)
	}
	return last.Id + 1, nil
}

func (mc *MongoCatalog) Insert(ctx context.Context, p Product) error {
	_, err := mc.col.InsertOne(ctx, p)
	return err
}

func (mc *MongoCatalog) Delete(ctx context.Context, id int64) error {
	res, err := mc.col.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
