package product

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/ringbrew/newaim/ecommerce/internal/domain"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/embedding"
	"go.uber.org/zap"
)

const (
	PARTITION      = ""
	VectorField    = "vector"
	hnswSearchEf   = 64
	categoryMaxLen = 64
)

type MilvusStore struct {
	client client.Client
	logger *zap.Logger
}

func NewMilvusStore(ctx *domain.UseCaseContext) (*MilvusStore, error) {
	c := context.Background()
	cfg := ctx.Config.Milvus

	mc, err := client.NewClient(c, client.Config{
		Address:  cfg.Endpoint,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}

	if _, err := mc.DescribeDatabase(c, cfg.DB); err != nil {
		if !strings.Contains(err.Error(), "not found") {
			_ = mc.Close()
			return nil, err
		}
		if err := mc.CreateDatabase(c, cfg.DB); err != nil {
			_ = mc.Close()
			return nil, fmt.Errorf("create milvus database %s: %w", cfg.DB, err)
		}
	}

	if err := mc.UsingDatabase(c, cfg.DB); err != nil {
		_ = mc.Close()
		return nil, err
	}

	return &MilvusStore{
		client: mc,
		logger: ctx.Logger,
	}, nil
}

func (ms *MilvusStore) Close() error {
	return ms.client.Close()
}

// BatchCreate upserts the embedded products. Products without an embedding are skipped.
func (ms *MilvusStore) BatchCreate(ctx context.Context, ds []*Product) error {
	embedded := make([]*Product, 0, len(ds))
	for _, v := range ds {
		if len(v.Embedding) > 0 {
			embedded = append(embedded, v)
		}
	}
	if len(embedded) == 0 {
		return errors.New("no embedded products")
	}

	dim := len(embedded[0].Embedding)

	c := len(embedded)
	id := make([]int64, 0, c)
	category := make([]string, 0, c)
	available := make([]bool, 0, c)
	vector := make([][]float32, 0, c)

	for _, v := range embedded {
		if len(v.Embedding) != dim {
			return fmt.Errorf("product %d: embedding dimension %d, want %d", v.Id, len(v.Embedding), dim)
		}
		id = append(id, v.Id)
		category = append(category, v.Category)
		available = append(available, v.Available)
		vector = append(vector, v.Embedding)
	}

	col, err := ms.collection(ctx, dim)
	if err != nil {
		return err
	}

	if _, err := ms.client.Upsert(
		ctx, col, PARTITION,
		entity.NewColumnInt64("id", id),
		entity.NewColumnVarChar("category", category),
		entity.NewColumnBool("available", available),
		entity.NewColumnFloatVector(VectorField, dim, vector),
	); err != nil {
		return err
	}

	return ms.client.Flush(ctx, col, false)
}

func (ms *MilvusStore) Delete(ctx context.Context, id int64) error {
	col, err := ms.collection(ctx, embedding.Dimension)
	if err != nil {
		return err
	}
	return ms.client.Delete(ctx, col, PARTITION, fmt.Sprintf("id in [%d]", id))
}

// Query returns the nearest available products by cosine similarity, most similar first.
func (ms *MilvusStore) Query(ctx context.Context, request QueryVectorRequest) (QueryVectorResponse, error) {
	if len(request.Input) == 0 || request.Top <= 0 {
		return QueryVectorResponse{}, nil
	}

	col, err := ms.collection(ctx, len(request.Input))
	if err != nil {
		return QueryVectorResponse{}, err
	}

	if err := ms.client.LoadCollection(ctx, col, false); err != nil {
		return QueryVectorResponse{}, err
	}

	sp, err := entity.NewIndexHNSWSearchParam(hnswSearchEf)
	if err != nil {
		return QueryVectorResponse{}, err
	}

	rs, err := ms.client.Search(
		ctx, col, nil,
		searchExpr(request.Category),
		[]string{"id"},
		[]entity.Vector{entity.FloatVector(request.Input)},
		VectorField, entity.COSINE, request.Top, sp,
	)
	if err != nil {
		return QueryVectorResponse{}, err
	}

	data := make([]QueryVectorRes, 0, request.Top)
	for _, sr := range rs {
		for i, s := range sr.Scores {
			id, err := sr.IDs.GetAsInt64(i)
			if err != nil {
				return QueryVectorResponse{}, err
			}
			data = append(data, QueryVectorRes{
				Id:    id,
				Score: s,
			})
		}
	}

	return QueryVectorResponse{
		Data: data,
	}, nil
}

func searchExpr(category string) string {
	expr := "available == true"
	if category != "" {
		expr += " && category == " + strconv.Quote(category)
	}
	return expr
}

func (ms *MilvusStore) collection(ctx context.Context, dim int) (string, error) {
	colName := fmt.Sprintf("product_vector_%d", dim)

	if exist, err := ms.client.HasCollection(ctx, colName); err != nil {
		return "", err
	} else if !exist {
		if err := ms.createCollection(ctx, colName, dim); err != nil {
			return "", err
		}
		ms.logger.Info("milvus collection created", zap.String("collection", colName))
	}

	return colName, nil
}

func (ms *MilvusStore) createCollection(ctx context.Context, colName string, dim int) error {
	schema := &entity.Schema{
		CollectionName: colName,
		Fields: []*entity.Field{
			entity.NewField().WithName("id").WithDataType(entity.FieldTypeInt64).WithIsPrimaryKey(true).WithDescription("product id"),
			entity.NewField().WithName("category").WithDataType(entity.FieldTypeVarChar).WithMaxLength(categoryMaxLen).WithDescription("category"),
			entity.NewField().WithName("available").WithDataType(entity.FieldTypeBool).WithDescription("available"),
			entity.NewField().WithName(VectorField).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim)).WithDescription(VectorField),
		},
	}

	if err := ms.client.CreateCollection(ctx, schema, 2); err != nil {
		return err
	}

	_index, err := entity.NewIndexHNSW(entity.COSINE, 8, 64)
	if err != nil {
		return err
	}

	return ms.client.CreateIndex(ctx, colName, VectorField, _index, false)
}
