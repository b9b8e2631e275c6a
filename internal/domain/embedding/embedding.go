package embedding

import (
	"context"
	"errors"
	"math"

	"github.com/ringbrew/newaim/ecommerce/internal/domain"
)

// Dimension is the vector size produced by the configured embedding models.
const Dimension = 1536

type Embedding interface {
	EmbedDocument(ctx context.Context, req DocumentRequest) (DocumentResponse, error)
	EmbedSingle(ctx context.Context, req SingleRequest) (SingleResponse, error)
}

func NewEmbedding(ctx *domain.UseCaseContext) (Embedding, error) {
	oa, err := newOpenAI(ctx.Config.OpenAI)
	if err != nil {
		return nil, err
	}
	return oa, nil
}

type DocumentRequest struct {
	Documents []string
}

type DocumentResponse struct {
	Data  []Data
	Usage Usage
}

type SingleRequest struct {
	Content string
}

type SingleResponse struct {
	Data  Data
	Usage Usage
}

type Data struct {
	Content string
	Vector  Vector
	Index   int
}

var ErrVectorLengthMismatch = errors.New("vector length mismatch")

type Vector []float32

func (v Vector) DotProduct(other Vector) (float32, error) {
	if len(v) != len(other) {
		return 0, ErrVectorLengthMismatch
	}

	var dotProduct float32
	for i := range v {
		dotProduct += v[i] * other[i]
	}

	return dotProduct, nil
}

func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of v and other. Zero vectors have similarity 0.
func (v Vector) Cosine(other Vector) (float64, error) {
	dot, err := v.DotProduct(other)
	if err != nil {
		return 0, err
	}

	n := v.Norm() * other.Norm()
	if n == 0 {
		return 0, nil
	}
	return float64(dot) / n, nil
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
