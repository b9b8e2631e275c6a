package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/ringbrew/newaim/ecommerce/internal/conf"
	"github.com/sashabaranov/go-openai"
)

var modelAliasMap = map[string]openai.EmbeddingModel{
	"AdaEmbeddingV2":  openai.AdaEmbeddingV2,
	"SmallEmbedding3": openai.SmallEmbedding3,
}

type OpenAI struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
}

func newOpenAI(c conf.OpenAI) (*OpenAI, error) {
	if c.Token == "" {
		return nil, errors.New("invalid open ai config")
	}

	em, found := modelAliasMap[c.EmbeddingModel]
	if !found {
		return nil, fmt.Errorf("model-[%s] mapping not found", c.EmbeddingModel)
	}

	config := openai.DefaultConfig(c.Token)
	if c.Endpoint != "" {
		config.BaseURL = c.Endpoint
	}

	return &OpenAI{
		client:         openai.NewClientWithConfig(config),
		embeddingModel: em,
	}, nil
}

// ModelName is recorded next to stored product vectors.
func (oa *OpenAI) ModelName() string {
	return string(oa.embeddingModel)
}

func (oa *OpenAI) EmbedDocument(ctx context.Context, req DocumentRequest) (DocumentResponse, error) {
	embeddingReq := openai.EmbeddingRequest{
		Input:          req.Documents,
		Model:          oa.embeddingModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	embeddingResp, err := oa.client.CreateEmbeddings(ctx, embeddingReq)
	if err != nil {
		return DocumentResponse{}, err
	}

	result := DocumentResponse{
		Data: make([]Data, 0, len(embeddingResp.Data)),
		Usage: Usage{
			PromptTokens:     embeddingResp.Usage.PromptTokens,
			CompletionTokens: embeddingResp.Usage.CompletionTokens,
			TotalTokens:      embeddingResp.Usage.TotalTokens,
		},
	}

	for _, v := range embeddingResp.Data {
		result.Data = append(result.Data, Data{
			Content: v.Object,
			Vector:  v.Embedding,
			Index:   v.Index,
		})
	}

	return result, nil
}

func (oa *OpenAI) EmbedSingle(ctx context.Context, req SingleRequest) (SingleResponse, error) {
	embeddingReq := openai.EmbeddingRequest{
		Input:          []string{req.Content},
		Model:          oa.embeddingModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	embeddingResp, err := oa.client.CreateEmbeddings(ctx, embeddingReq)
	if err != nil {
		return SingleResponse{}, err
	}

	if len(embeddingResp.Data) == 0 {
		return SingleResponse{}, errors.New("invalid embedding response")
	}

	return SingleResponse{
		Data: Data{
			Content: embeddingResp.Data[0].Object,
			Vector:  embeddingResp.Data[0].Embedding,
			Index:   embeddingResp.Data[0].Index,
		},
		Usage: Usage{
			PromptTokens:     embeddingResp.Usage.PromptTokens,
			CompletionTokens: embeddingResp.Usage.CompletionTokens,
			TotalTokens:      embeddingResp.Usage.TotalTokens,
		},
	}, nil
}
