package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ringbrew/newaim/ecommerce/internal/conf"
	"github.com/sashabaranov/go-openai"
)

type OpenAI struct {
	client *openai.Client
	model  string
}

func newOpenAI(c conf.OpenAI) (*OpenAI, error) {
	if c.Token == "" {
		return nil, errors.New("invalid open ai config")
	}

	config := openai.DefaultConfig(c.Token)
	if c.Endpoint != "" {
		config.BaseURL = c.Endpoint
	}

	model := c.ChatModel
	if model == "" {
		model = openai.GPT4o
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

func (oa *OpenAI) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	resp, err := oa.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: oa.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chat completion API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}
