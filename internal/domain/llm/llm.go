package llm

import (
	"context"
	"errors"

	"github.com/ringbrew/newaim/ecommerce/internal/domain"
)

var ErrEmptyCompletion = errors.New("empty completion")

// Completer produces a text completion for a single user prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)
}

func NewCompleter(ctx *domain.UseCaseContext) (Completer, error) {
	oa, err := newOpenAI(ctx.Config.OpenAI)
	if err != nil {
		return nil, err
	}
	return oa, nil
}
