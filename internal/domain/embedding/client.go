package embedding

import (
	"context"
	"strings"
	"time"

	"github.com/ringbrew/newaim/ecommerce/internal/metrics"
	"go.uber.org/zap"
)

// Client turns free text into a vector. It never returns an error: a nil
// vector means semantic search is unavailable for this text.
type Client struct {
	provider Embedding
	timeout  time.Duration
	logger   *zap.Logger
}

// NewClient wraps provider. A nil provider yields a client that always returns nil.
func NewClient(provider Embedding, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

func (c *Client) Embed(ctx context.Context, text string) Vector {
	text = strings.TrimSpace(text)
	if text == "" || c == nil || c.provider == nil {
		return nil
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.provider.EmbedSingle(ctx, SingleRequest{Content: text})
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("error").Inc()
		c.logger.Warn("embedding failed", zap.Int("text_len", len(text)), zap.Error(err))
		return nil
	}

	if len(resp.Data.Vector) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues("empty").Inc()
		return nil
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("success").Inc()
	return resp.Data.Vector
}

// EmbedBatch embeds texts in chunks of batchSize. Entries that fail stay nil.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, batchSize int) []Vector {
	result := make([]Vector, len(texts))
	if c == nil || c.provider == nil || len(texts) == 0 {
		return result
	}
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := c.embedChunk(ctx, texts[start:end])
		if err != nil {
			metrics.EmbeddingRequestsTotal.WithLabelValues("error").Inc()
			c.logger.Warn("batch embedding failed", zap.Int("from", start), zap.Int("to", end), zap.Error(err))
			continue
		}

		metrics.EmbeddingRequestsTotal.WithLabelValues("success").Inc()
		for _, d := range resp.Data {
			if d.Index >= 0 && start+d.Index < end && len(d.Vector) > 0 {
				result[start+d.Index] = d.Vector
			}
		}
	}

	return result
}

func (c *Client) embedChunk(ctx context.Context, texts []string) (DocumentResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.provider.EmbedDocument(ctx, DocumentRequest{Documents: texts})
}

// Model names the provider model, or "" when it does not report one.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	if m, ok := c.provider.(interface{ ModelName() string }); ok {
		return m.ModelName()
	}
	return ""
}

// ProductText builds the text a product is embedded from.
func ProductText(name, description, category string, categories, tags []string) string {
	parts := []string{name, description, category, strings.Join(categories, " "), strings.Join(tags, " ")}

	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
