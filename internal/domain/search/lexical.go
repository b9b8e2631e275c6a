package search

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"go.uber.org/zap"
)

// LexicalBaselineScore is the raw score of every lexical hit: an unranked exact substring match.
const LexicalBaselineScore = 0.8

// CandidateSource returns products that may contain every token, already
// restricted to available products matching the filter.
type CandidateSource interface {
	Candidates(ctx context.Context, tokens []string, f product.Filter, size int) ([]product.Product, error)
}

type LexicalRetriever struct {
	source  CandidateSource
	timeout time.Duration
	logger  *zap.Logger
}

func NewLexicalRetriever(source CandidateSource, timeout time.Duration, logger *zap.Logger) *LexicalRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LexicalRetriever{source: source, timeout: timeout, logger: logger}
}

// Tokenize splits a query on whitespace and punctuation into distinct lower-case tokens.
func Tokenize(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '&' && r != '\'' && r != '-')
	})

	seen := make(map[string]struct{}, len(words))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, "-'")
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		tokens = append(tokens, w)
	}
	return tokens
}

// Search matches every token against at least one text field of each
// candidate. Hits carry LexicalBaselineScore and are ordered by id.
func (r *LexicalRetriever) Search(ctx context.Context, query string, limit int, f product.Filter) Branch {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return empty("no keywords")
	}
	if limit <= 0 {
		return empty("zero limit")
	}
	if r == nil || r.source == nil {
		return unavailable("lexical source not configured")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	candidates, err := r.source.Candidates(ctx, tokens, f, limit)
	if err != nil {
		r.logger.Warn("lexical retrieval failed", zap.Strings("tokens", tokens), zap.Error(err))
		return unavailable("lexical index error: " + err.Error())
	}

	hits := make([]Hit, 0, limit)
	for _, p := range candidates {
		if !p.Available || !f.Match(p) || !MatchesAllTokens(p, tokens) {
			continue
		}
		p.Embedding = nil
		hits = append(hits, Hit{Product: p, Score: LexicalBaselineScore})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Product.Id < hits[j].Product.Id })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return okOrEmpty(hits)
}

// MatchesAllTokens reports whether each token is a case-insensitive substring
// of at least one of name, description, category, categories or tags.
func MatchesAllTokens(p product.Product, tokens []string) bool {
	fields := make([]string, 0, 3+len(p.Categories)+len(p.Tags))
	fields = append(fields, strings.ToLower(p.Name), strings.ToLower(p.Description), strings.ToLower(p.Category))
	for _, c := range p.Categories {
		fields = append(fields, strings.ToLower(c))
	}
	for _, t := range p.Tags {
		fields = append(fields, strings.ToLower(t))
	}

	for _, tok := range tokens {
		found := false
		for _, field := range fields {
			if strings.Contains(field, tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
