package search

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/llm"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"github.com/ringbrew/newaim/ecommerce/internal/metrics"
	"go.uber.org/zap"
)

const (
	SourceLLM   = "llm"
	SourceRegex = "regex"
	SourceRaw   = "raw"

	normalizeMaxTokens   = 100
	normalizeTemperature = 0
)

// Normalized is a query reduced to lexical keywords plus the filters it implies.
type Normalized struct {
	Keywords string
	Filter   product.Filter
	Source   string
}

type Normalizer struct {
	llm     llm.Completer
	timeout time.Duration
	logger  *zap.Logger
}

// NewNormalizer returns a normalizer. With a nil completer only the regex extractor runs.
func NewNormalizer(c llm.Completer, timeout time.Duration, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{llm: c, timeout: timeout, logger: logger}
}

// Normalize never fails: LLM extraction falls back to regex extraction, which
// falls back to the raw query with no filters.
func (n *Normalizer) Normalize(ctx context.Context, raw string) Normalized {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Normalized{Source: SourceRaw}
	}

	if n != nil && n.llm != nil {
		out, err := n.complete(ctx, raw)
		if err == nil {
			if parsed, ok := ParseNormalizeLine(out); ok {
				metrics.LLMRequestsTotal.WithLabelValues("normalize", "success").Inc()
				return parsed
			}
			metrics.LLMRequestsTotal.WithLabelValues("normalize", "malformed").Inc()
			n.logger.Info("normalizer output malformed, using regex", zap.String("output", out))
		} else {
			metrics.LLMRequestsTotal.WithLabelValues("normalize", "error").Inc()
			n.logger.Warn("normalizer llm failed, using regex", zap.Error(err))
		}
	}

	return ExtractManually(raw)
}

func (n *Normalizer) complete(ctx context.Context, raw string) (string, error) {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	return n.llm.Complete(ctx, fmt.Sprintf(normalizePrompt, raw), normalizeMaxTokens, normalizeTemperature)
}

const normalizePrompt = `You convert shopping queries for a clothing store into search keywords and filters.
Rules:
- Drop politeness, quantifiers and filler ("我想要", "請給我", "一件", "please").
- Keep brand names and colors exactly as written.
- Map audience words to CATEGORY: 男/男裝/men -> men, 女/女裝/women -> women, 童/兒童/kids -> kids, otherwise none.
- Extract MIN_PRICE and MAX_PRICE only when the query states a price, otherwise none.
Reply with exactly one line and nothing else:
KEYWORDS: <keywords> | CATEGORY: <men|women|kids|none> | MIN_PRICE: <number|none> | MAX_PRICE: <number|none>

Example: 我想要一件800以下的黑色女生外套
KEYWORDS: 黑色 外套 | CATEGORY: women | MIN_PRICE: none | MAX_PRICE: 800

Query: %s`

// ParseNormalizeLine parses the labeled line of the normalizer contract.
func ParseNormalizeLine(out string) (Normalized, bool) {
	line := ""
	for _, l := range strings.Split(stripCodeFence(out), "\n") {
		if strings.Contains(strings.ToUpper(l), "KEYWORDS:") {
			line = l
			break
		}
	}
	if line == "" {
		return Normalized{}, false
	}

	fields := make(map[string]string, 4)
	for _, part := range strings.Split(line, "|") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			return Normalized{}, false
		}
		fields[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	result := Normalized{Source: SourceLLM}

	kw, ok := fields["KEYWORDS"]
	if !ok || kw == "" || strings.EqualFold(kw, "none") {
		return Normalized{}, false
	}
	result.Keywords = strings.Join(strings.Fields(kw), " ")

	if c, ok := fields["CATEGORY"]; ok && !strings.EqualFold(c, "none") && c != "" {
		c = strings.ToLower(c)
		if !isCategory(c) {
			return Normalized{}, false
		}
		result.Filter.Category = c
	}

	for _, bound := range []struct {
		key string
		dst **float64
	}{
		{"MIN_PRICE", &result.Filter.MinPrice},
		{"MAX_PRICE", &result.Filter.MaxPrice},
	} {
		v, ok := fields[bound.key]
		if !ok || v == "" || strings.EqualFold(v, "none") {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimLeft(v, "$"), 64)
		if err != nil || f < 0 {
			return Normalized{}, false
		}
		*bound.dst = &f
	}

	if result.Filter.MinPrice != nil && result.Filter.MaxPrice != nil && *result.Filter.MinPrice > *result.Filter.MaxPrice {
		return Normalized{}, false
	}

	return result, true
}

var (
	number = `(\d+(?:\.\d+)?)`

	rangePattern = regexp.MustCompile(`\$?` + number + `\s*(?:元|塊)?\s*(~|～|-|到|至)\s*\$?` + number + `\s*(?:元|塊)?`)

	// a hyphenated pair is only a price range next to one of these
	priceCue = regexp.MustCompile(`(?i)\$|元|塊|價|預算|price|budget|usd|twd|ntd`)

	maxPatterns = []*regexp.Regexp{
		regexp.MustCompile(number + `\s*(?:元|塊)?\s*(?:以下|以內|以内)`),
		regexp.MustCompile(`(?:低於|不超過|少於)\s*` + number + `\s*(?:元|塊)?`),
		regexp.MustCompile(`(?i)(?:under|below|less than)\s*\$?` + number),
	}
	minPatterns = []*regexp.Regexp{
		regexp.MustCompile(number + `\s*(?:元|塊)?\s*以上`),
		regexp.MustCompile(`(?:高於|超過)\s*` + number + `\s*(?:元|塊)?`),
		regexp.MustCompile(`(?i)(?:over|above|more than)\s*\$?` + number),
	}
)

// ExtractManually is the deterministic extractor used when the LLM is unavailable.
func ExtractManually(raw string) Normalized {
	raw = strings.TrimSpace(raw)
	q := strings.ToLower(raw)
	result := Normalized{Source: SourceRegex}

	if m := rangePattern.FindStringSubmatch(q); m != nil && (m[2] != "-" || priceCue.MatchString(q)) {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[3], 64)
		if lo > hi {
			lo, hi = hi, lo
		}
		result.Filter.MinPrice, result.Filter.MaxPrice = &lo, &hi
		q = strings.Replace(q, m[0], " ", 1)
	}

	if result.Filter.MaxPrice == nil {
		if v, rest, ok := firstNumberMatch(maxPatterns, q); ok {
			result.Filter.MaxPrice, q = &v, rest
		}
	}
	if result.Filter.MinPrice == nil {
		if v, rest, ok := firstNumberMatch(minPatterns, q); ok {
			result.Filter.MinPrice, q = &v, rest
		}
	}

	if c := categoryOf(q); c != "" {
		result.Filter.Category = c
		for _, ct := range categoryTerms {
			q, _ = removeTerm(q, ct.term)
		}
	}

	for _, f := range fillerTerms {
		q, _ = removeTerm(q, f)
	}

	result.Keywords = cleanKeywords(q)

	if result.Keywords == "" && result.Filter.IsEmpty() {
		return Normalized{Keywords: raw, Source: SourceRaw}
	}
	return result
}

func firstNumberMatch(patterns []*regexp.Regexp, q string) (float64, string, bool) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(q); m != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			return v, strings.Replace(q, m[0], " ", 1), true
		}
	}
	return 0, q, false
}

func cleanKeywords(q string) string {
	words := strings.FieldsFunc(q, func(r rune) bool {
		return unicode.IsSpace(r) || r == '的' || (unicode.IsPunct(r) && r != '&' && r != '\'' && r != '-')
	})

	kept := make([]string, 0, len(words))
	for _, w := range words {
		for _, p := range trailingParticles {
			w = strings.TrimSuffix(w, p)
		}
		if w != "" {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
