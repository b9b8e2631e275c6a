package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/llm"
	"github.com/ringbrew/newaim/ecommerce/internal/metrics"
	"go.uber.org/zap"
)

const (
	DefaultRecommendTopN = 5
	descriptionRunes     = 80
	recommendMaxTokens   = 200
	recommendTemperature = 0.3
)

var (
	errNoRecommendation = errors.New("no recommendation in output")

	recommendIndexPattern  = regexp.MustCompile(`推薦商品[：:]\s*\[?(\d+)\]?`)
	recommendReasonPattern = regexp.MustCompile(`推薦理由[：:]\s*(.+)`)
)

// Recommender asks an LLM to flag the single best result for a query.
type Recommender struct {
	llm     llm.Completer
	topN    int
	timeout time.Duration
	logger  *zap.Logger
}

func NewRecommender(c llm.Completer, topN int, timeout time.Duration, logger *zap.Logger) *Recommender {
	if topN <= 0 {
		topN = DefaultRecommendTopN
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recommender{llm: c, topN: topN, timeout: timeout, logger: logger}
}

// Annotate returns a copy of results with at most one item marked recommended.
// Scores and order never change; on any failure the copy is unannotated.
func (r *Recommender) Annotate(ctx context.Context, results []Result, query string) []Result {
	out := make([]Result, len(results))
	copy(out, results)

	if r == nil || r.llm == nil || len(out) < 2 {
		return out
	}

	top := out
	if len(top) > r.topN {
		top = top[:r.topN]
	}

	completion, err := r.complete(ctx, recommendPrompt(query, top))
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("recommend", "error").Inc()
		r.logger.Warn("recommendation failed", zap.Error(err))
		return out
	}

	index, reason, err := ParseRecommendation(completion)
	if err != nil || index < 1 || index > len(top) {
		metrics.LLMRequestsTotal.WithLabelValues("recommend", "malformed").Inc()
		r.logger.Info("recommendation output rejected", zap.String("output", completion), zap.Int("index", index))
		return out
	}

	metrics.LLMRequestsTotal.WithLabelValues("recommend", "success").Inc()
	out[index-1].Recommended = true
	out[index-1].RecommendationReason = reason
	return out
}

func (r *Recommender) complete(ctx context.Context, prompt string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.llm.Complete(ctx, prompt, recommendMaxTokens, recommendTemperature)
}

func recommendPrompt(query string, top []Result) string {
	var sb strings.Builder
	for i, res := range top {
		fmt.Fprintf(&sb, "%d. %s - $%s (%s) %s [confidence %.2f]\n",
			i+1, res.Name, strconv.FormatFloat(res.NewPrice, 'f', -1, 64), res.Category,
			truncateRunes(res.Description, descriptionRunes), res.Confidence)
	}

	return fmt.Sprintf(`作為一個專業的電商購物助理，請分析以下搜索結果並推薦最適合的一個商品。

用戶搜索：「%s」

搜索結果：
%s
只回覆一行 JSON，不要其他文字：
{"index": <商品編號>, "reason": "<50字以內的推薦理由>"}`, query, sb.String())
}

// ParseRecommendation reads the 1-based index and reason from LLM output,
// accepting the JSON contract or the labeled-line form.
func ParseRecommendation(out string) (int, string, error) {
	s := stripCodeFence(out)

	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		var v struct {
			Index  json.Number `json:"index"`
			Reason string      `json:"reason"`
		}
		if err := json.Unmarshal([]byte(s[start:end+1]), &v); err == nil {
			if idx, err := strconv.Atoi(v.Index.String()); err == nil {
				return idx, strings.TrimSpace(v.Reason), nil
			}
		}
	}

	m := recommendIndexPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, "", errNoRecommendation
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", err
	}

	reason := ""
	if rm := recommendReasonPattern.FindStringSubmatch(s); rm != nil {
		reason = strings.TrimSpace(rm[1])
	}
	return idx, reason, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
