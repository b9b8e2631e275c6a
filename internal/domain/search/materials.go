package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"github.com/ringbrew/newaim/ecommerce/internal/metrics"
	"go.uber.org/zap"
)

const (
	SourceFallback = "fallback"

	compareMaxTokens   = 300
	compareTemperature = 0.5
)

var materialTerms = []string{
	"純棉", "棉", "羊毛", "喀什米爾", "聚酯纖維", "尼龍", "亞麻", "真絲", "絲", "皮革", "丹寧", "彈性纖維", "羽絨", "刷毛",
	"cotton", "wool", "cashmere", "polyester", "nylon", "linen", "silk", "leather", "denim", "spandex", "down", "fleece",
}

type ProductBrief struct {
	Id          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type MaterialComparison struct {
	Comparison string `json:"comparison"`
	Source     string `json:"source"`
}

type CompareResponse struct {
	Success            bool               `json:"success"`
	OriginalProduct    ProductBrief       `json:"originalProduct"`
	RecommendedProduct ProductBrief       `json:"recommendedProduct"`
	MaterialComparison MaterialComparison `json:"materialComparison"`
}

func brief(p product.Product) ProductBrief {
	return ProductBrief{Id: p.Id, Name: p.Name, Description: p.Description}
}

// CompareMaterials contrasts the materials of two available products. The
// LLM comparison falls back to a keyword summary of both descriptions.
func (e *Engine) CompareMaterials(ctx context.Context, originalID, recommendedID int64) (CompareResponse, error) {
	original, err := e.lookup(ctx, originalID)
	if err != nil {
		return CompareResponse{}, fmt.Errorf("original product %d: %w", originalID, err)
	}
	recommended, err := e.lookup(ctx, recommendedID)
	if err != nil {
		return CompareResponse{}, fmt.Errorf("recommended product %d: %w", recommendedID, err)
	}

	resp := CompareResponse{
		Success:            true,
		OriginalProduct:    brief(original),
		RecommendedProduct: brief(recommended),
	}

	text, err := e.compareWithLLM(ctx, original, recommended)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("compare", "error").Inc()
		e.Logger.Warn("material comparison llm failed", zap.Int64("original", originalID),
			zap.Int64("recommended", recommendedID), zap.Error(err))
		resp.MaterialComparison = MaterialComparison{Comparison: CompareFallback(original, recommended), Source: SourceFallback}
		return resp, nil
	}

	metrics.LLMRequestsTotal.WithLabelValues("compare", "success").Inc()
	resp.MaterialComparison = MaterialComparison{Comparison: text, Source: SourceLLM}
	return resp, nil
}

func (e *Engine) compareWithLLM(ctx context.Context, a, b product.Product) (string, error) {
	if e.LLM == nil {
		return "", errors.New("llm not configured")
	}
	if e.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.LLMTimeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(`請比較以下兩件商品的材質差異，重點說明觸感、透氣性、保暖度與保養方式，150字以內。

原商品：%s
描述：%s

推薦商品：%s
描述：%s`, a.Name, a.Description, b.Name, b.Description)

	out, err := e.LLM.Complete(ctx, prompt, compareMaxTokens, compareTemperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stripCodeFence(out)), nil
}

// CompareFallback lists the material words found in each description.
func CompareFallback(a, b product.Product) string {
	am, bm := materialsOf(a.Description), materialsOf(b.Description)
	if len(am) == 0 && len(bm) == 0 {
		return fmt.Sprintf("「%s」與「%s」的描述未提及材質資訊，建議查看商品詳情。", a.Name, b.Name)
	}

	describe := func(ms []string) string {
		if len(ms) == 0 {
			return "未標示"
		}
		return strings.Join(ms, "、")
	}
	return fmt.Sprintf("「%s」材質：%s；「%s」材質：%s。", a.Name, describe(am), b.Name, describe(bm))
}

func materialsOf(description string) []string {
	d := strings.ToLower(description)
	found := make([]string, 0)
	for _, m := range materialTerms {
		if !containsTerm(d, m) {
			continue
		}
		dup := false
		for _, f := range found {
			if strings.Contains(f, m) {
				dup = true
				break
			}
		}
		if !dup {
			found = append(found, m)
		}
	}
	return found
}
