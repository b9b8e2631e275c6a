package search

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/go-redis/redis/v8"
)

const (
	trendingKey       = "ecommerce:trending_searches"
	trendingMaxRunes  = 50
	DefaultTrendingN  = 8
	trendingKeepCount = 500
)

// FallbackTrending is served when no search has been recorded yet.
var FallbackTrending = []string{"黑色上衣", "運動服", "約會穿搭", "休閒外套", "夏季洋裝", "牛仔褲", "正式服裝", "舒適鞋子"}

// Trending counts searched queries in a redis sorted set.
type Trending struct {
	rds *redis.Client
}

func NewTrending(rds *redis.Client) *Trending {
	return &Trending{rds: rds}
}

func normalizeTrending(query string) string {
	q := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if q == "" || utf8.RuneCountInString(q) > trendingMaxRunes {
		return ""
	}
	return q
}

func (t *Trending) Record(ctx context.Context, query string) error {
	q := normalizeTrending(query)
	if t == nil || t.rds == nil || q == "" {
		return nil
	}

	pipe := t.rds.TxPipeline()
	pipe.ZIncrBy(ctx, trendingKey, 1, q)
	// keep only the top entries
	pipe.ZRemRangeByRank(ctx, trendingKey, 0, -trendingKeepCount-1)
	_, err := pipe.Exec(ctx)
	return err
}

// Top returns up to n queries, most searched first, or the fallback list.
func (t *Trending) Top(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultTrendingN
	}
	if t == nil || t.rds == nil {
		return fallbackTrending(n), nil
	}

	result, err := t.rds.ZRevRange(ctx, trendingKey, 0, int64(n-1)).Result()
	if err != nil {
		return fallbackTrending(n), err
	}
	if len(result) == 0 {
		return fallbackTrending(n), nil
	}
	return result, nil
}

func fallbackTrending(n int) []string {
	if n > len(FallbackTrending) {
		n = len(FallbackTrending)
	}
	return append([]string{}, FallbackTrending[:n]...)
}
