package search

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/ringbrew/newaim/ecommerce/internal/domain"
)

var ErrLimited = errors.New("too many requests")

const limitScript = "local v = redis.call('INCR', KEYS[1]) if v == 1 then redis.call('EXPIRE', KEYS[1], ARGV[1]) end return v"

type Limiter struct {
	rds  *redis.Client
	rule map[Aspect]AspectRuleEntry
}

// NewLimiter returns a limiter backed by redis. Without redis, or with rate
// limiting disabled, every check passes.
func NewLimiter(ctx *domain.UseCaseContext) *Limiter {
	rl := ctx.Config.RateLimit
	l := &Limiter{
		rule: map[Aspect]AspectRuleEntry{
			AspectClientAccess: {
				IntervalSec: rl.IntervalSec,
				Limit:       rl.Limit,
			},
			AspectClientQuery: {
				IntervalSec: rl.IntervalSec,
				Limit:       rl.Limit / 2,
			},
			AspectClientLLM: {
				IntervalSec: rl.IntervalSec,
				Limit:       rl.Limit / 2,
			},
		},
	}
	if rl.Enabled {
		l.rds = ctx.Redis
	}
	return l
}

type AspectRuleEntry struct {
	IntervalSec int64
	Limit       int64
}

type Aspect int

const (
	AspectInvalid Aspect = iota
	AspectClientAccess
	AspectClientQuery
	AspectClientLLM
)

func (a *Aspect) GenKey(client string, input interface{}) (string, error) {
	format := "ecommerce_search_client_%s_aspect_%d_%s_limit"

	getDataMd5 := func(input interface{}) (string, error) {
		sData, err := json.Marshal(input)
		if err != nil {
			return "", err
		}

		hash := md5.Sum(sData)
		return hex.EncodeToString(hash[:]), nil
	}

	switch *a {
	case AspectClientAccess:
		return fmt.Sprintf(format, client, *a, "access"), nil
	case AspectClientQuery:
		dataKey, err := getDataMd5(input)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(format, client, *a, dataKey), nil
	case AspectClientLLM:
		return fmt.Sprintf(format, client, *a, "llm"), nil
	default:
		return "", nil
	}
}

type CheckLimitInput struct {
	Aspect Aspect
	Client string
	Input  interface{}
}

func (lc *Limiter) Check(ctx context.Context, input CheckLimitInput) error {
	if lc == nil || lc.rds == nil {
		return nil
	}

	key, err := input.Aspect.GenKey(input.Client, input.Input)
	if err != nil {
		return err
	}

	if key == "" {
		return nil
	}

	rule := lc.rule[input.Aspect]
	if rule.Limit <= 0 {
		return nil
	}

	count, err := lc.rds.Eval(ctx, limitScript, []string{key}, rule.IntervalSec).Int64()
	if err != nil {
		return err
	}

	if count > rule.Limit {
		if count > 20*rule.Limit {
			lc.rds.Set(ctx, key, 20*rule.Limit, redis.KeepTTL)
		}

		return ErrLimited
	}

	return nil
}

// ClientOf identifies the caller by the first forwarded address or the peer address.
func ClientOf(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
