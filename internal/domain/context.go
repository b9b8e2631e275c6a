package domain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/go-redis/redis/v8"
	"github.com/ringbrew/newaim/ecommerce/internal/conf"
	"github.com/ringbrew/newaim/ecommerce/internal/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type UseCaseContext struct {
	Config        conf.Config
	Logger        *zap.Logger
	Mongo         *mongo.Client
	ElasticSearch *elasticsearch.Client
	Redis         *redis.Client
	Signal        context.Context
	cancel        context.CancelFunc
	WaitGroup     sync.WaitGroup
}

func (ctx *UseCaseContext) Watch() {
	ctx.WaitGroup.Add(1)
}

func (ctx *UseCaseContext) Close() {
	if ctx.cancel != nil {
		ctx.cancel()
	}
	ctx.WaitGroup.Wait()

	if ctx.Mongo != nil {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ctx.Mongo.Disconnect(c); err != nil {
			ctx.Logger.Warn("mongo disconnect failed", zap.Error(err))
		}
	}
	if ctx.Redis != nil {
		_ = ctx.Redis.Close()
	}
	_ = ctx.Logger.Sync()
}

func NewUseCaseContext(c conf.Config) (*UseCaseContext, error) {
	l, err := logger.NewLogger(c.Env, c.LogLevel)
	if err != nil {
		return nil, err
	}

	ucc := &UseCaseContext{
		Config: c,
		Logger: l,
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mc, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(c.Mongo.URI).
		SetServerSelectionTimeout(5*time.Second).
		SetMaxPoolSize(10).
		SetMinPoolSize(1))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	ucc.Mongo = mc

	if c.Redis.Host != "" {
		ucc.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Redis.Host,
			DB:       c.Redis.DB,
			Password: c.Redis.Password,
		})
		if err := ucc.Redis.Ping(connectCtx).Err(); err != nil {
			l.Warn("redis unreachable, rate limit and trending disabled", zap.Error(err))
			_ = ucc.Redis.Close()
			ucc.Redis = nil
		}
	}

	if len(c.ElasticSearch.Address) > 0 {
		esClient, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: c.ElasticSearch.Address,
			Username:  c.ElasticSearch.UserName,
			Password:  c.ElasticSearch.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create elasticsearch client: %w", err)
		}
		ucc.ElasticSearch = esClient
	}

	ucc.Signal, ucc.cancel = context.WithCancel(context.Background())

	return ucc, nil
}
