package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ringbrew/gsv-contrib/logger/zaplogger"
	"github.com/ringbrew/gsv/logger"
	"github.com/ringbrew/newaim/ecommerce/internal/conf"
	"github.com/ringbrew/newaim/ecommerce/internal/delivery"
	"github.com/ringbrew/newaim/ecommerce/internal/domain"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/embedding"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/llm"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/search"
	"github.com/ringbrew/newaim/ecommerce/internal/metrics"
	"go.uber.org/zap"
)

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	config := flag.String("f", "config.yaml", "config file path")
	flag.Parse()

	// 读取配置
	c, err := conf.Load(*config)
	if err != nil {
		log.Fatal(err.Error())
	}

	logger.SetLogger(zaplogger.New())
	metrics.Register()

	ucc, err := domain.NewUseCaseContext(c)
	if err != nil {
		log.Fatal(err.Error())
	}
	l := ucc.Logger

	provider, err := embedding.NewEmbedding(ucc)
	if err != nil {
		l.Warn("embedding provider not configured, semantic search disabled", zap.Error(err))
	}
	embedder := embedding.NewClient(provider, c.Search.EmbeddingTimeout(), l)

	uc, closeVectors := newProductUseCase(ucc, embedder, provider != nil)
	engine := newEngine(ucc, uc, embedder)

	// 初始化server
	s := delivery.NewServer(ucc)
	svcImpl := delivery.ServiceList(ucc, uc, engine)

	// 注册服务实现
	for i := range svcImpl {
		if err := s.Register(svcImpl[i]); err != nil {
			l.Fatal("register service failed", zap.String("service", svcImpl[i].Name()), zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-interrupt
		cancel()
	}()

	l.Info("server starting", zap.String("host", c.Host), zap.Int("port", c.Port),
		zap.Bool("semantic", uc.SemanticEnabled()))
	s.Run(ctx)

	closeVectors()
	ucc.Close()
}

// newProductUseCase wires the catalog with the optional text and vector
// indexes. A vector index that fails to start disables semantic search.
func newProductUseCase(ucc *domain.UseCaseContext, embedder *embedding.Client, canEmbed bool) (*product.UseCase, func()) {
	l := ucc.Logger

	catalog := product.NewMongoCatalog(ucc)
	if err := catalog.EnsureIndexes(context.Background()); err != nil {
		l.Fatal("ensure catalog indexes failed", zap.Error(err))
	}

	var text product.TextIndex
	if ucc.ElasticSearch != nil {
		es, err := product.NewESIndex(ucc)
		if err != nil {
			l.Warn("elasticsearch unavailable, lexical search scans the catalog", zap.Error(err))
		} else {
			text = es
		}
	}

	var vectors product.VectorIndex
	closeVectors := func() {}
	semanticOff := !canEmbed
	if ucc.Config.Milvus.Endpoint != "" && !semanticOff {
		ms, err := product.NewMilvusStore(ucc)
		if err != nil {
			l.Error("milvus unavailable, semantic search disabled", zap.Error(err))
			semanticOff = true
		} else {
			vectors = ms
			closeVectors = func() {
				if err := ms.Close(); err != nil {
					l.Warn("close milvus failed", zap.Error(err))
				}
			}
		}
	}

	uc := product.NewUseCase(catalog, text, vectors, embedder, l)
	if semanticOff {
		uc.DisableSemantic()
	}
	return uc, closeVectors
}

func newEngine(ucc *domain.UseCaseContext, uc *product.UseCase, embedder *embedding.Client) *search.Engine {
	l := ucc.Logger
	cfg := ucc.Config.Search

	completer, err := llm.NewCompleter(ucc)
	if err != nil {
		l.Warn("llm not configured, normalizer and recommender use fallbacks", zap.Error(err))
	}

	deps := search.Deps{
		Lexical:    search.NewLexicalRetriever(uc, cfg.IndexTimeout(), l),
		Embedder:   embedder,
		Products:   uc,
		LLMTimeout: cfg.LLMTimeout(),
		Logger:     l,
	}
	if uc.SemanticEnabled() {
		deps.Semantic = search.NewSemanticRetriever(uc, cfg.SimilarityFloor, cfg.IndexTimeout(), l)
	}
	if completer != nil {
		deps.Normalizer = search.NewNormalizer(completer, cfg.LLMTimeout(), l)
		deps.Recommender = search.NewRecommender(completer, cfg.RecommendTopN, cfg.LLMTimeout(), l)
		deps.LLM = completer
	}

	return search.NewEngine(deps, search.Options{
		MaxLimit:  cfg.MaxLimit,
		Normalize: !cfg.DisableNormalize,
		Recommend: !cfg.DisableRecommend,
	})
}
