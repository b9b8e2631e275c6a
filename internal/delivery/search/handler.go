package search

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mholt/binding"
	"github.com/ringbrew/gsv/service"
	"github.com/ringbrew/newaim/ecommerce/internal/delivery/common"
	"github.com/ringbrew/newaim/ecommerce/internal/domain"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/search"
	"github.com/ringbrew/newaim/ecommerce/internal/logger"
	"go.uber.org/zap"
)

const trendingTimeout = 500 * time.Millisecond

type Handler struct {
	ctx      *domain.UseCaseContext
	engine   *search.Engine
	limiter  *Limiter
	trending *Trending
}

func NewHandler(ctx *domain.UseCaseContext, engine *search.Engine) *Handler {
	return &Handler{
		ctx:      ctx,
		engine:   engine,
		limiter:  NewLimiter(ctx),
		trending: NewTrending(ctx.Redis),
	}
}

type SearchParam struct {
	Query      string   `json:"query"`
	Limit      int      `json:"limit"`
	Category   string   `json:"category"`
	MinPrice   *float64 `json:"minPrice"`
	MaxPrice   *float64 `json:"maxPrice"`
	Categories []string `json:"categories"`
}

func (sp *SearchParam) FieldMap(req *http.Request) binding.FieldMap {
	return binding.FieldMap{
		&sp.Query:      "query",
		&sp.Limit:      "limit",
		&sp.Category:   "category",
		&sp.Categories: "categories",
	}
}

// Filter returns the request filter. Price bounds given as form values are
// read here because the binder only handles plain fields.
func (sp *SearchParam) Filter(r *http.Request) (product.Filter, error) {
	f := product.Filter{
		Category:   sp.Category,
		MinPrice:   sp.MinPrice,
		MaxPrice:   sp.MaxPrice,
		Categories: sp.Categories,
	}.Normalize()
	for _, bound := range []struct {
		name string
		dst  **float64
	}{
		{"minPrice", &f.MinPrice},
		{"maxPrice", &f.MaxPrice},
	} {
		if *bound.dst != nil {
			continue
		}
		v := r.URL.Query().Get(bound.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return product.Filter{}, errors.New("invalid " + bound.name)
		}
		*bound.dst = &n
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return product.Filter{}, errors.New("minPrice exceeds maxPrice")
	}
	return f, nil
}

func (h *Handler) bind(w http.ResponseWriter, r *http.Request) (SearchParam, product.Filter, bool) {
	sp := SearchParam{}
	if err := binding.Bind(r, &sp); err != nil {
		common.Fail(w, http.StatusBadRequest, "invalid search request", err)
		return sp, product.Filter{}, false
	}

	sp.Query = strings.TrimSpace(sp.Query)
	if sp.Query == "" {
		common.Fail(w, http.StatusBadRequest, "query is required", nil)
		return sp, product.Filter{}, false
	}
	if sp.Limit <= 0 {
		sp.Limit = h.ctx.Config.Search.DefaultLimit
	}

	f, err := sp.Filter(r)
	if err != nil {
		common.Fail(w, http.StatusBadRequest, "invalid filter", err)
		return sp, product.Filter{}, false
	}

	client := ClientOf(r)
	for _, in := range []CheckLimitInput{
		{Aspect: AspectClientAccess, Client: client},
		{Aspect: AspectClientQuery, Client: client, Input: sp},
	} {
		if h.limited(w, r, h.limiter.Check(r.Context(), in)) {
			return sp, product.Filter{}, false
		}
	}

	return sp, f, true
}

// limited writes 429 when err is ErrLimited. Other limiter errors are logged and let through.
func (h *Handler) limited(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrLimited) {
		common.Fail(w, http.StatusTooManyRequests, "rate limit exceeded", err)
		return true
	}
	h.ctx.Logger.Warn("rate limit check failed", zap.String("client", ClientOf(r)), zap.Error(err))
	return false
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	sp, f, ok := h.bind(w, r)
	if !ok {
		return
	}

	ctx := logger.ContextWithLogger(r.Context(), h.ctx.Logger.With(zap.String("client", ClientOf(r))))
	resp := h.engine.HybridSearch(ctx, sp.Query, sp.Limit, f)
	h.record(sp.Query)
	h.render(w, resp)
}

func (h *Handler) VectorSearch(w http.ResponseWriter, r *http.Request) {
	sp, f, ok := h.bind(w, r)
	if !ok {
		return
	}

	ctx := logger.ContextWithLogger(r.Context(), h.ctx.Logger.With(zap.String("client", ClientOf(r))))
	h.render(w, h.engine.VectorOnlySearch(ctx, sp.Query, sp.Limit, f))
}

func (h *Handler) render(w http.ResponseWriter, resp search.Response) {
	if !resp.Success {
		common.JSON(w, http.StatusInternalServerError, resp)
		return
	}
	common.JSON(w, http.StatusOK, resp)
}

// record counts the query in the background; shutdown waits for it.
func (h *Handler) record(query string) {
	if h.ctx.Redis == nil {
		return
	}
	h.ctx.Watch()
	go func() {
		defer h.ctx.WaitGroup.Done()
		ctx, cancel := context.WithTimeout(h.ctx.Signal, trendingTimeout)
		defer cancel()
		if err := h.trending.Record(ctx, query); err != nil {
			h.ctx.Logger.Warn("record trending search failed", zap.Error(err))
		}
	}()
}

func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("productId"), 10, 64)
	if err != nil {
		common.Fail(w, http.StatusBadRequest, "invalid product id", err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.engine.Related(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			common.Fail(w, http.StatusNotFound, "product not found", nil)
			return
		}
		common.Fail(w, http.StatusInternalServerError, "related products failed", err)
		return
	}
	common.JSON(w, http.StatusOK, resp)
}

type CompareParam struct {
	OriginalProductID    int64 `json:"originalProductId"`
	RecommendedProductID int64 `json:"recommendedProductId"`
}

func (cp *CompareParam) FieldMap(req *http.Request) binding.FieldMap {
	return binding.FieldMap{
		&cp.OriginalProductID: binding.Field{
			Form:     "originalProductId",
			Required: true,
		},
		&cp.RecommendedProductID: binding.Field{
			Form:     "recommendedProductId",
			Required: true,
		},
	}
}

func (h *Handler) CompareMaterials(w http.ResponseWriter, r *http.Request) {
	cp := CompareParam{}
	if err := binding.Bind(r, &cp); err != nil {
		common.Fail(w, http.StatusBadRequest, "invalid compare request", err)
		return
	}

	if h.limited(w, r, h.limiter.Check(r.Context(), CheckLimitInput{Aspect: AspectClientLLM, Client: ClientOf(r)})) {
		return
	}

	resp, err := h.engine.CompareMaterials(r.Context(), cp.OriginalProductID, cp.RecommendedProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			common.Fail(w, http.StatusNotFound, "product not found", err)
			return
		}
		common.Fail(w, http.StatusInternalServerError, "compare materials failed", err)
		return
	}
	common.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	top, err := h.trending.Top(r.Context(), n)
	if err != nil {
		h.ctx.Logger.Warn("load trending searches failed", zap.Error(err))
	}

	common.JSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"trending": top,
	})
}

func (h *Handler) HttpRoute() []service.HttpRoute {
	result := []service.HttpRoute{
		service.NewHttpRoute(http.MethodPost, "/ai-search", h.Search, service.HttpMeta{
			Remark: "混合搜索",
		}),
		service.NewHttpRoute(http.MethodPost, "/vector-search", h.VectorSearch, service.HttpMeta{
			Remark: "向量搜索",
		}),
		service.NewHttpRoute(http.MethodGet, "/related-products", h.Related, service.HttpMeta{
			Remark: "相关商品",
		}),
		service.NewHttpRoute(http.MethodPost, "/compare-materials", h.CompareMaterials, service.HttpMeta{
			Remark: "材质比较",
		}),
		service.NewHttpRoute(http.MethodGet, "/trending-searches", h.Trending, service.HttpMeta{
			Remark: "热门搜索",
		}),
	}
	return result
}
