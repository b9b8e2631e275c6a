package product

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/mholt/binding"
	"github.com/ringbrew/gsv/service"
	"github.com/ringbrew/newaim/ecommerce/internal/delivery/common"
	"github.com/ringbrew/newaim/ecommerce/internal/domain"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
	"github.com/ringbrew/newaim/ecommerce/internal/domain/search"
	"go.uber.org/zap"
)

const (
	suggestionLimit   = 8
	newCollectionSize = 8
	popularSize       = 4
)

type Handler struct {
	ctx *domain.UseCaseContext
	uc  *product.UseCase
}

func NewHandler(ctx *domain.UseCaseContext, uc *product.UseCase) *Handler {
	return &Handler{
		ctx: ctx,
		uc:  uc,
	}
}

type AddParam struct {
	Name        string   `json:"name"`
	Image       string   `json:"image"`
	Category    string   `json:"category"`
	Categories  []string `json:"categories"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	NewPrice    float64  `json:"new_price"`
	OldPrice    float64  `json:"old_price"`
	Available   *bool    `json:"available"`
}

func (ap *AddParam) FieldMap(req *http.Request) binding.FieldMap {
	return binding.FieldMap{
		&ap.Name: binding.Field{
			Form:     "name",
			Required: true,
		},
		&ap.Image: "image",
		&ap.Category: binding.Field{
			Form:     "category",
			Required: true,
		},
		&ap.Categories:  "categories",
		&ap.Tags:        "tags",
		&ap.Description: "description",
		&ap.NewPrice:    "new_price",
		&ap.OldPrice:    "old_price",
	}
}

func (ap *AddParam) Product() product.Product {
	p := product.Product{
		Name:        ap.Name,
		Image:       ap.Image,
		Category:    ap.Category,
		Categories:  ap.Categories,
		Tags:        ap.Tags,
		Description: ap.Description,
		NewPrice:    ap.NewPrice,
		OldPrice:    ap.OldPrice,
		Available:   true,
	}
	if ap.Available != nil {
		p.Available = *ap.Available
	}
	p.NormalizeCategories()
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	ap := AddParam{}
	if err := binding.Bind(r, &ap); err != nil {
		common.Fail(w, http.StatusBadRequest, "invalid product", err)
		return
	}

	p, hasVector, err := h.uc.Add(r.Context(), ap.Product())
	if err != nil {
		if errors.Is(err, product.ErrInvalidProduct) {
			common.Fail(w, http.StatusBadRequest, "invalid product", err)
			return
		}
		h.ctx.Logger.Error("add product failed", zap.String("name", ap.Name), zap.Error(err))
		common.Fail(w, http.StatusInternalServerError, "add product failed", err)
		return
	}

	message := "product added with vector embedding"
	if !hasVector {
		message = "product added without vector embedding, semantic search will not find it"
	}

	common.JSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"id":         p.Id,
		"name":       p.Name,
		"has_vector": hasVector,
		"message":    message,
	})
}

type IDParam struct {
	Id int64 `json:"id"`
}

func (ip *IDParam) FieldMap(req *http.Request) binding.FieldMap {
	return binding.FieldMap{
		&ip.Id: binding.Field{
			Form:     "id",
			Required: true,
		},
	}
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	ip := IDParam{}
	if err := binding.Bind(r, &ip); err != nil {
		common.Fail(w, http.StatusBadRequest, "invalid product id", err)
		return
	}

	if err := h.uc.Remove(r.Context(), ip.Id); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			common.Fail(w, http.StatusNotFound, "product not found", err)
			return
		}
		common.Fail(w, http.StatusInternalServerError, "remove product failed", err)
		return
	}

	common.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      ip.Id,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	data, err := h.uc.List(r.Context())
	if err != nil {
		common.Fail(w, http.StatusInternalServerError, "list products failed", err)
		return
	}

	common.JSON(w, http.StatusOK, common.QueryResult{
		Total: int64(len(data)),
		Data:  data,
	})
}

// NewCollection returns the most recently added available products.
func (h *Handler) NewCollection(w http.ResponseWriter, r *http.Request) {
	data, err := h.uc.FindAvailable(r.Context(), product.Filter{})
	if err != nil {
		common.Fail(w, http.StatusInternalServerError, "list products failed", err)
		return
	}

	sort.SliceStable(data, func(i, j int) bool { return data[i].Id > data[j].Id })
	if len(data) > newCollectionSize {
		data = data[:newCollectionSize]
	}
	common.JSON(w, http.StatusOK, data)
}

func (h *Handler) PopularInWomen(w http.ResponseWriter, r *http.Request) {
	data, err := h.uc.FindAvailable(r.Context(), product.Filter{Category: "women"})
	if err != nil {
		common.Fail(w, http.StatusInternalServerError, "list products failed", err)
		return
	}

	if len(data) > popularSize {
		data = data[:popularSize]
	}
	common.JSON(w, http.StatusOK, data)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("productId"), 10, 64)
	if err != nil {
		common.Fail(w, http.StatusBadRequest, "invalid product id", err)
		return
	}

	p, err := h.uc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			common.Fail(w, http.StatusNotFound, "product not found", nil)
			return
		}
		common.Fail(w, http.StatusInternalServerError, "get product failed", err)
		return
	}

	p.Embedding = nil
	common.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"product": p,
	})
}

type QueryParam struct {
	Query string `json:"query"`
}

func (qp *QueryParam) FieldMap(req *http.Request) binding.FieldMap {
	return binding.FieldMap{
		&qp.Query: "query",
	}
}

func (h *Handler) Exact(w http.ResponseWriter, r *http.Request) {
	qp := QueryParam{}
	if err := binding.Bind(r, &qp); err != nil {
		common.Fail(w, http.StatusBadRequest, "invalid query", err)
		return
	}
	qp.Query = strings.TrimSpace(qp.Query)
	if qp.Query == "" {
		common.Fail(w, http.StatusBadRequest, "query is required", nil)
		return
	}

	p, err := h.uc.ExactMatch(r.Context(), qp.Query)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			common.JSON(w, http.StatusOK, map[string]interface{}{
				"success":      true,
				"query":        qp.Query,
				"totalResults": 0,
				"results":      []product.Product{},
				"breakdown":    map[string]interface{}{"search_method": search.MethodExactName},
			})
			return
		}
		common.Fail(w, http.StatusInternalServerError, "exact search failed", err)
		return
	}

	common.JSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"query":        qp.Query,
		"totalResults": 1,
		"results":      []product.Product{p},
		"breakdown":    map[string]interface{}{"search_method": search.MethodExactName},
	})
}

func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	qp := QueryParam{}
	if err := binding.Bind(r, &qp); err != nil {
		common.Fail(w, http.StatusBadRequest, "invalid query", err)
		return
	}

	common.JSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": h.uc.Suggest(r.Context(), qp.Query, suggestionLimit),
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.uc.Count(r.Context())
	if err != nil {
		common.Fail(w, http.StatusServiceUnavailable, "catalog unreachable", err)
		return
	}
	indexed, err := h.uc.IndexedCount(r.Context())
	if err != nil {
		h.ctx.Logger.Warn("text index count failed", zap.Error(err))
		indexed = -1
	}

	common.JSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"products":        count,
		"indexedProducts": indexed,
		"semanticSearch":  h.uc.SemanticEnabled(),
	})
}

func (h *Handler) HttpRoute() []service.HttpRoute {
	result := []service.HttpRoute{
		service.NewHttpRoute(http.MethodPost, "/addproduct", h.Add, service.HttpMeta{
			Remark: "添加商品",
		}),
		service.NewHttpRoute(http.MethodPost, "/removeproduct", h.Remove, service.HttpMeta{
			Remark: "删除商品",
		}),
		service.NewHttpRoute(http.MethodGet, "/allproduct", h.List, service.HttpMeta{
			Remark: "商品列表",
		}),
		service.NewHttpRoute(http.MethodGet, "/newcollection", h.NewCollection, service.HttpMeta{
			Remark: "最新商品",
		}),
		service.NewHttpRoute(http.MethodGet, "/popularinwomen", h.PopularInWomen, service.HttpMeta{
			Remark: "女装热门",
		}),
		service.NewHttpRoute(http.MethodGet, "/product", h.Get, service.HttpMeta{
			Remark: "查询商品",
		}),
		service.NewHttpRoute(http.MethodPost, "/exact-search", h.Exact, service.HttpMeta{
			Remark: "商品名精确查询",
		}),
		service.NewHttpRoute(http.MethodPost, "/search-suggestions", h.Suggest, service.HttpMeta{
			Remark: "搜索建议",
		}),
		service.NewHttpRoute(http.MethodGet, "/health", h.Health, service.HttpMeta{
			Remark: "健康检查",
		}),
	}
	return result
}
