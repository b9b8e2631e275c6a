package product

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/ringbrew/newaim/ecommerce/internal/domain"
	"go.uber.org/zap"
)

type ESResponse struct {
	Took     int             `json:"took"`
	TimedOut bool            `json:"timed_out"`
	Shards   ESShardResponse `json:"_shards"`
	Hits     ESHitResponse   `json:"hits"`
}

type ESShardResponse struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

type Hit struct {
	Index  string          `json:"_index"`
	Id     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
	Score  float64         `json:"_score"`
}

type ESHitResponse struct {
	Total struct {
		Value    int64  `json:"value"`
		Relation string `json:"relation"`
	} `json:"total"`
	Hits []Hit `json:"hits"`
}

// lexicalFields are matched by every keyword token; a token may hit any one of them.
var lexicalFields = []string{"name.raw", "description.raw", "category", "categories", "tags"}

type ESIndex struct {
	es     *elasticsearch.Client
	index  string
	logger *zap.Logger
}

func NewESIndex(ctx *domain.UseCaseContext) (*ESIndex, error) {
	r := &ESIndex{
		es:     ctx.ElasticSearch,
		index:  ctx.Config.ElasticSearch.Index,
		logger: ctx.Logger,
	}

	if exist, err := r.CheckIndexExist(context.Background(), r.index); err != nil {
		return nil, err
	} else if !exist {
		if err := r.CreateIndexES(context.Background(), r.index, productMapping); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *ESIndex) Search(ctx context.Context, tokens []string, f Filter, size int) ([]Product, error) {
	if len(tokens) == 0 || size <= 0 {
		return []Product{}, nil
	}

	must := make([]map[string]interface{}, 0, len(tokens))
	for _, t := range tokens {
		should := make([]map[string]interface{}, 0, len(lexicalFields))
		for _, field := range lexicalFields {
			should = append(should, map[string]interface{}{
				"wildcard": map[string]interface{}{
					field: map[string]interface{}{
						"value":            "*" + escapeWildcard(t) + "*",
						"case_insensitive": true,
					},
				},
			})
		}
		must = append(must, map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               should,
				"minimum_should_match": 1,
			},
		})
	}

	query := map[string]interface{}{
		"sort": []interface{}{
			map[string]interface{}{
				"id": "asc",
			},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": esFilter(f),
			},
		},
	}

	data, err := r.searchFromES(ctx, r.index, 0, int64(size), query)
	if err != nil {
		return nil, err
	}

	result := make([]Product, 0, len(data.Hits.Hits))
	for _, hit := range data.Hits.Hits {
		var p Product
		if err := json.Unmarshal(hit.Source, &p); err != nil {
			return nil, fmt.Errorf("decode hit %s: %w", hit.Id, err)
		}
		result = append(result, p)
	}

	return result, nil
}

func esFilter(f Filter) []map[string]interface{} {
	filter := []map[string]interface{}{
		{"term": map[string]interface{}{"available": true}},
	}

	if f.Category != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"category": f.Category},
		})
	}

	if f.HasPrice() {
		price := map[string]interface{}{}
		if f.MinPrice != nil {
			price["gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["lte"] = *f.MaxPrice
		}
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"new_price": price},
		})
	}

	if len(f.Categories) > 0 {
		filter = append(filter, map[string]interface{}{
			"terms": map[string]interface{}{"categories": f.Categories},
		})
	}

	return filter
}

func escapeWildcard(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`).Replace(s)
}

func (r *ESIndex) Index(ctx context.Context, p Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: strconv.FormatInt(p.Id, 10),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	resp, err := req.Do(ctx, r.es)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return fmt.Errorf("index product %d: %s", p.Id, resp.Status())
	}
	return nil
}

func (r *ESIndex) Delete(ctx context.Context, id int64) error {
	req := esapi.DeleteRequest{
		Index:      r.index,
		DocumentID: strconv.FormatInt(id, 10),
		Refresh:    "true",
	}

	resp, err := req.Do(ctx, r.es)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.IsError() && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete product %d: %s", id, resp.Status())
	}
	return nil
}

// Rebuild drops the index and bulk indexes ps into a fresh one.
func (r *ESIndex) Rebuild(ctx context.Context, ps []Product) error {
	if err := r.DeleteIndexES(ctx, r.index); err != nil {
		return err
	}
	if err := r.CreateIndexES(ctx, r.index, productMapping); err != nil {
		return err
	}

	bi, err := r.BulkIndex(r.index)
	if err != nil {
		return err
	}

	for _, v := range ps {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}

		if err := bi.Add(
			ctx,
			esutil.BulkIndexerItem{
				Action:     "index",
				DocumentID: strconv.FormatInt(v.Id, 10),
				Body:       bytes.NewReader(data),
				OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
					if err != nil {
						r.logger.Error("bulk index failed", zap.String("id", item.DocumentID), zap.Error(err))
					} else {
						r.logger.Error("bulk index failed", zap.String("id", item.DocumentID),
							zap.String("type", res.Error.Type), zap.String("reason", res.Error.Reason))
					}
				},
			},
		); err != nil {
			return err
		}
	}

	return bi.Close(ctx)
}

func (r *ESIndex) BulkIndex(indexName string) (esutil.BulkIndexer, error) {
	return esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         indexName,
		Client:        r.es,
		NumWorkers:    1,
		FlushBytes:    int(5e+6),
		FlushInterval: 30 * time.Second,
		Refresh:       "true",
	})
}

func (r *ESIndex) searchFromES(ctx context.Context, index string, from, size int64, query map[string]interface{}) (ESResponse, error) {
	var buf bytes.Buffer
	var result ESResponse
	query["from"] = from
	query["size"] = size

	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return result, err
	}

	res, err := r.es.Search(
		r.es.Search.WithContext(ctx),
		r.es.Search.WithIndex(index),
		r.es.Search.WithBody(&buf),
		r.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return result, err
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return result, fmt.Errorf("error parsing the error response body: %s", err.Error())
		}
		if errInfo, exist := e["error"]; exist {
			if ei, ok := errInfo.(map[string]interface{}); ok {
				return result, fmt.Errorf("error query from es,status[%s] type[%v],reason[%v]", res.Status(), ei["type"], ei["reason"])
			}
		}
		return result, fmt.Errorf("error query from es, status[%s]", res.Status())
	}

	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("error parsing the response body: %s", err)
	}

	return result, nil
}

/*
@desc: product mapping
*/
var productMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id": map[string]interface{}{
				"type": "long",
			},
			"name": map[string]interface{}{
				"type": "text",
				"fields": map[string]interface{}{
					"raw": map[string]interface{}{"type": "keyword", "ignore_above": 512},
				},
			},
			"description": map[string]interface{}{
				"type": "text",
				"fields": map[string]interface{}{
					"raw": map[string]interface{}{"type": "keyword", "ignore_above": 8191},
				},
			},
			"category": map[string]interface{}{
				"type": "keyword",
			},
			"categories": map[string]interface{}{
				"type": "keyword",
			},
			"tags": map[string]interface{}{
				"type": "keyword",
			},
			"image": map[string]interface{}{
				"type":  "keyword",
				"index": false,
			},
			"new_price": map[string]interface{}{
				"type": "double",
			},
			"old_price": map[string]interface{}{
				"type": "double",
			},
			"available": map[string]interface{}{
				"type": "boolean",
			},
			"date": map[string]interface{}{
				"type": "date",
			},
		},
	},
}

func (r *ESIndex) CheckIndexExist(ctx context.Context, idx string) (bool, error) {
	req := esapi.IndicesExistsRequest{
		Index: []string{idx},
	}

	resp, err := req.Do(ctx, r.es)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode != http.StatusNotFound, nil
}

func (r *ESIndex) CreateIndexES(ctx context.Context, idx string, mapping map[string]interface{}) error {
	b, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	req := esapi.IndicesCreateRequest{
		Index: idx,
		Body:  bytes.NewReader(b),
	}

	resp, err := req.Do(ctx, r.es)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	r.logger.Info("elasticsearch index created", zap.String("index", idx), zap.ByteString("response", data))
	return nil
}

func (r *ESIndex) DeleteIndexES(ctx context.Context, index string) error {
	req := esapi.IndicesDeleteRequest{
		Index: []string{index},
	}

	resp, err := req.Do(ctx, r.es)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	r.logger.Info("elasticsearch index deleted", zap.String("index", index), zap.ByteString("response", data))
	return nil
}

func (r *ESIndex) Count(ctx context.Context) (int64, error) {
	req := esapi.CountRequest{
		Index: []string{r.index},
	}

	resp, err := req.Do(ctx, r.es)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return 0, fmt.Errorf("count index %s: %s", r.index, resp.Status())
	}

	var count struct {
		Count int64 `json:"count"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		return 0, err
	}

	return count.Count, nil
}
