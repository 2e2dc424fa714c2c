package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// SearchParams narrow a hybrid query against the notice index.
type SearchParams struct {
	Query     string
	Vector    []float32
	Lat       *float64
	Lng       *float64
	RadiusKM  float64
	CPVPrefix string
	From      *time.Time
	To        *time.Time
	Offset    int
	Size      int
}

// Hit is one search result.
type Hit struct {
	ID              string   `json:"id"`
	Score           float64  `json:"score"`
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	BuyerName       *string  `json:"buyer_name"`
	BuyerCity       *string  `json:"buyer_city"`
	CPVCodeMain     *string  `json:"cpv_code_main"`
	ContractNature  *string  `json:"contract_nature"`
	ProcedureType   *string  `json:"procedure_type"`
	PublicationDate *string  `json:"publication_date"`
	Deadline        *string  `json:"deadline"`
	EstimatedValue  *float64 `json:"estimated_value"`
	DocumentURL     *string  `json:"document_url"`
}

// SearchResult bundles hits and total count.
type SearchResult struct {
	Total int64 `json:"total"`
	Hits  []Hit `json:"hits"`
}

// Search runs a hybrid query: lexical multi_match over the German-analyzed
// text fields plus an optional knn clause over the content vector, with
// geo, CPV prefix, and publication date filters.
func (ix *Indexer) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Size <= 0 {
		params.Size = 20
	}
	if params.Size > 100 {
		params.Size = 100
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	filters := make([]map[string]any, 0, 3)
	if params.CPVPrefix != "" {
		filters = append(filters, map[string]any{
			"prefix": map[string]any{"cpv_code_main": params.CPVPrefix},
		})
	}
	if params.Lat != nil && params.Lng != nil && params.RadiusKM > 0 {
		filters = append(filters, map[string]any{
			"geo_distance": map[string]any{
				"distance":     fmt.Sprintf("%.1fkm", params.RadiusKM),
				"geo_location": map[string]any{"lat": *params.Lat, "lon": *params.Lng},
			},
		})
	}
	if params.From != nil || params.To != nil {
		rangeQuery := map[string]any{}
		if params.From != nil {
			rangeQuery["gte"] = params.From.UTC().Format(time.RFC3339)
		}
		if params.To != nil {
			rangeQuery["lte"] = params.To.UTC().Format(time.RFC3339)
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{"publication_date": rangeQuery},
		})
	}

	boolQuery := map[string]any{}
	if params.Query != "" {
		boolQuery["must"] = []map[string]any{
			{
				"multi_match": map[string]any{
					"query":  params.Query,
					"fields": []string{"title^3", "description", "buyer_name^2"},
				},
			},
		}
	} else {
		boolQuery["must"] = []map[string]any{
			{"match_all": map[string]any{}},
		}
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	body := map[string]any{
		"from":             params.Offset,
		"size":             params.Size,
		"track_total_hits": true,
		"query":            map[string]any{"bool": boolQuery},
	}

	if len(params.Vector) > 0 {
		knn := map[string]any{
			"field":          "content_vector",
			"query_vector":   params.Vector,
			"k":              params.Size + params.Offset,
			"num_candidates": 10 * (params.Size + params.Offset),
		}
		if len(filters) > 0 {
			knn["filter"] = filters
		}
		body["knn"] = knn
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "indexer: marshal search body")
	}

	res, err := ix.es.Search(
		ix.es.Search.WithContext(ctx),
		ix.es.Search.WithIndex(ix.index),
		ix.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, eris.Wrap(err, "indexer: search request")
	}
	defer res.Body.Close()
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, eris.Errorf("indexer: search failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source Hit     `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, eris.Wrap(err, "indexer: decode search response")
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hit := h.Source
		hit.ID = h.ID
		hit.Score = h.Score
		hits = append(hits, hit)
	}

	return &SearchResult{Total: parsed.Hits.Total.Value, Hits: hits}, nil
}
