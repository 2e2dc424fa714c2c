package indexer

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// indexMapping builds the index definition. The vector dimensionality must
// match the embedding configuration; a mismatch is rejected at publish time
// by the cluster, not here.
func indexMapping(dims int) ([]byte, error) {
	def := map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"_meta": map[string]any{
				"semantic": map[string]any{
					"title_field":    "title",
					"content_field":  "description",
					"keyword_fields": []string{"cpv_code_main", "buyer_name"},
					"vector_field":   "content_vector",
				},
			},
			"properties": map[string]any{
				"title": map[string]any{
					"type":     "text",
					"analyzer": "german",
				},
				"description": map[string]any{
					"type":     "text",
					"analyzer": "german",
				},
				"buyer_name": map[string]any{
					"type":   "text",
					"fields": map[string]any{"keyword": map[string]any{"type": "keyword"}},
				},
				"buyer_city":      map[string]any{"type": "keyword"},
				"buyer_post_code": map[string]any{"type": "keyword"},
				"cpv_code_main":   map[string]any{"type": "keyword"},
				"all_cpv_codes":   map[string]any{"type": "keyword"},
				"contract_nature": map[string]any{"type": "keyword"},
				"procedure_type":  map[string]any{"type": "keyword"},
				"publication_date": map[string]any{
					"type": "date",
				},
				"deadline": map[string]any{
					"type": "date",
				},
				"estimated_value": map[string]any{"type": "double"},
				"document_url":    map[string]any{"type": "keyword", "index": false},
				"geo_location":    map[string]any{"type": "geo_point"},
				"content_vector": map[string]any{
					"type":       "dense_vector",
					"dims":       dims,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(def); err != nil {
		return nil, eris.Wrap(err, "indexer: encode index mapping")
	}
	return buf.Bytes(), nil
}
