// Package indexer publishes search documents to Elasticsearch and records
// which documents the cluster actually accepted.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/leelesemann-sys/vergabe-radar/internal/config"
	"github.com/leelesemann-sys/vergabe-radar/internal/db"
	"github.com/leelesemann-sys/vergabe-radar/internal/model"
)

// Indexer wraps the Elasticsearch client plus the store used for
// publication bookkeeping.
type Indexer struct {
	es        *elasticsearch.Client
	index     string
	batchSize int
	dims      int
	pool      db.Pool
}

// UploadResult reports per-document publication outcomes.
type UploadResult struct {
	Succeeded []string
	Failed    int
}

// New creates an Indexer from config. dims must match the embedding
// dimensionality used to build the vectors.
func New(cfg config.IndexConfig, dims int, pool db.Pool) (*Indexer, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, eris.Wrap(err, "indexer: create elasticsearch client")
	}

	batchSize := cfg.UploadBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	return &Indexer{
		es:        es,
		index:     cfg.Name,
		batchSize: batchSize,
		dims:      dims,
		pool:      pool,
	}, nil
}

// EnsureIndex creates the index if it does not exist yet. Safe to call on
// every run.
func (ix *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := ix.es.Indices.Exists([]string{ix.index}, ix.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return eris.Wrap(err, "indexer: check index exists")
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}
	if res.StatusCode != 404 {
		return eris.Errorf("indexer: check index exists: %s", res.Status())
	}

	mapping, err := indexMapping(ix.dims)
	if err != nil {
		return err
	}

	res, err = ix.es.Indices.Create(
		ix.index,
		ix.es.Indices.Create.WithContext(ctx),
		ix.es.Indices.Create.WithBody(bytes.NewReader(mapping)),
	)
	if err != nil {
		return eris.Wrap(err, "indexer: create index")
	}
	defer res.Body.Close()
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return eris.Errorf("indexer: create index failed: %s", strings.TrimSpace(string(data)))
	}

	zap.L().Info("index created", zap.String("index", ix.index), zap.Int("dims", ix.dims))
	return nil
}

// Upload publishes documents via the bulk API in bounded batches. A batch
// whose request fails outright is skipped with a logged error; within a
// batch, per-item outcomes from the bulk response decide success. Only
// documents the cluster confirmed count as succeeded.
func (ix *Indexer) Upload(ctx context.Context, docs []model.SearchDocument) (*UploadResult, error) {
	log := zap.L().With(zap.String("component", "indexer"))
	result := &UploadResult{}

	for start := 0; start < len(docs); start += ix.batchSize {
		batch := docs[start:min(start+ix.batchSize, len(docs))]

		succeeded, failed, err := ix.uploadBatch(ctx, batch)
		if err != nil {
			log.Error("bulk request failed, skipping batch",
				zap.Int("batch_len", len(batch)),
				zap.Error(err),
			)
			result.Failed += len(batch)
			continue
		}
		result.Succeeded = append(result.Succeeded, succeeded...)
		result.Failed += failed
	}

	log.Info("upload complete",
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (ix *Indexer) uploadBatch(ctx context.Context, batch []model.SearchDocument) ([]string, int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	ids := make([]string, 0, len(batch))
	for _, doc := range batch {
		action := map[string]any{
			"index": map[string]any{"_id": doc.ID},
		}
		if err := enc.Encode(action); err != nil {
			return nil, 0, eris.Wrap(err, "indexer: encode bulk action")
		}
		if err := enc.Encode(formatDoc(doc)); err != nil {
			return nil, 0, eris.Wrap(err, "indexer: encode bulk document")
		}
		ids = append(ids, doc.ID)
	}

	res, err := ix.es.Bulk(
		bytes.NewReader(buf.Bytes()),
		ix.es.Bulk.WithContext(ctx),
		ix.es.Bulk.WithIndex(ix.index),
	)
	if err != nil {
		return nil, 0, eris.Wrap(err, "indexer: bulk request")
	}
	defer res.Body.Close()
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, 0, eris.Errorf("indexer: bulk request failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, eris.Wrap(err, "indexer: decode bulk response")
	}

	var succeeded []string
	failed := 0
	for i, item := range parsed.Items {
		outcome, ok := item["index"]
		if !ok {
			failed++
			continue
		}
		if outcome.Status >= 200 && outcome.Status < 300 {
			succeeded = append(succeeded, outcome.ID)
			continue
		}
		failed++
		if outcome.Error != nil && failed <= 3 {
			id := outcome.ID
			if id == "" && i < len(ids) {
				id = ids[i]
			}
			zap.L().Warn("document rejected",
				zap.String("id", id),
				zap.Int("status", outcome.Status),
				zap.String("reason", outcome.Error.Reason),
			)
		}
	}
	return succeeded, failed, nil
}

// MarkIndexed stamps indexed_at on the documents the cluster confirmed.
// Reruns then re-embed and republish only what is still pending.
func (ix *Indexer) MarkIndexed(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := ix.pool.Exec(ctx,
		`UPDATE search_documents SET indexed_at = now() WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, eris.Wrap(err, "indexer: mark indexed")
	}
	return tag.RowsAffected(), nil
}

// formatDoc maps a document to its index representation. Dates are UTC
// RFC3339 values; coordinates outside valid range are dropped rather than
// poisoning the whole document.
func formatDoc(doc model.SearchDocument) map[string]any {
	out := map[string]any{
		"title":           doc.Title,
		"description":     doc.Description,
		"buyer_name":      doc.BuyerName,
		"buyer_city":      doc.BuyerCity,
		"buyer_post_code": doc.BuyerPostCode,
		"cpv_code_main":   doc.CPVCodeMain,
		"contract_nature": doc.ContractNature,
		"procedure_type":  doc.ProcedureType,
		"estimated_value": doc.EstimatedValue,
		"document_url":    doc.DocumentURL,
		"content_vector":  doc.Vector,
	}

	if doc.AllCPVCodes != nil {
		out["all_cpv_codes"] = splitCodes(*doc.AllCPVCodes)
	}
	if doc.PublicationDate != nil {
		out["publication_date"] = doc.PublicationDate.UTC().Format(time.RFC3339)
	}
	if doc.Deadline != nil {
		out["deadline"] = doc.Deadline.UTC().Format(time.RFC3339)
	}
	if doc.Lat != nil && doc.Lng != nil && validCoordinate(*doc.Lat, *doc.Lng) {
		pt := geom.NewPointFlat(geom.XY, []float64{*doc.Lng, *doc.Lat})
		if raw, err := geojson.Marshal(pt); err == nil {
			out["geo_location"] = json.RawMessage(raw)
		}
	}

	return out
}

func validCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func splitCodes(codes string) []string {
	parts := strings.Split(codes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
