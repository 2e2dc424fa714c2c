// Package embedder computes vector embeddings for search documents via an
// OpenAI-compatible embedding API, in bounded batches.
package embedder

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leelesemann-sys/vergabe-radar/internal/config"
	"github.com/leelesemann-sys/vergabe-radar/internal/db"
	"github.com/leelesemann-sys/vergabe-radar/internal/model"
)

// providerBatchLimit caps one embedding request regardless of configuration.
const providerBatchLimit = 2048

// maxParallelBatches bounds concurrent embedding calls. Batch order does not
// affect final state; per-document accounting stays exact.
const maxParallelBatches = 4

// Embedder wraps the embedding client and the pending-document reads.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	batchSize  int
	pool       db.Pool
}

// New creates an Embedder from config.
func New(cfg config.EmbeddingConfig, pool db.Pool) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > providerBatchLimit {
		batchSize = providerBatchLimit
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		batchSize:  batchSize,
		pool:       pool,
	}
}

// Dimensions returns the configured vector dimensionality, shared with the
// index schema.
func (e *Embedder) Dimensions() int { return e.dimensions }

// EmbedQuery computes a single embedding for ad hoc query-time use.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CollectForIndex loads every document with embedding text that has not been
// published yet, embeds them in bounded batches, and returns the documents
// with vectors attached. A failed batch is logged and skipped; its documents
// stay eligible for the next run and no partial vector state is persisted.
func (e *Embedder) CollectForIndex(ctx context.Context) ([]model.SearchDocument, error) {
	log := zap.L().With(zap.String("component", "embedder"))

	docs, err := e.loadPending(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		log.Info("no documents to embed")
		return nil, nil
	}
	log.Info("embedding pending documents", zap.Int("documents", len(docs)), zap.Int("batch_size", e.batchSize))

	var (
		mu      sync.Mutex
		results []model.SearchDocument
		skipped int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelBatches)

	for start := 0; start < len(docs); start += e.batchSize {
		batch := docs[start:min(start+e.batchSize, len(docs))]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, d := range batch {
				texts[i] = d.EmbeddingText
			}

			vectors, err := e.embedBatch(gctx, texts)
			if err != nil {
				log.Error("embedding batch failed, skipping",
					zap.Int("batch_len", len(batch)),
					zap.Error(err),
				)
				mu.Lock()
				skipped += len(batch)
				mu.Unlock()
				return nil
			}

			mu.Lock()
			for i, d := range batch {
				d.Vector = vectors[i]
				results = append(results, d)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("embedding complete", zap.Int("embedded", len(results)), zap.Int("skipped", skipped))
	return results, nil
}

// embedBatch requests one vector per text, in request order.
func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "embedder: create embeddings")
	}
	if len(resp.Data) != len(texts) {
		return nil, eris.Errorf("embedder: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, eris.Errorf("embedder: vector index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// loadPending reads the display fields and embedding text of every document
// awaiting publication.
func (e *Embedder) loadPending(ctx context.Context) ([]model.SearchDocument, error) {
	rows, err := e.pool.Query(ctx, `
		SELECT id, embedding_text, title, description, buyer_name, buyer_city,
		       buyer_post_code, cpv_code_main, all_cpv_codes, contract_nature,
		       procedure_type, publication_date, deadline, estimated_value,
		       document_url, lat, lng
		FROM search_documents
		WHERE embedding_text IS NOT NULL
		  AND indexed_at IS NULL
		ORDER BY updated_at`)
	if err != nil {
		return nil, eris.Wrap(err, "embedder: query pending documents")
	}
	defer rows.Close()

	var docs []model.SearchDocument
	for rows.Next() {
		var d model.SearchDocument
		if err := rows.Scan(
			&d.ID, &d.EmbeddingText, &d.Title, &d.Description, &d.BuyerName, &d.BuyerCity,
			&d.BuyerPostCode, &d.CPVCodeMain, &d.AllCPVCodes, &d.ContractNature,
			&d.ProcedureType, &d.PublicationDate, &d.Deadline, &d.EstimatedValue,
			&d.DocumentURL, &d.Lat, &d.Lng,
		); err != nil {
			return nil, eris.Wrap(err, "embedder: scan pending document")
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "embedder: iterate pending documents")
	}

	return docs, nil
}
