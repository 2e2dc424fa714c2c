package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leelesemann-sys/vergabe-radar/internal/config"
)

type embeddingRequest struct {
	Input []string `json:"input"`
}

// fakeEmbeddingServer returns one deterministic vector per input, failing any
// request whose first input contains failSubstr.
func fakeEmbeddingServer(t *testing.T, dims int, failSubstr string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if failSubstr != "" && len(req.Input) > 0 && strings.Contains(req.Input[0], failSubstr) {
			http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
			return
		}

		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dims)
			vec[0] = float32(len(req.Input[i]))
			data[i] = item{Object: "embedding", Index: i, Embedding: vec}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
		})
	}))
}

func testConfig(baseURL string, batchSize int) config.EmbeddingConfig {
	return config.EmbeddingConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL + "/v1",
		Model:      "text-embedding-3-small",
		Dimensions: 4,
		BatchSize:  batchSize,
	}
}

func pendingColumns() []string {
	return []string{
		"id", "embedding_text", "title", "description", "buyer_name", "buyer_city",
		"buyer_post_code", "cpv_code_main", "all_cpv_codes", "contract_nature",
		"procedure_type", "publication_date", "deadline", "estimated_value",
		"document_url", "lat", "lng",
	}
}

func pendingRow(rows *pgxmock.Rows, id, text string) {
	rows.AddRow(id, text,
		(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil),
		(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil),
		(*string)(nil), nil, nil, (*float64)(nil), (*string)(nil),
		(*float64)(nil), (*float64)(nil))
}

func TestEmbedQuery(t *testing.T) {
	srv := fakeEmbeddingServer(t, 4, "")
	defer srv.Close()

	e := New(testConfig(srv.URL, 10), nil)
	vec, err := e.EmbedQuery(context.Background(), "Schulbau Berlin")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, float32(len("Schulbau Berlin")), vec[0])
}

func TestCollectForIndex_EmbedsPending(t *testing.T) {
	srv := fakeEmbeddingServer(t, 4, "")
	defer srv.Close()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows(pendingColumns())
	pendingRow(rows, "n-1-01", "Ausschreibung: eins")
	pendingRow(rows, "n-2-01", "Ausschreibung: zwei")
	mock.ExpectQuery("SELECT id, embedding_text").WillReturnRows(rows)

	e := New(testConfig(srv.URL, 10), mock)
	docs, err := e.CollectForIndex(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, d := range docs {
		assert.Len(t, d.Vector, 4)
		assert.Equal(t, float32(len(d.EmbeddingText)), d.Vector[0])
	}
}

func TestCollectForIndex_SkipsFailedBatch(t *testing.T) {
	srv := fakeEmbeddingServer(t, 4, "kaputt")
	defer srv.Close()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows(pendingColumns())
	pendingRow(rows, "n-1-01", "Ausschreibung: gut")
	pendingRow(rows, "n-2-01", "Ausschreibung: kaputt")
	pendingRow(rows, "n-3-01", "Ausschreibung: auch gut")
	mock.ExpectQuery("SELECT id, embedding_text").WillReturnRows(rows)

	// batch size 1 so the failing document isolates into its own request
	e := New(testConfig(srv.URL, 1), mock)
	docs, err := e.CollectForIndex(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	ids := []string{docs[0].ID, docs[1].ID}
	sort.Strings(ids)
	assert.Equal(t, []string{"n-1-01", "n-3-01"}, ids)
}

func TestCollectForIndex_NothingPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, embedding_text").
		WillReturnRows(pgxmock.NewRows(pendingColumns()))

	e := New(testConfig("http://unused.invalid", 10), mock)
	docs, err := e.CollectForIndex(context.Background())
	require.NoError(t, err)
	assert.Nil(t, docs)
}

func TestNew_ClampsBatchSize(t *testing.T) {
	e := New(config.EmbeddingConfig{BatchSize: 100000}, nil)
	assert.Equal(t, providerBatchLimit, e.batchSize)

	e = New(config.EmbeddingConfig{BatchSize: 0}, nil)
	assert.Equal(t, providerBatchLimit, e.batchSize)

	e = New(config.EmbeddingConfig{BatchSize: 64}, nil)
	assert.Equal(t, 64, e.batchSize)
}
