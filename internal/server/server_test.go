package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leelesemann-sys/vergabe-radar/internal/config"
	"github.com/leelesemann-sys/vergabe-radar/internal/indexer"
)

type fakeSearcher struct {
	params indexer.SearchParams
	result *indexer.SearchResult
	err    error
}

func (f *fakeSearcher) Search(ctx context.Context, params indexer.SearchParams) (*indexer.SearchResult, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

func newTestServer(searcher *fakeSearcher, embedder *fakeEmbedder) *httptest.Server {
	s := New(config.ServerConfig{Port: 0}, searcher, embedder)
	return httptest.NewServer(s.Router())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeSearcher{}, &fakeEmbedder{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSearch_FullParams(t *testing.T) {
	searcher := &fakeSearcher{result: &indexer.SearchResult{Total: 1}}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	srv := newTestServer(searcher, embedder)
	defer srv.Close()

	resp, err := http.Get(srv.URL +
		"/api/search?q=Schulbau&cpv=4521&lat=52.52&lng=13.40&radius_km=25&from=2025-03-01&to=2025-03-31&size=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result indexer.SearchResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, int64(1), result.Total)

	assert.Equal(t, "Schulbau", searcher.params.Query)
	assert.Equal(t, []float32{0.1, 0.2}, searcher.params.Vector)
	assert.Equal(t, "4521", searcher.params.CPVPrefix)
	require.NotNil(t, searcher.params.Lat)
	assert.Equal(t, 52.52, *searcher.params.Lat)
	assert.Equal(t, 25.0, searcher.params.RadiusKM)
	require.NotNil(t, searcher.params.From)
	assert.Equal(t, 5, searcher.params.Size)
}

func TestSearch_EmbeddingFailureDegradesToLexical(t *testing.T) {
	searcher := &fakeSearcher{result: &indexer.SearchResult{}}
	embedder := &fakeEmbedder{err: errors.New("quota exceeded")}
	srv := newTestServer(searcher, embedder)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/search?q=Schulbau")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Schulbau", searcher.params.Query)
	assert.Nil(t, searcher.params.Vector)
}

func TestSearch_BadParams(t *testing.T) {
	srv := newTestServer(&fakeSearcher{result: &indexer.SearchResult{}}, &fakeEmbedder{})
	defer srv.Close()

	for _, path := range []string{
		"/api/search?size=abc",
		"/api/search?lat=52.52&lng=x",
		"/api/search?lat=52.52&lng=13.40&radius_km=far",
		"/api/search?lat=52.52",
		"/api/search?lng=13.40",
		"/api/search?from=March",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestSearch_SearcherError(t *testing.T) {
	srv := newTestServer(&fakeSearcher{err: errors.New("cluster down")}, &fakeEmbedder{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/search?q=x")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
