package fetcher

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testFetcher(maxRetries int) *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		MaxRetries: maxRetries,
		RateLimiters: map[string]*rate.Limiter{
			"127.0.0.1": rate.NewLimiter(rate.Inf, 1),
		},
	})
}

func TestDownload_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vergabe-radar/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	body, err := testFetcher(1).Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDownload_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testFetcher(3).Download(context.Background(), srv.URL)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestDownload_ServerErrorRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testFetcher(3).Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, 3, calls)
}

func TestDownload_RetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testFetcher(2).Download(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	in := "a,b,c\n1,2,3\n4,5\n"
	table, err := ReadCSV(strings.NewReader(in), CSVOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, table.Header)
	assert.Equal(t, 2, table.Len())
	// short records are kept as-is
	assert.Equal(t, []string{"4", "5"}, table.Rows[1])
}

func TestReadCSV_Options(t *testing.T) {
	in := "# comment\na; b\n x ;y\n"
	table, err := ReadCSV(strings.NewReader(in), CSVOptions{
		Delimiter: ';',
		Comment:   '#',
		TrimSpace: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, table.Header)
	assert.Equal(t, []string{"x", "y"}, table.Rows[0])
}

func TestReadCSV_Latin1(t *testing.T) {
	// "Straße" in ISO 8859-1: ß is 0xDF
	in := append([]byte("ort\nStra"), 0xDF, 'e', '\n')
	table, err := ReadCSV(bytes.NewReader(in), CSVOptions{Latin1: true})
	require.NoError(t, err)
	assert.Equal(t, "Straße", table.Rows[0][0])
}

func TestUnzipByExtension(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"notice.csv": "id\n1\n",
		"readme.txt": "ignored",
	} {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	members, err := UnzipByExtension(buf.Bytes(), ".csv")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "id\n1\n", string(members["notice"]))
}

func TestUnzipByExtension_BadArchive(t *testing.T) {
	_, err := UnzipByExtension([]byte("nope"), ".csv")
	assert.Error(t, err)
}
