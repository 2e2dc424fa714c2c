package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leelesemann-sys/vergabe-radar/internal/fetcher"
)

// importOrder lists the nine export datasets in foreign-key dependency order.
// Notices first; every other table references (notice_identifier, notice_version).
var importOrder = []string{
	"notice",
	"procedure",
	"lot",
	"purpose",
	"classification",
	"organisation",
	"placeOfPerformance",
	"submissionTerms",
	"tender",
}

// ProviderOptions configures a provider's HTTP access.
type ProviderOptions struct {
	BaseURL string
	Fetcher fetcher.Fetcher
}

// OeffentlicheVergabe fetches daily csv.zip exports from the
// oeffentlichevergabe.de notice-export API.
type OeffentlicheVergabe struct {
	baseURL string
	fetcher fetcher.Fetcher
}

// NewOeffentlicheVergabe creates the oeffentlichevergabe.de provider.
func NewOeffentlicheVergabe(opts ProviderOptions) *OeffentlicheVergabe {
	return &OeffentlicheVergabe{
		baseURL: opts.BaseURL,
		fetcher: opts.Fetcher,
	}
}

// Name implements Source.
func (s *OeffentlicheVergabe) Name() string { return "oeffentlichevergabe" }

// ImportOrder implements Source.
func (s *OeffentlicheVergabe) ImportOrder() []string {
	out := make([]string, len(importOrder))
	copy(out, importOrder)
	return out
}

// Fetch implements Source. The API answers HTTP 400 on days without
// publications (weekends, holidays); that is reported as an empty result,
// not an error.
func (s *OeffentlicheVergabe) Fetch(ctx context.Context, day time.Time) (map[string]*Dataset, error) {
	log := zap.L().With(zap.String("component", "source.oeffentlichevergabe"))

	params := url.Values{}
	params.Set("pubDay", day.Format("2006-01-02"))
	params.Set("format", "csv.zip")
	exportURL := s.baseURL + "?" + params.Encode()

	log.Info("downloading day export", zap.String("day", day.Format("2006-01-02")))

	body, err := s.fetcher.Download(ctx, exportURL)
	if err != nil {
		var statusErr *fetcher.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
			log.Info("no data published for day", zap.String("day", day.Format("2006-01-02")))
			return map[string]*Dataset{}, nil
		}
		return nil, eris.Wrapf(err, "source: download export for %s", day.Format("2006-01-02"))
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "source: read export body")
	}

	log.Info("downloaded export", zap.Int("bytes", len(data)))

	members, err := fetcher.UnzipByExtension(data, ".csv")
	if err != nil {
		return nil, eris.Wrap(err, "source: unpack export archive")
	}

	result := make(map[string]*Dataset, len(members))
	for name, content := range members {
		table, err := fetcher.ReadCSV(bytes.NewReader(content), fetcher.CSVOptions{LazyQuotes: true})
		if err != nil {
			return nil, eris.Wrapf(err, "source: parse %s.csv", name)
		}
		result[name] = &Dataset{Name: name, Header: table.Header, Rows: table.Rows}
		log.Info("parsed dataset", zap.String("dataset", name), zap.Int("rows", len(table.Rows)))
	}

	return result, nil
}
