package enricher

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leelesemann-sys/vergabe-radar/internal/db"
	"github.com/leelesemann-sys/vergabe-radar/internal/fetcher"
)

// LoadOptions configures the reference-table loader.
type LoadOptions struct {
	Latin1 bool // decode CSV input as ISO 8859-1
}

// LoadReference loads a postal-code reference file (CSV or XLSX) into
// plz_coordinates. Expected columns: plz, lat, lng (header names matched
// case-insensitively). Existing codes are updated. Returns rows upserted.
func LoadReference(ctx context.Context, pool db.Pool, path string, opts LoadOptions) (int64, error) {
	log := zap.L().With(zap.String("component", "enricher.plzload"))

	table, err := readReferenceFile(path, opts)
	if err != nil {
		return 0, err
	}

	cols := make(map[string]int, len(table.Header))
	for i, h := range table.Header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"plz", "lat", "lng"} {
		if _, ok := cols[required]; !ok {
			return 0, eris.Errorf("enricher: reference file missing column %q", required)
		}
	}

	var rows [][]any
	skipped := 0
	for _, rec := range table.Rows {
		plz := NormalizePostcode(field(rec, cols["plz"]))
		lat, latErr := strconv.ParseFloat(field(rec, cols["lat"]), 64)
		lng, lngErr := strconv.ParseFloat(field(rec, cols["lng"]), 64)
		if plz == "" || latErr != nil || lngErr != nil {
			skipped++
			continue
		}
		rows = append(rows, []any{plz, lat, lng})
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "plz_coordinates",
		Columns:      []string{"plz", "lat", "lng"},
		ConflictKeys: []string{"plz"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "enricher: upsert plz reference")
	}

	log.Info("plz reference loaded",
		zap.String("file", path),
		zap.Int64("upserted", n),
		zap.Int("skipped", skipped),
	)
	return n, nil
}

func readReferenceFile(path string, opts LoadOptions) (*fetcher.CSVTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "enricher: open reference file %s", path)
		}
		defer f.Close() //nolint:errcheck
		return fetcher.ReadCSV(f, fetcher.CSVOptions{TrimSpace: true, Latin1: opts.Latin1})
	}
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return rec[i]
}
