// Package importer loads parsed export datasets into the normalized relations.
//
// Every row is inserted independently: a primary-key or foreign-key violation
// counts as a duplicate/orphan, any other failure counts as an error, and
// neither aborts the batch. Re-running an already-imported day is a no-op
// that reports only duplicates.
package importer

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/leelesemann-sys/vergabe-radar/internal/db"
	"github.com/leelesemann-sys/vergabe-radar/internal/source"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Stats reports the outcome of importing one dataset.
type Stats struct {
	Imported   int  `json:"imported"`
	Duplicates int  `json:"duplicates"`
	Errors     int  `json:"errors"`
	Missing    bool `json:"missing,omitempty"`
}

// Importer writes export datasets into the relational store.
type Importer struct {
	pool db.Pool
}

// New creates an Importer on the given pool.
func New(pool db.Pool) *Importer {
	return &Importer{pool: pool}
}

// ImportAll imports every dataset present in data, in the given dependency
// order. Datasets missing from the day's export are reported as Missing.
func (im *Importer) ImportAll(ctx context.Context, data map[string]*source.Dataset, order []string) (map[string]Stats, error) {
	log := zap.L().With(zap.String("component", "importer"))

	stats := make(map[string]Stats, len(order))
	for _, name := range order {
		ds, ok := data[name]
		if !ok {
			log.Info("dataset not in export (optional)", zap.String("dataset", name))
			stats[name] = Stats{Missing: true}
			continue
		}

		s, err := im.importDataset(ctx, ds)
		if err != nil {
			return stats, err
		}
		stats[name] = s

		log.Info("dataset imported",
			zap.String("dataset", name),
			zap.Int("imported", s.Imported),
			zap.Int("duplicates", s.Duplicates),
			zap.Int("errors", s.Errors),
		)
	}
	return stats, nil
}

// importDataset inserts one dataset row by row. Context cancellation is the
// only condition that aborts the loop; data problems are counted and skipped.
func (im *Importer) importDataset(ctx context.Context, ds *source.Dataset) (Stats, error) {
	log := zap.L().With(zap.String("component", "importer"), zap.String("dataset", ds.Name))

	def, ok := tableDefs[ds.Name]
	if !ok {
		log.Warn("no table definition for dataset, skipping")
		return Stats{}, nil
	}

	idx := make(map[string]int, len(ds.Header))
	for i, col := range ds.Header {
		idx[strings.TrimSpace(col)] = i
	}

	insertSQL := def.insertSQL()

	var s Stats
	for _, rec := range ds.Rows {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		args := def.build(row{rec: rec, idx: idx})
		if _, err := im.pool.Exec(ctx, insertSQL, args...); err != nil {
			switch classifyInsertErr(err) {
			case rowDuplicate:
				s.Duplicates++
			default:
				s.Errors++
				if s.Errors <= 3 {
					log.Warn("row insert failed", zap.Error(err))
				}
			}
			continue
		}
		s.Imported++
	}

	return s, nil
}

type rowOutcome int

const (
	rowError rowOutcome = iota
	rowDuplicate
)

// classifyInsertErr separates expected duplicate/orphan rows from real errors.
// An FK violation means the parent row is absent, which on re-runs and partial
// exports is the same recoverable condition as a duplicate key.
func classifyInsertErr(err error) rowOutcome {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return rowDuplicate
		}
	}
	return rowError
}
