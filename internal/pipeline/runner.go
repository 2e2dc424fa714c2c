// Package pipeline orchestrates the daily ingestion run: fetch the export,
// import the relational datasets, denormalize into search documents, geocode,
// embed, and publish to the index.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leelesemann-sys/vergabe-radar/internal/importer"
	"github.com/leelesemann-sys/vergabe-radar/internal/indexer"
	"github.com/leelesemann-sys/vergabe-radar/internal/model"
	"github.com/leelesemann-sys/vergabe-radar/internal/source"
)

// Stage interfaces keep the runner testable; the concrete types in importer,
// denormalizer, enricher, embedder, and indexer satisfy them.
type (
	ImportStage interface {
		ImportAll(ctx context.Context, data map[string]*source.Dataset, order []string) (map[string]importer.Stats, error)
	}
	DenormalizeStage interface {
		Refresh(ctx context.Context) (int, error)
	}
	EnrichStage interface {
		Run(ctx context.Context) (int, error)
	}
	EmbedStage interface {
		CollectForIndex(ctx context.Context) ([]model.SearchDocument, error)
	}
	IndexStage interface {
		Upload(ctx context.Context, docs []model.SearchDocument) (*indexer.UploadResult, error)
		MarkIndexed(ctx context.Context, ids []string) (int64, error)
	}
)

// Runner wires the stages into day and range runs.
type Runner struct {
	source      source.Source
	importer    ImportStage
	denormalize DenormalizeStage
	enrich      EnrichStage
	embed       EmbedStage
	index       IndexStage
}

// New creates a Runner over the given stages.
func New(src source.Source, imp ImportStage, den DenormalizeStage, enr EnrichStage, emb EmbedStage, idx IndexStage) *Runner {
	return &Runner{
		source:      src,
		importer:    imp,
		denormalize: den,
		enrich:      enr,
		embed:       emb,
		index:       idx,
	}
}

// RunDay executes the full pipeline for one publication day. A day with no
// published export short-circuits with StatusNoData; nothing downstream runs.
func (r *Runner) RunDay(ctx context.Context, day time.Time) DayReport {
	started := time.Now()
	report := DayReport{
		RunID: uuid.New(),
		Day:   day,
	}
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("run_id", report.RunID.String()),
		zap.String("day", day.Format("2006-01-02")),
	)
	log.Info("run started")

	fail := func(err error) DayReport {
		report.Status = StatusError
		report.Error = eris.ToString(err, false)
		report.Elapsed = time.Since(started)
		log.Error("run failed", zap.Error(err))
		return report
	}

	data, err := r.source.Fetch(ctx, day)
	if err != nil {
		return fail(err)
	}
	if len(data) == 0 {
		report.Status = StatusNoData
		report.Elapsed = time.Since(started)
		log.Info("no export published for day")
		return report
	}
	for _, ds := range data {
		report.Fetched += ds.Len()
	}

	report.Import, err = r.importer.ImportAll(ctx, data, r.source.ImportOrder())
	if err != nil {
		return fail(err)
	}

	report.Denormalized, err = r.denormalize.Refresh(ctx)
	if err != nil {
		return fail(err)
	}

	report.Geocoded, err = r.enrich.Run(ctx)
	if err != nil {
		return fail(err)
	}

	docs, err := r.embed.CollectForIndex(ctx)
	if err != nil {
		return fail(err)
	}
	report.Embedded = len(docs)

	if len(docs) > 0 {
		result, err := r.index.Upload(ctx, docs)
		if err != nil {
			return fail(err)
		}
		report.Indexed = len(result.Succeeded)
		report.IndexFailed = result.Failed

		if _, err := r.index.MarkIndexed(ctx, result.Succeeded); err != nil {
			return fail(err)
		}
	}

	report.Status = StatusOK
	report.Elapsed = time.Since(started)
	log.Info("run complete",
		zap.Int("fetched", report.Fetched),
		zap.Int("denormalized", report.Denormalized),
		zap.Int("geocoded", report.Geocoded),
		zap.Int("embedded", report.Embedded),
		zap.Int("indexed", report.Indexed),
		zap.Int("index_failed", report.IndexFailed),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report
}

// RunRange runs each day from start through end inclusive. One day's failure
// is recorded and the next day still runs; only context cancellation stops
// the loop early.
func (r *Runner) RunRange(ctx context.Context, start, end time.Time) (*RangeReport, error) {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		return nil, eris.Errorf("pipeline: end %s before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	report := &RangeReport{}
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.add(r.RunDay(ctx, day))
	}

	zap.L().Info("range run complete",
		zap.Int("days", len(report.Days)),
		zap.Int("ok", report.OK),
		zap.Int("no_data", report.NoData),
		zap.Int("errors", report.Errors),
	)
	return report, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
