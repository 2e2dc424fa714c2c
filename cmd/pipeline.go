package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/leelesemann-sys/vergabe-radar/internal/db"
	"github.com/leelesemann-sys/vergabe-radar/internal/denormalizer"
	"github.com/leelesemann-sys/vergabe-radar/internal/enricher"
	"github.com/leelesemann-sys/vergabe-radar/internal/importer"
	"github.com/leelesemann-sys/vergabe-radar/internal/pipeline"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the ingestion pipeline",
}

var pipelineRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline for a single publication day",
	Long: `Run the full pipeline for one publication day: fetch the export,
import the datasets, denormalize into search documents, geocode, embed,
and publish to the index.

Defaults to yesterday when --date is not given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		day := time.Now().UTC().AddDate(0, 0, -1)
		if dateStr, _ := cmd.Flags().GetString("date"); dateStr != "" {
			parsed, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				return eris.Wrapf(err, "pipeline run: parse date %q", dateStr)
			}
			day = parsed
		}

		runner, cleanup, err := buildRunner(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		report := runner.RunDay(ctx, day)
		printJSON(report)

		if report.Status == pipeline.StatusError {
			return eris.Errorf("pipeline run: day %s failed: %s",
				day.Format("2006-01-02"), report.Error)
		}
		return nil
	},
}

var pipelineBackfillCmd = &cobra.Command{
	Use:   "backfill START END",
	Short: "Run the pipeline for every day in a date range",
	Long: `Run the pipeline for each publication day from START through END
inclusive (YYYY-MM-DD). A failed day is recorded and the run continues
with the next day.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		start, err := time.Parse("2006-01-02", args[0])
		if err != nil {
			return eris.Wrapf(err, "pipeline backfill: parse start %q", args[0])
		}
		end, err := time.Parse("2006-01-02", args[1])
		if err != nil {
			return eris.Wrapf(err, "pipeline backfill: parse end %q", args[1])
		}

		runner, cleanup, err := buildRunner(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := runner.RunRange(ctx, start, end)
		if err != nil {
			return eris.Wrap(err, "pipeline backfill")
		}
		printJSON(report)

		if report.Errors > 0 {
			return eris.Errorf("pipeline backfill: %d of %d days failed",
				report.Errors, len(report.Days))
		}
		return nil
	},
}

func buildRunner(cmd *cobra.Command) (*pipeline.Runner, func(), error) {
	ctx := cmd.Context()

	pool, err := openPool(ctx)
	if err != nil {
		return nil, nil, err
	}

	// Ensure migrations are current.
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	src, err := buildSource()
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	emb, err := buildEmbedder(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	idx, err := buildIndexer(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	if err := idx.EnsureIndex(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	runner := pipeline.New(
		src,
		importer.New(pool),
		denormalizer.New(pool, cfg.Pipeline.DescriptionMaxRunes),
		enricher.New(pool),
		emb,
		idx,
	)
	return runner, pool.Close, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func init() {
	pipelineRunCmd.Flags().String("date", "", "publication day to run (YYYY-MM-DD, default yesterday)")
	pipelineCmd.AddCommand(pipelineRunCmd)
	pipelineCmd.AddCommand(pipelineBackfillCmd)
	rootCmd.AddCommand(pipelineCmd)
}
