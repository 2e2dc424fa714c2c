package main

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leelesemann-sys/vergabe-radar/internal/indexer"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search published notices",
	Long: `Run a hybrid search against the notice index. The query text is
embedded for the vector clause and matched against the German-analyzed
text fields.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")

		idx, err := indexer.New(cfg.Index, cfg.Embedding.Dimensions, nil)
		if err != nil {
			return err
		}

		params, err := searchParams(cmd, query)
		if err != nil {
			return err
		}

		if cfg.Embedding.APIKey != "" {
			emb, err := buildEmbedder(nil)
			if err != nil {
				return err
			}
			vector, err := emb.EmbedQuery(ctx, query)
			if err != nil {
				zap.L().Warn("query embedding failed, lexical-only search", zap.Error(err))
			} else {
				params.Vector = vector
			}
		}

		result, err := idx.Search(ctx, params)
		if err != nil {
			return eris.Wrap(err, "search")
		}

		printJSON(result)
		return nil
	},
}

func searchParams(cmd *cobra.Command, query string) (indexer.SearchParams, error) {
	params := indexer.SearchParams{Query: query}
	params.CPVPrefix, _ = cmd.Flags().GetString("cpv")
	params.Size, _ = cmd.Flags().GetInt("size")

	if cmd.Flags().Changed("lat") != cmd.Flags().Changed("lng") {
		return params, eris.New("search: --lat and --lng must be given together")
	}
	if cmd.Flags().Changed("lat") {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")
		params.Lat, params.Lng = &lat, &lng
		params.RadiusKM, _ = cmd.Flags().GetFloat64("radius-km")
	}

	for flag, dst := range map[string]**time.Time{"from": &params.From, "to": &params.To} {
		raw, _ := cmd.Flags().GetString(flag)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return params, eris.Wrapf(err, "search: parse --%s %q", flag, raw)
		}
		*dst = &t
	}

	return params, nil
}

func init() {
	searchCmd.Flags().String("cpv", "", "filter by CPV code prefix")
	searchCmd.Flags().Int("size", 10, "number of results")
	searchCmd.Flags().Float64("lat", 0, "center latitude for geo filter")
	searchCmd.Flags().Float64("lng", 0, "center longitude for geo filter")
	searchCmd.Flags().Float64("radius-km", 50, "geo filter radius in kilometers")
	searchCmd.Flags().String("from", "", "earliest publication date (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "latest publication date (YYYY-MM-DD)")
	rootCmd.AddCommand(searchCmd)
}
