package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/leelesemann-sys/vergabe-radar/internal/indexer"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the search index",
}

var indexInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the search index if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		idx, err := indexer.New(cfg.Index, cfg.Embedding.Dimensions, nil)
		if err != nil {
			return err
		}
		if err := idx.EnsureIndex(ctx); err != nil {
			return eris.Wrap(err, "index init")
		}

		fmt.Printf("Index %s ready\n", cfg.Index.Name)
		return nil
	},
}

func init() {
	indexCmd.AddCommand(indexInitCmd)
	rootCmd.AddCommand(indexCmd)
}
