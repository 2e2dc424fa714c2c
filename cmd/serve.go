package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/leelesemann-sys/vergabe-radar/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API",
	Long:  "Serve the HTTP search API over the published index. Stops on SIGINT or SIGTERM.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		idx, err := buildIndexer(nil)
		if err != nil {
			return err
		}

		emb, err := buildEmbedder(nil)
		if err != nil {
			return err
		}

		srv := server.New(cfg.Server, idx, emb)
		if err := srv.ListenAndServe(ctx); err != nil {
			return eris.Wrap(err, "serve")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
