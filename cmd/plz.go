package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/leelesemann-sys/vergabe-radar/internal/db"
	"github.com/leelesemann-sys/vergabe-radar/internal/enricher"
)

var plzCmd = &cobra.Command{
	Use:   "plz",
	Short: "Manage the postal-code reference data",
}

var plzLoadCmd = &cobra.Command{
	Use:   "load FILE",
	Short: "Load postal-code coordinates from a CSV or XLSX file",
	Long: `Load a postal-code reference file into plz_coordinates. The file
must carry plz, lat, and lng columns; existing codes are updated in place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}

		latin1, _ := cmd.Flags().GetBool("latin1")

		n, err := enricher.LoadReference(ctx, pool, args[0], enricher.LoadOptions{Latin1: latin1})
		if err != nil {
			return eris.Wrap(err, "plz load")
		}

		fmt.Printf("Loaded %d postal codes\n", n)
		return nil
	},
}

func init() {
	plzLoadCmd.Flags().Bool("latin1", false, "decode CSV input as ISO 8859-1")
	plzCmd.AddCommand(plzLoadCmd)
	rootCmd.AddCommand(plzCmd)
}
