package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/arloliu/textgds/manifest"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs recorded in a ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Ledger == "" {
				return errors.New("no ledger configured")
			}

			ledger, err := manifest.OpenLedger(cfg.Ledger)
			if err != nil {
				return err
			}
			defer ledger.Close()

			runs, err := ledger.Runs(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(w, "%s  %s  %-6s  L=%d  %s parts  %s rows  %s placements  %s\n",
					r.RunID,
					r.CreatedAt.Format("2006-01-02 15:04:05"),
					r.Status,
					r.RunLength,
					humanize.Comma(int64(r.Parts)),
					humanize.Comma(int64(r.Rows)),
					humanize.Comma(int64(r.Placements)),
					r.Output)
			}

			return nil
		},
	}
	cmd.Flags().String("ledger", "", "SQLite ledger")

	return cmd
}
