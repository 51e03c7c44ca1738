package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/arloliu/textgds"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Summarize written GDSII artifacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, path := range args {
				sum, err := textgds.InspectFile(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				fmt.Fprintf(w, "%s\n", path)
				fmt.Fprintf(w, "  library:    %s (stream version %d)\n", sum.Library, sum.Version)
				fmt.Fprintf(w, "  units:      %g user, %g m\n", sum.UserUnit, sum.DBUnit)
				fmt.Fprintf(w, "  structures: %s\n", humanize.Comma(int64(len(sum.Structures))))
				fmt.Fprintf(w, "  top:        %s\n", strings.Join(sum.Top, ", "))
				fmt.Fprintf(w, "  boundaries: %s\n", humanize.Comma(int64(sum.Boundaries)))
				fmt.Fprintf(w, "  references: %s\n", humanize.Comma(int64(sum.References)))
				fmt.Fprintf(w, "  size:       %s\n", humanize.Bytes(uint64(sum.Bytes)))
			}

			return nil
		},
	}
}
