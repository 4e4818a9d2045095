package main

import (
	"fmt"

	"github.com/spboyer/ptsauto/internal/runid"
	"github.com/spf13/cobra"
)

func newNameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "name [label]",
		Short: "Print the run stamp and result name for a label",
		Long: `Print the names a run of label would use right now.

The stamp is "<dd_mm_YYYY>_<HH_MM_SS>_<pid>_<label>"; the result name is the
same with slashes removed and underscores turned into dashes, which is the
directory the benchmark tool saves its results under.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := defaultTarget
			if len(args) == 1 {
				label = args[0]
			}

			var gen runid.Generator
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "stamp:       %s\n", gen.Stamp(label))
			fmt.Fprintf(out, "result name: %s\n", gen.ResultName(label))
			return nil
		},
	}
}
