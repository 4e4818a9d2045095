package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spboyer/ptsauto/internal/report"
	"github.com/spf13/cobra"
)

var extractOutput string

func newExtractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <composite.xml>",
		Short: "Extract results from a composite report",
		Long: `Extract Title, Description, Scale and Value of every Result in a
composite report into a text summary.

By default the summary is written next to the report as
"<dir>/<dir>_result.txt", where <dir> is the report's directory name.`,
		Args: cobra.ExactArgs(1),
		RunE: extractCommandE,
	}

	cmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Summary file to write")

	return cmd
}

func extractCommandE(cmd *cobra.Command, args []string) error {
	src := args[0]
	dst := extractOutput
	if dst == "" {
		dir := filepath.Dir(src)
		dst = report.SummaryPath(filepath.Dir(dir), filepath.Base(dir))
	}

	records, err := report.Extract(src, dst)
	if err != nil {
		switch {
		case errors.Is(err, report.ErrNoSource):
			return &RunFailureError{Message: fmt.Sprintf("File %s does not exist.", src)}
		case errors.Is(err, report.ErrMalformed):
			return &RunFailureError{Message: fmt.Sprintf("Error parsing XML: %v", err)}
		default:
			return &RunFailureError{Message: err.Error()}
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, report.String(records))
	fmt.Fprintf(out, "Results saved to %s\n", dst)
	return nil
}
