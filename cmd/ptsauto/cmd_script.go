package main

import (
	"fmt"

	"github.com/spboyer/ptsauto/internal/prompts"
	"github.com/spf13/cobra"
)

var scriptShowTarget string

func newScriptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Inspect and validate prompt scripts",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print a built-in prompt script as YAML",
		Long: `Print the built-in prompt script for a target as YAML.

The output is a valid script file and a starting point for targets that
have no built-in script.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, ok := prompts.Builtin(scriptShowTarget)
			if !ok {
				return fmt.Errorf("no built-in prompt script for %s", scriptShowTarget)
			}
			data, err := prompts.Marshal(s)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	show.Flags().StringVar(&scriptShowTarget, "target", defaultTarget, "Benchmark target")

	validate := &cobra.Command{
		Use:   "validate <script.yaml>",
		Short: "Check a prompt script file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := prompts.LoadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ %s: %d step(s) for %s\n", s.Name, len(s.Steps), s.Target)
			for i, st := range s.Steps {
				reply := "(wait only)"
				if st.HasResponse() {
					reply = fmt.Sprintf("%q", *st.Response)
				}
				fmt.Fprintf(out, "  %d. %s → %s\n", i+1, st.Expect.String(), reply)
			}
			return nil
		},
	}

	cmd.AddCommand(show, validate)
	return cmd
}
