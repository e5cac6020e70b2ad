package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/spherical/pdf-converter/internal/inspect"
)

// newInspectCmd creates the inspect subcommand.
func newInspectCmd() *cobra.Command {
	var (
		boundary string
		noColor  bool
	)

	cmd := &cobra.Command{
		Use:   "inspect --boundary B < fragments",
		Short: "Summarize a fragment stream read from stdin",
		Long: `inspect prints one line per fragment of a stream produced by
pdf-converter and shows a progress bar driven by its progress parts.

Exits 1 when the stream ends in an error part or has no terminal part.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			if noColor {
				color.NoColor = true
			}

			opts := inspect.Options{
				Out:     cmd.OutOrStdout(),
				NoColor: noColor,
			}
			if isatty.IsTerminal(os.Stderr.Fd()) {
				opts.Status = cmd.ErrOrStderr()
			}

			summary, err := inspect.New(opts).Run(cmd.InOrStdin(), boundary)
			if err != nil || !summary.OK() {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&boundary, "boundary", "b", "", "boundary delimiting the stream's parts")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	_ = cmd.MarkFlagRequired("boundary")
	return cmd
}
