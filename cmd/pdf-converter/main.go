// Package main provides the pdf-converter entrypoint.
//
//	pdf-converter BOUNDARY OPTIONS_JSON < input.pdf > fragments
//
// The conversion writes a multipart/form-data fragment stream to stdout and
// exits 0 whether the stream ends in done or error. Nothing is written to
// stderr while converting; logs go to the configured log file.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf-converter/internal/config"
	"github.com/spherical/pdf-converter/internal/convert"
	"github.com/spherical/pdf-converter/internal/observability"
	"github.com/spherical/pdf-converter/internal/pdf"
)

var (
	// Set with -ldflags "-X main.version=..."
	version = "dev"

	// Global flags
	cfgFile string
)

// exitError ends the process with code without printing anything more.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf-converter BOUNDARY OPTIONS_JSON",
		Short: "Convert a PDF on stdin into a multipart fragment stream on stdout",
		Long: `pdf-converter reads one PDF document from stdin and streams its derived
artifacts (page records, thumbnails, text, per-page PDFs) to stdout as
multipart/form-data parts delimited by BOUNDARY.

OPTIONS_JSON is a JSON object:
  split          true: one child per page with its own .blob
                 false: one child for the document, blob inherited (default)
  pageSelection  pages to process, e.g. "1-3,5", "even", "!2" (default: all)
Every other key is copied into the page records.

The stream always ends with a "done" or an "error" part and the exit status
is 0 in both cases.`,
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runConvert(cmd, args[0], args[1])
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: $"+config.EnvConfigPath+")")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func main() {
	cmd := newRootCmd()
	cmd.SetArgs(convertArgs(cmd, os.Args[1:]))
	if err := cmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// convertArgs lets a conversion boundary start with dashes, as RFC 2046
// boundaries such as "--WebKitFormBoundary..." may. Two arguments whose first
// looks like a flag the root command does not define, and whose second is not
// a subcommand, are passed through as positional arguments.
func convertArgs(cmd *cobra.Command, args []string) []string {
	if len(args) != 2 || !strings.HasPrefix(args[0], "-") || args[0] == "--" {
		return args
	}
	if isRootFlag(cmd, args[0]) {
		return args
	}
	for _, sub := range cmd.Commands() {
		if sub.Name() == args[1] || sub.HasAlias(args[1]) {
			return args
		}
	}
	return append([]string{"--"}, args...)
}

func isRootFlag(cmd *cobra.Command, arg string) bool {
	cmd.InitDefaultHelpFlag()
	flags := cmd.Flags()

	if name, ok := strings.CutPrefix(arg, "--"); ok {
		name, _, _ = strings.Cut(name, "=")
		return flags.Lookup(name) != nil || cmd.PersistentFlags().Lookup(name) != nil
	}
	if len(arg) < 2 {
		return false
	}
	short := arg[1:2]
	return flags.ShorthandLookup(short) != nil || cmd.PersistentFlags().ShorthandLookup(short) != nil
}

// setup loads configuration and builds the logger. closeLog must be called
// once the command finishes.
func setup(fallbackLog io.Writer) (*config.Config, *observability.Logger, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	var out io.Writer = fallbackLog
	closeLog := func() {}
	if cfg.Log.File != "" {
		f, err := observability.OpenLogFile(cfg.Log.File)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeLog = func() { f.Close() }
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      out,
		ServiceName: "pdf-converter",
	})
	return cfg, logger, closeLog, nil
}

func newEngine(cfg *config.Config, logger *observability.Logger) *pdf.Engine {
	return pdf.NewEngine(pdf.Options{
		ThumbnailMaxDimension: cfg.Render.ThumbnailMaxDimension,
		TextMaxChars:          cfg.Render.TextMaxChars,
	}, logger)
}

func runConvert(cmd *cobra.Command, boundary, options string) error {
	// Logs never reach stdout or stderr here.
	cfg, logger, closeLog, err := setup(io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restore := silenceStderr(cfg.Log.File, logger)
	defer restore()

	svc := convert.NewService(newEngine(cfg, logger), logger)
	_, err = svc.Convert(ctx, cmd.OutOrStdout(), convert.Request{
		Boundary: boundary,
		Options:  json.RawMessage(options),
		Input:    cmd.InOrStdin(),
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to write fragment stream")
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pdf-converter %s\n", version)
		},
	}
}
