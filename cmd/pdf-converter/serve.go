package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf-converter/internal/convert"
	"github.com/spherical/pdf-converter/internal/server"
)

// newServeCmd creates the serve subcommand.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Long: `serve accepts PDFs on POST /convert and streams each conversion back as
multipart/form-data.

  POST /convert?boundary=B&options={"split":true}
  X-Conversion-Options: {"split":true}   (alternative to ?options=)

The boundary defaults to a random UUID. The final outcome ("done" or the
error kind) is sent in the X-Conversion-Outcome trailer. GET /healthz
reports liveness.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, logger, closeLog, err := setup(os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc := convert.NewService(newEngine(cfg, logger), logger)
			return server.New(cfg.Server, svc, logger).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
