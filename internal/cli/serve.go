package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/roach88/bequest/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the plan API over HTTP",
		Long: `Serve the plan API over HTTP with Prometheus metrics at /metrics.

The caller identity of each request is taken from the X-Caller header;
put an authenticating proxy in front of this server.

Example:
  bequest serve --db ./bequest.db --fixtures ./fixtures.yaml --addr :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}

	cmd.Flags().StringVar(&rootOpts.HTTPAddr, "addr", ":8080", "listen address")

	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	s, err := openSession(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			s.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	h := &server.Handler{
		Engine:  s.engine,
		Metrics: s.recorder.Handler(),
		Logger:  s.logger,
	}

	s.logger.Info("server starting", "addr", opts.HTTPAddr, "db", opts.Database)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", opts.HTTPAddr)

	if err := h.Serve(ctx, opts.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}
