package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/api"
	"github.com/roach88/offpos/internal/logging"
	"github.com/roach88/offpos/internal/notify"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr      string
	NoSync    bool
	NoMetrics bool

	// Ready, if set, receives the bound listener address once serving.
	Ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API and periodic notification sync",
		Long: `Serve the local HTTP API under /api/v1/restaurants/{id} with /health and
/metrics, and sync the configured restaurant's notifications every
sync.interval.

Example:
  offpos serve --restaurant rest-1 --addr 127.0.0.1:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVar(&opts.NoSync, "no-sync", false, "disable the periodic sync")
	cmd.Flags().BoolVar(&opts.NoMetrics, "no-metrics", false, "do not expose /metrics")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	a, err := newApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.close()

	addr := opts.Addr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	interval, err := a.cfg.SyncInterval()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(a.notify, a.ledger, a.reports, a.logger)
	if !opts.NoMetrics {
		server.EnableMetrics()
	}
	httpServer := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to listen on %s", addr), err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	a.logger.Info("api listening", zap.String("addr", ln.Addr().String()))
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	syncDone := make(chan struct{})
	switch {
	case opts.NoSync:
		close(syncDone)
	case a.restaurant == "":
		a.logger.Warn("no restaurant configured, periodic sync disabled")
		close(syncDone)
	default:
		sched := notify.NewScheduler(a.notify, a.restaurant, interval)
		a.logger.Info("periodic sync started",
			logging.Tenant(a.restaurant), zap.Duration("interval", interval))
		go func() {
			defer close(syncDone)
			_ = sched.Run(ctx)
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case serveErr = <-errCh:
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown", zap.Error(err))
	}
	<-syncDone

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "api server error", serveErr)
	}
	a.logger.Info("stopped gracefully")
	return nil
}
