// Command targetserver serves a local configurations endpoint to run
// loaddriver against.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/poleepo/loaddriver/internal/output"
	"github.com/poleepo/loaddriver/internal/targetserver"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "targetserver",
		Short:         "Serve a local POST /configurations endpoint for load runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}

	f := cmd.Flags()
	f.String("addr", ":8000", "Listen address")
	f.String("path", targetserver.DefaultPath, "Path accepting POST requests")
	f.Duration("latency", 0, "Delay added to every response")
	f.Int64("fail-every", 0, "Answer every Nth request with 500 (0 disables)")
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	return cmd
}

// serverOptions reads the listen address and handler options from flags.
func serverOptions(cmd *cobra.Command) (string, targetserver.Options, error) {
	f := cmd.Flags()
	addr, _ := f.GetString("addr")
	path, _ := f.GetString("path")
	latency, _ := f.GetDuration("latency")
	failEvery, _ := f.GetInt64("fail-every")

	if !strings.HasPrefix(path, "/") {
		return "", targetserver.Options{}, fmt.Errorf("invalid --path %q (must start with /)", path)
	}
	if latency < 0 {
		return "", targetserver.Options{}, fmt.Errorf("invalid --latency %s (must not be negative)", latency)
	}
	if failEvery < 0 {
		return "", targetserver.Options{}, fmt.Errorf("invalid --fail-every %d (must not be negative)", failEvery)
	}

	return addr, targetserver.Options{
		Path:      path,
		Latency:   latency,
		FailEvery: failEvery,
	}, nil
}

func serve(cmd *cobra.Command, _ []string) error {
	addr, opts, err := serverOptions(cmd)
	if err != nil {
		return err
	}

	level, _ := cmd.Flags().GetString("log-level")
	logger, err := output.NewLogger(cmd.ErrOrStderr(), output.LogOptions{Level: level})
	if err != nil {
		return err
	}
	opts.Logger = logger

	handler := targetserver.New(opts)
	srv := targetserver.NewHTTPServer(addr, handler)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "path", opts.Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("stopped",
		"requests", handler.Requests(),
		"failures", handler.Failures())
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
