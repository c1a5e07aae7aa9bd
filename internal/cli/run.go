package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/poleepo/loaddriver/internal/config"
	"github.com/poleepo/loaddriver/internal/driver"
	"github.com/poleepo/loaddriver/internal/metrics"
	"github.com/poleepo/loaddriver/internal/output"
)

const progressInterval = time.Second

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run virtual users against the target endpoint",
		Long: `Run a fixed number of virtual users for a fixed duration.

Without flags the run uses 50 VUs for 30s against
http://localhost:8000/configurations with a 1s pause between iterations.

Config file mode:
  loaddriver run --config load.yaml

Flag mode:
  loaddriver run --url http://localhost:8000/configurations --vus 10 --duration 1m

Flags override values from the config file.`,
		Args: cobra.NoArgs,
		RunE: runLoad,
	}

	f := cmd.Flags()
	f.StringP("config", "c", "", "Path to a YAML or JSON run configuration")
	f.IntP("vus", "u", config.DefaultVUs, "Number of concurrent virtual users")
	f.StringP("duration", "d", config.DefaultDuration.String(), "How long virtual users keep starting iterations (e.g. 30s, 2m)")
	f.String("url", config.DefaultTargetURL, "Target URL for the POST request")
	f.String("body", "", "Request body sent with every POST")
	f.StringArrayP("header", "H", nil, "Request header in Key:Value form (repeatable)")
	f.String("sleep", config.DefaultSleep.String(), "Pause between iterations of one virtual user")
	f.String("timeout", config.DefaultTimeout.String(), "Timeout of a single request")
	f.String("summary-export", "", "Write the end-of-run summary as JSON to this path (- for stdout)")
	f.BoolP("quiet", "q", false, "Only print the check totals at the end")
	f.Bool("no-color", false, "Disable colored output")
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	f.String("log-format", "text", "Log format: text or json")

	return cmd
}

// runLoad resolves the configuration, runs the driver and reports the result.
// Failed checks never produce an error; only setup problems do.
func runLoad(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveRunConfig(cmd)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	quiet, _ := f.GetBool("quiet")
	noColor, _ := f.GetBool("no-color")
	logLevel, _ := f.GetString("log-level")
	logFormat, _ := f.GetString("log-format")
	exportPath, _ := f.GetString("summary-export")

	// With --summary-export - stdout carries only the JSON document.
	consoleOut := cmd.OutOrStdout()
	if exportPath == "-" {
		consoleOut = cmd.ErrOrStderr()
	}
	console := output.NewConsole(output.ConsoleConfig{
		Writer:  consoleOut,
		Quiet:   quiet,
		NoColor: noColor,
	})

	logger, err := output.NewLogger(console.LogWriter(cmd.ErrOrStderr()), output.LogOptions{
		Level:   logLevel,
		Format:  logFormat,
		NoColor: noColor,
	})
	if err != nil {
		return err
	}

	d, err := driver.New(cfg, driver.WithLogger(logger))
	if err != nil {
		return err
	}

	console.PrintHeader(output.RunInfo{
		RunID:     d.RunID(),
		Name:      cfg.Name,
		VUs:       cfg.VUs,
		Duration:  cfg.Duration.Std(),
		Sleep:     cfg.Sleep.Std(),
		TargetURL: cfg.Target.URL,
	})

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	var summary *metrics.Summary
	var runErr error
	go func() {
		defer close(done)
		summary, runErr = d.Run(ctx)
	}()

	reportProgress(d, console, cfg, done)

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}

	console.PrintSummary(summary)

	if exportPath != "" {
		if err := output.WriteJSON(summary, exportPath, cmd.OutOrStdout()); err != nil {
			// Export failures are logged; the exit code stays 0.
			logger.Error("summary export failed", "path", exportPath, "error", err)
		} else {
			logger.Debug("summary exported", "path", exportPath)
		}
	}

	return nil
}

// reportProgress refreshes the live display until done is closed.
func reportProgress(d *driver.Driver, console *output.Console, cfg *config.RunConfig, done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			stats := output.StatsFromSnapshot(d.Snapshot(), d.Progress(), cfg.Duration.Std(), d.ActiveVUs(), cfg.VUs)
			if console.IsTTY() {
				console.Update(stats)
			} else {
				console.PrintNonInteractiveUpdate(stats)
			}
		}
	}
}

// resolveRunConfig merges defaults, the optional config file and changed
// flags, in increasing order of precedence, and validates the result.
func resolveRunConfig(cmd *cobra.Command) (*config.RunConfig, error) {
	f := cmd.Flags()

	cfg := config.Default()
	if path, _ := f.GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
		cfg = loaded
	}

	if f.Changed("vus") {
		cfg.VUs, _ = f.GetInt("vus")
	}
	if f.Changed("url") {
		cfg.Target.URL, _ = f.GetString("url")
	}
	if f.Changed("body") {
		cfg.Target.Body, _ = f.GetString("body")
	}

	durations := []struct {
		flag string
		dst  *config.Duration
	}{
		{"duration", &cfg.Duration},
		{"sleep", &cfg.Sleep},
		{"timeout", &cfg.Timeout},
	}
	for _, d := range durations {
		if !f.Changed(d.flag) {
			continue
		}
		raw, _ := f.GetString(d.flag)
		parsed, err := config.ParseDurationString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", d.flag, err)
		}
		*d.dst = config.Duration(parsed)
	}

	if f.Changed("header") {
		raw, _ := f.GetStringArray("header")
		headers, err := parseHeaders(raw)
		if err != nil {
			return nil, err
		}
		if cfg.Target.Headers == nil {
			cfg.Target.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			cfg.Target.Headers[k] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseHeaders parses "Key:Value" pairs. Whitespace around key and value
// is trimmed; the value may itself contain colons.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q (want Key:Value)", h)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}
