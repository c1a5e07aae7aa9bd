// Package driver runs a fixed number of virtual users against a single
// endpoint for a fixed duration.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/poleepo/loaddriver/internal/config"
	"github.com/poleepo/loaddriver/internal/metrics"
)

// ErrAlreadyRunning is returned by Run when a run is in progress.
var ErrAlreadyRunning = errors.New("driver is already running")

// Driver owns the virtual users of one load run.
//
// It spawns config.VUs goroutines, each looping until config.Duration has
// elapsed since the run started, then waits for all of them and reports a
// summary. Failed checks never make Run return an error.
//
// Example usage:
//
//	d, _ := driver.New(cfg, driver.WithLogger(logger))
//	summary, _ := d.Run(ctx)
//	fmt.Printf("%d iterations\n", summary.Iterations)
type Driver struct {
	config *config.RunConfig
	client *http.Client
	logger *slog.Logger
	runID  string

	// extra receives every sample in addition to the run's collector
	extra metrics.Recorder

	mu        sync.Mutex
	running   bool
	startTime time.Time
	collector *metrics.Collector

	activeVUs atomic.Int32
	peakVUs   atomic.Int32
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger used for per-VU diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithHTTPClient replaces the pooled client built from the config.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Driver) {
		d.client = client
	}
}

// WithRecorder adds a recorder that sees every sample alongside the
// run's own collector.
func WithRecorder(r metrics.Recorder) Option {
	return func(d *Driver) {
		d.extra = r
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(d *Driver) {
		d.runID = id
	}
}

// New validates cfg and creates a driver for it.
func New(cfg *config.RunConfig, opts ...Option) (*Driver, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	d := &Driver{
		config: cfg,
		runID:  uuid.New().String(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.client == nil {
		d.client = newHTTPClient(httpClientConfigFor(cfg.VUs, cfg.Timeout.Std()))
	}
	d.logger = d.logger.With("run", d.runID)

	return d, nil
}

// RunID returns the identifier of this driver's run.
func (d *Driver) RunID() string {
	return d.runID
}

// Config returns the run configuration.
func (d *Driver) Config() *config.RunConfig {
	return d.config
}

// Run starts all virtual users and blocks until every one has stopped.
//
// VUs stop starting iterations once the configured duration has elapsed.
// Cancelling ctx aborts in-flight requests and stops all VUs early; the
// returned summary is then marked as interrupted.
func (d *Driver) Run(ctx context.Context) (*metrics.Summary, error) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	collector := metrics.NewCollector()
	d.running = true
	d.collector = collector
	d.startTime = time.Now()
	d.peakVUs.Store(0)
	start := d.startTime
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	var recorder metrics.Recorder = collector
	if d.extra != nil {
		recorder = teeRecorder{collector, d.extra}
	}

	deadline := start.Add(d.config.Duration.Std())

	d.logger.Info("run started",
		"vus", d.config.VUs,
		"duration", d.config.Duration.String(),
		"url", d.config.Target.URL)

	var wg sync.WaitGroup
	for i := 1; i <= d.config.VUs; i++ {
		vu := NewVirtualUser(i, d.config, d.client, recorder, d.logger)
		wg.Add(1)
		go d.runVU(ctx, vu, deadline, &wg)
	}

	wg.Wait()
	end := time.Now()
	d.client.CloseIdleConnections()

	summary := collector.Summary()
	summary.RunID = d.runID
	summary.Name = d.config.Name
	summary.TargetURL = d.config.Target.URL
	summary.VUs = d.config.VUs
	summary.StartTime = start
	summary.EndTime = end
	summary.Duration = end.Sub(start)
	summary.Interrupted = ctx.Err() != nil

	d.logger.Info("run finished",
		"iterations", summary.Iterations,
		"checks_passed", summary.ChecksPassed,
		"checks_failed", summary.ChecksFailed,
		"interrupted", summary.Interrupted)

	return summary, nil
}

// runVU runs a single VU until the deadline or ctx cancellation.
func (d *Driver) runVU(ctx context.Context, vu *VirtualUser, deadline time.Time, wg *sync.WaitGroup) {
	defer wg.Done()

	active := d.activeVUs.Add(1)
	for {
		peak := d.peakVUs.Load()
		if active <= peak || d.peakVUs.CompareAndSwap(peak, active) {
			break
		}
	}
	defer d.activeVUs.Add(-1)

	vu.Run(ctx, deadline)
}

// IsRunning reports whether a run is in progress.
func (d *Driver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// ActiveVUs returns the number of VU goroutines currently running.
func (d *Driver) ActiveVUs() int {
	return int(d.activeVUs.Load())
}

// PeakVUs returns the highest number of simultaneously running VUs seen
// during the current or last run.
func (d *Driver) PeakVUs() int {
	return int(d.peakVUs.Load())
}

// Progress returns run progress (0.0 to 1.0) based on elapsed time.
func (d *Driver) Progress() float64 {
	d.mu.Lock()
	start := d.startTime
	running := d.running
	d.mu.Unlock()

	if start.IsZero() {
		return 0.0
	}
	if !running {
		return 1.0
	}

	progress := float64(time.Since(start)) / float64(d.config.Duration.Std())
	if progress > 1.0 {
		progress = 1.0
	}
	return progress
}

// Snapshot returns live metrics of the current run, or nil before Run.
func (d *Driver) Snapshot() *metrics.Snapshot {
	d.mu.Lock()
	collector := d.collector
	d.mu.Unlock()

	if collector == nil {
		return nil
	}
	return collector.Snapshot()
}

// teeRecorder forwards each sample to several recorders.
type teeRecorder []metrics.Recorder

func (t teeRecorder) Record(s metrics.Sample) {
	for _, r := range t {
		r.Record(s)
	}
}
