// Package metrics aggregates iteration results of a load run.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// CheckResult is a single boolean assertion evaluated against a response.
type CheckResult struct {
	Label  string `json:"label"`
	Passed bool   `json:"passed"`
}

// Sample is everything a virtual user reports about one finished iteration.
type Sample struct {
	VUID       int
	Iteration  int64
	StartTime  time.Time
	Duration   time.Duration
	StatusCode int
	Bytes      int64
	Err        error
	Checks     []CheckResult
}

// Recorder receives iteration samples from virtual users.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Record(s Sample)
}

// Collector collects and aggregates iteration samples using an HDR histogram
// for request latency.
//
// Collector is safe for concurrent use. Counters use atomic operations,
// the histogram and the check tallies are mutex protected.
type Collector struct {
	// Range: 1 microsecond to 1 hour, 3 significant figures
	latencyHist   *hdrhistogram.Histogram
	latencyHistMu sync.Mutex

	checks   map[string]*CheckTally
	checksMu sync.Mutex

	iterations      atomic.Int64
	requests        atomic.Int64
	transportErrors atomic.Int64
	totalBytes      atomic.Int64
	checksPassed    atomic.Int64
	checksFailed    atomic.Int64

	startTime time.Time
	config    CollectorConfig
}

// CollectorConfig contains histogram bounds for the collector.
type CollectorConfig struct {
	// HistogramMin is the minimum recordable value in microseconds (default: 1)
	HistogramMin int64

	// HistogramMax is the maximum recordable value in microseconds (default: 1 hour)
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures (default: 3)
	HistogramSigFigs int
}

// DefaultCollectorConfig returns the default configuration.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		HistogramMin:     1,
		HistogramMax:     3600000000,
		HistogramSigFigs: 3,
	}
}

// CheckTally counts outcomes for one check label.
type CheckTally struct {
	Passes int64 `json:"passes"`
	Fails  int64 `json:"fails"`
}

// NewCollector creates a collector with the default configuration.
func NewCollector() *Collector {
	return NewCollectorWithConfig(DefaultCollectorConfig())
}

// NewCollectorWithConfig creates a collector with custom histogram bounds.
func NewCollectorWithConfig(config CollectorConfig) *Collector {
	return &Collector{
		latencyHist: hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		checks:      make(map[string]*CheckTally),
		startTime:   time.Now(),
		config:      config,
	}
}

// Record aggregates one iteration sample.
//
// Latency is recorded only when a response was received; transport failures
// are counted separately. Every check in the sample is tallied by label.
func (c *Collector) Record(s Sample) {
	c.iterations.Add(1)

	if s.Err != nil {
		c.transportErrors.Add(1)
	} else {
		c.requests.Add(1)
		c.totalBytes.Add(s.Bytes)
		c.recordLatency(s.Duration)
	}

	if len(s.Checks) == 0 {
		return
	}

	c.checksMu.Lock()
	for _, check := range s.Checks {
		tally, ok := c.checks[check.Label]
		if !ok {
			tally = &CheckTally{}
			c.checks[check.Label] = tally
		}
		if check.Passed {
			tally.Passes++
		} else {
			tally.Fails++
		}
	}
	c.checksMu.Unlock()

	for _, check := range s.Checks {
		if check.Passed {
			c.checksPassed.Add(1)
		} else {
			c.checksFailed.Add(1)
		}
	}
}

// recordLatency clamps and records a latency in the histogram.
// HDR histogram RecordValue is not thread-safe, so the lock is required.
func (c *Collector) recordLatency(d time.Duration) {
	micros := d.Microseconds()
	if micros < c.config.HistogramMin {
		micros = c.config.HistogramMin
	}
	if micros > c.config.HistogramMax {
		micros = c.config.HistogramMax
	}

	c.latencyHistMu.Lock()
	c.latencyHist.RecordValue(micros)
	c.latencyHistMu.Unlock()
}

// Latency returns the current latency distribution.
func (c *Collector) Latency() LatencyStats {
	c.latencyHistMu.Lock()
	defer c.latencyHistMu.Unlock()

	if c.latencyHist.TotalCount() == 0 {
		return LatencyStats{}
	}

	return LatencyStats{
		Min:   time.Duration(c.latencyHist.Min()) * time.Microsecond,
		Max:   time.Duration(c.latencyHist.Max()) * time.Microsecond,
		Mean:  time.Duration(c.latencyHist.Mean()) * time.Microsecond,
		P50:   time.Duration(c.latencyHist.ValueAtQuantile(50)) * time.Microsecond,
		P90:   time.Duration(c.latencyHist.ValueAtQuantile(90)) * time.Microsecond,
		P95:   time.Duration(c.latencyHist.ValueAtQuantile(95)) * time.Microsecond,
		P99:   time.Duration(c.latencyHist.ValueAtQuantile(99)) * time.Microsecond,
		Count: c.latencyHist.TotalCount(),
	}
}

// Checks returns the per-label tallies sorted by label.
func (c *Collector) Checks() []CheckSummary {
	c.checksMu.Lock()
	defer c.checksMu.Unlock()

	result := make([]CheckSummary, 0, len(c.checks))
	for label, tally := range c.checks {
		result = append(result, CheckSummary{
			Name:   label,
			Passes: tally.Passes,
			Fails:  tally.Fails,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Snapshot returns a point-in-time view for live progress display.
func (c *Collector) Snapshot() *Snapshot {
	elapsed := time.Since(c.startTime)
	iterations := c.iterations.Load()

	rate := 0.0
	if elapsed.Seconds() > 0 {
		rate = float64(iterations) / elapsed.Seconds()
	}

	return &Snapshot{
		Iterations:      iterations,
		IterationRate:   rate,
		Requests:        c.requests.Load(),
		TransportErrors: c.transportErrors.Load(),
		ChecksPassed:    c.checksPassed.Load(),
		ChecksFailed:    c.checksFailed.Load(),
		Latency:         c.Latency(),
		Elapsed:         elapsed,
		Timestamp:       time.Now(),
	}
}

// Summary builds the end-of-run aggregate. Run metadata (id, name, timing,
// VU count) is filled in by the caller.
func (c *Collector) Summary() *Summary {
	checks := c.Checks()

	var passed, failed int64
	for _, check := range checks {
		passed += check.Passes
		failed += check.Fails
	}

	return &Summary{
		Iterations:      c.iterations.Load(),
		Requests:        c.requests.Load(),
		TransportErrors: c.transportErrors.Load(),
		BytesReceived:   c.totalBytes.Load(),
		ChecksPassed:    passed,
		ChecksFailed:    failed,
		Checks:          checks,
		Latency:         c.Latency(),
	}
}

var _ Recorder = (*Collector)(nil)
