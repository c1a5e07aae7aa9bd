// Package output renders load run progress, summaries and logs.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/poleepo/loaddriver/internal/metrics"
)

// ANSI escape codes for in-place redraw
const (
	cursorUp  = "\033[%dA"
	clearLine = "\033[2K"
)

const (
	boxHorizontal  = "━"
	progressFilled = "█"
	progressEmpty  = "░"
	ruleWidth      = 56
)

// RunInfo describes a run for the console header.
type RunInfo struct {
	RunID     string
	Name      string
	VUs       int
	Duration  time.Duration
	Sleep     time.Duration
	TargetURL string
}

// LiveStats contains real-time statistics for display.
type LiveStats struct {
	Progress        float64
	Elapsed         time.Duration
	Total           time.Duration
	ActiveVUs       int
	TargetVUs       int
	Iterations      int64
	IterationRate   float64
	ChecksPassed    int64
	ChecksFailed    int64
	TransportErrors int64
	LatencyP95      time.Duration
	LatencyAvg      time.Duration
}

// StatsFromSnapshot builds LiveStats from a metrics snapshot.
func StatsFromSnapshot(snap *metrics.Snapshot, progress float64, total time.Duration, activeVUs, targetVUs int) *LiveStats {
	stats := &LiveStats{
		Progress:  progress,
		Total:     total,
		ActiveVUs: activeVUs,
		TargetVUs: targetVUs,
	}
	if snap == nil {
		return stats
	}

	stats.Elapsed = snap.Elapsed
	stats.Iterations = snap.Iterations
	stats.IterationRate = snap.IterationRate
	stats.ChecksPassed = snap.ChecksPassed
	stats.ChecksFailed = snap.ChecksFailed
	stats.TransportErrors = snap.TransportErrors
	stats.LatencyP95 = snap.Latency.P95
	stats.LatencyAvg = snap.Latency.Mean
	return stats
}

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Writer   io.Writer
	Quiet    bool
	NoColor  bool
	ForceTTY bool
}

// Console manages console output during and after a run.
type Console struct {
	writer io.Writer
	isTTY  bool
	quiet  bool

	mu          sync.Mutex
	linesOutput int

	bold    *color.Color
	dim     *color.Color
	cyan    *color.Color
	green   *color.Color
	yellow  *color.Color
	red     *color.Color
	blue    *color.Color
}

// NewConsole creates a new console output handler.
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	isTTY := cfg.ForceTTY || isTerminal(cfg.Writer)
	useColors := !cfg.NoColor && isTTY && supportsColors()

	c := &Console{
		writer:  cfg.Writer,
		isTTY:   isTTY,
		quiet:   cfg.Quiet,
		bold:    color.New(color.Bold),
		dim:     color.New(color.Faint),
		cyan:    color.New(color.FgCyan),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow),
		red:     color.New(color.FgRed),
		blue:    color.New(color.FgBlue),
	}

	for _, col := range c.palette() {
		if useColors {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}

	return c
}

func (c *Console) palette() []*color.Color {
	return []*color.Color{c.bold, c.dim, c.cyan, c.green, c.yellow, c.red, c.blue}
}

// IsTTY returns whether the output is a terminal.
func (c *Console) IsTTY() bool {
	return c.isTTY
}

// PrintHeader prints the run header.
func (c *Console) PrintHeader(info RunInfo) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line := strings.Repeat(boxHorizontal, ruleWidth)
	c.writeln(c.cyan.Sprint(line))
	c.writeln(c.bold.Sprintf("%s - Running", info.Name))
	c.writeln(c.cyan.Sprint(line))
	c.writeln(fmt.Sprintf("Run ID:     %s", c.dim.Sprint(info.RunID)))
	c.writeln(fmt.Sprintf("Target:     POST %s", c.cyan.Sprint(info.TargetURL)))
	c.writeln(fmt.Sprintf("VUs:        %s", c.cyan.Sprint(info.VUs)))
	c.writeln(fmt.Sprintf("Duration:   %s (sleep %s)", c.cyan.Sprint(formatDuration(info.Duration)), formatDuration(info.Sleep)))
	c.writeln("")
}

// Update redraws the live display. Only used on a TTY.
func (c *Console) Update(stats *LiveStats) {
	if c.quiet || !c.isTTY {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLive()

	lines := c.renderLiveStats(stats)
	c.linesOutput = len(lines)
	for _, line := range lines {
		c.writeln(line)
	}
}

// PrintNonInteractiveUpdate prints a one-line status update.
// Used when output is not a TTY (e.g., piped to a file or CI).
func (c *Console) PrintNonInteractiveUpdate(stats *LiveStats) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(fmt.Sprintf("[%s] Progress: %.0f%% | VUs: %d | Iterations: %d | Checks: %d ✓ %d ✗ | P95: %s",
		formatDuration(stats.Elapsed),
		stats.Progress*100,
		stats.ActiveVUs,
		stats.Iterations,
		stats.ChecksPassed,
		stats.ChecksFailed,
		formatDurationShort(stats.LatencyP95)))
}

// renderLiveStats renders the two-line live display.
func (c *Console) renderLiveStats(stats *LiveStats) []string {
	bar := renderProgressBar(stats.Progress, 40)
	timeInfo := fmt.Sprintf("%s / %s", formatDuration(stats.Elapsed), formatDuration(stats.Total))

	checkColor := c.green
	if stats.ChecksFailed > 0 {
		checkColor = c.yellow
	}
	if rate := passRate(stats.ChecksPassed, stats.ChecksFailed); rate < 0.95 && stats.ChecksPassed+stats.ChecksFailed > 0 {
		checkColor = c.red
	}

	return []string{
		fmt.Sprintf("Progress: %s %s | %s",
			c.green.Sprint(bar),
			c.bold.Sprintf("%.0f%%", stats.Progress*100),
			c.dim.Sprint(timeInfo)),
		fmt.Sprintf("VUs: %s/%d | Iterations: %s (%.1f/s) | Checks: %s | P95: %s | Avg: %s",
			c.cyan.Sprint(stats.ActiveVUs),
			stats.TargetVUs,
			c.cyan.Sprint(formatNumber(stats.Iterations)),
			stats.IterationRate,
			checkColor.Sprintf("%d ✓ %d ✗", stats.ChecksPassed, stats.ChecksFailed),
			c.blue.Sprint(formatDurationShort(stats.LatencyP95)),
			c.blue.Sprint(formatDurationShort(stats.LatencyAvg))),
	}
}

// clearLive erases the live display. Caller holds c.mu.
func (c *Console) clearLive() {
	if c.linesOutput == 0 {
		return
	}
	c.write(fmt.Sprintf(cursorUp, c.linesOutput))
	for i := 0; i < c.linesOutput; i++ {
		c.write(clearLine + "\n")
	}
	c.write(fmt.Sprintf(cursorUp, c.linesOutput))
	c.linesOutput = 0
}

// LogWriter wraps w, the destination of log output, so that log lines and
// the live display can share a terminal. Each write erases the live display
// first; the next Update redraws it below the new line. Without a live
// display w is returned unchanged.
func (c *Console) LogWriter(w io.Writer) io.Writer {
	if c.quiet || !c.isTTY {
		return w
	}
	return &liveSafeWriter{console: c, w: w}
}

type liveSafeWriter struct {
	console *Console
	w       io.Writer
}

func (l *liveSafeWriter) Write(p []byte) (int, error) {
	l.console.mu.Lock()
	defer l.console.mu.Unlock()

	l.console.clearLive()
	return l.w.Write(p)
}

// Unwrap returns the underlying writer.
func (l *liveSafeWriter) Unwrap() io.Writer {
	return l.w
}

// PrintSummary prints the end-of-run summary.
func (c *Console) PrintSummary(s *metrics.Summary) {
	if s == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.quiet {
		c.writeln(fmt.Sprintf("checks: %d passed, %d failed", s.ChecksPassed, s.ChecksFailed))
		return
	}

	if c.isTTY {
		c.clearLive()
	}

	status := c.green.Sprint("Completed ✓")
	if s.Interrupted {
		status = c.yellow.Sprint("Interrupted")
	}

	line := strings.Repeat(boxHorizontal, ruleWidth)
	c.writeln("")
	c.writeln(c.cyan.Sprint(line))
	c.writeln(fmt.Sprintf("%s - %s", c.bold.Sprint(s.Name), status))
	c.writeln(c.cyan.Sprint(line))
	c.writeln("")

	c.writeln(c.bold.Sprint("Checks:"))
	if len(s.Checks) == 0 {
		c.writeln(c.dim.Sprint("  (no checks recorded)"))
	}
	for _, check := range s.Checks {
		icon := c.green.Sprint("✓")
		rateColor := c.green
		if check.Fails > 0 {
			icon = c.red.Sprint("✗")
			rateColor = c.red
		}
		c.writeln(fmt.Sprintf("  %s %-20s %s  %s %s  %s %s",
			icon,
			check.Name,
			rateColor.Sprintf("%6.2f%%", check.Rate()*100),
			c.green.Sprint("✓"), formatNumber(check.Passes),
			c.red.Sprint("✗"), formatNumber(check.Fails)))
	}
	c.writeln("")

	c.writeln(fmt.Sprintf("Duration:      %s", c.cyan.Sprint(formatDuration(s.Duration))))
	c.writeln(fmt.Sprintf("VUs:           %s", c.cyan.Sprint(s.VUs)))
	c.writeln(fmt.Sprintf("Iterations:    %s (%.1f/s)", c.cyan.Sprint(formatNumber(s.Iterations)), s.IterationRate()))
	c.writeln(fmt.Sprintf("Requests:      %s", c.cyan.Sprint(formatNumber(s.Requests))))

	errColor := c.green
	if s.TransportErrors > 0 {
		errColor = c.red
	}
	c.writeln(fmt.Sprintf("Net Errors:    %s", errColor.Sprint(formatNumber(s.TransportErrors))))
	c.writeln(fmt.Sprintf("Data Received: %s", formatBytes(s.BytesReceived)))
	c.writeln("")

	if s.Latency.Count > 0 {
		c.writeln(c.bold.Sprint("Latency Distribution:"))
		c.writeln(fmt.Sprintf("  Min:       %s", formatDurationShort(s.Latency.Min)))
		c.writeln(fmt.Sprintf("  Avg:       %s", formatDurationShort(s.Latency.Mean)))
		c.writeln(fmt.Sprintf("  P50:       %s", formatDurationShort(s.Latency.P50)))
		c.writeln(fmt.Sprintf("  P90:       %s", formatDurationShort(s.Latency.P90)))
		c.writeln(fmt.Sprintf("  P95:       %s", formatDurationShort(s.Latency.P95)))
		c.writeln(fmt.Sprintf("  P99:       %s", formatDurationShort(s.Latency.P99)))
		c.writeln(fmt.Sprintf("  Max:       %s", formatDurationShort(s.Latency.Max)))
		c.writeln("")
	}

	c.writeln(c.dim.Sprintf("Run ID: %s", s.RunID))
}

func (c *Console) write(s string) {
	fmt.Fprint(c.writer, s)
}

func (c *Console) writeln(s string) {
	fmt.Fprintln(c.writer, s)
}

func passRate(passes, fails int64) float64 {
	total := passes + fails
	if total == 0 {
		return 0
	}
	return float64(passes) / float64(total)
}
