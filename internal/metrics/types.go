package metrics

import "time"

// Snapshot contains a point-in-time view of a running load run.
type Snapshot struct {
	Iterations      int64         `json:"iterations"`
	IterationRate   float64       `json:"iterationRate"`
	Requests        int64         `json:"requests"`
	TransportErrors int64         `json:"transportErrors"`
	ChecksPassed    int64         `json:"checksPassed"`
	ChecksFailed    int64         `json:"checksFailed"`
	Latency         LatencyStats  `json:"latency"`
	Elapsed         time.Duration `json:"elapsed"`
	Timestamp       time.Time     `json:"timestamp"`
}

// CheckRate returns the fraction of passed checks (0.0 to 1.0).
func (s *Snapshot) CheckRate() float64 {
	return passRate(s.ChecksPassed, s.ChecksFailed)
}

// LatencyStats contains request latency statistics.
type LatencyStats struct {
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P90   time.Duration `json:"p90"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
	Count int64         `json:"count"`
}

// CheckSummary contains the outcome counts of one check label.
type CheckSummary struct {
	Name   string `json:"name"`
	Passes int64  `json:"passes"`
	Fails  int64  `json:"fails"`
}

// Rate returns the fraction of passes (0.0 to 1.0).
func (c CheckSummary) Rate() float64 {
	return passRate(c.Passes, c.Fails)
}

// Summary is the end-of-run report.
type Summary struct {
	RunID       string        `json:"runId"`
	Name        string        `json:"name"`
	TargetURL   string        `json:"targetUrl"`
	VUs         int           `json:"vus"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
	Duration    time.Duration `json:"duration"`
	Interrupted bool          `json:"interrupted"`

	Iterations      int64 `json:"iterations"`
	Requests        int64 `json:"requests"`
	TransportErrors int64 `json:"transportErrors"`
	BytesReceived   int64 `json:"bytesReceived"`

	ChecksPassed int64          `json:"checksPassed"`
	ChecksFailed int64          `json:"checksFailed"`
	Checks       []CheckSummary `json:"checks"`

	Latency LatencyStats `json:"latency"`
}

// CheckRate returns the fraction of passed checks across all labels.
func (s *Summary) CheckRate() float64 {
	return passRate(s.ChecksPassed, s.ChecksFailed)
}

// IterationRate returns completed iterations per second of run time.
func (s *Summary) IterationRate() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Iterations) / s.Duration.Seconds()
}

func passRate(passes, fails int64) float64 {
	total := passes + fails
	if total == 0 {
		return 0
	}
	return float64(passes) / float64(total)
}
