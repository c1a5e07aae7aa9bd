package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/poleepo/loaddriver/internal/config"
	"github.com/poleepo/loaddriver/internal/metrics"
)

// CheckStatus200 is the label of the only check evaluated per iteration.
const CheckStatus200 = "status 200"

// VirtualUser is one simulated client issuing requests in a loop.
//
// A VU owns its iteration counter; everything else it reads (config, HTTP
// client, recorder) is shared and safe for concurrent use.
type VirtualUser struct {
	// Unique identifier for this VU (1-based)
	ID int

	config   *config.RunConfig
	client   *http.Client
	recorder metrics.Recorder
	logger   *slog.Logger

	iteration atomic.Int64
}

// NewVirtualUser creates a new virtual user.
func NewVirtualUser(id int, cfg *config.RunConfig, client *http.Client, recorder metrics.Recorder, logger *slog.Logger) *VirtualUser {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &VirtualUser{
		ID:       id,
		config:   cfg,
		client:   client,
		recorder: recorder,
		logger:   logger.With("vu", id),
	}
}

// GetIteration returns the number of iterations started so far.
func (vu *VirtualUser) GetIteration() int64 {
	return vu.iteration.Load()
}

// Run loops until the deadline passes or ctx is cancelled.
//
// The deadline is only checked between iterations: an iteration that has
// started always runs to completion unless ctx is cancelled.
func (vu *VirtualUser) Run(ctx context.Context, deadline time.Time) {
	for {
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return
		}

		vu.RunIteration(ctx)
		vu.pause(ctx, deadline)
	}
}

// RunIteration issues one POST, evaluates the status check and hands the
// sample to the recorder.
//
// Failures never escape: a non-200 response or a transport error yields a
// failed check. An iteration cut short by ctx cancellation is not recorded.
func (vu *VirtualUser) RunIteration(ctx context.Context) metrics.Sample {
	n := vu.iteration.Add(1)

	sample := vu.executeRequest(ctx, n)
	if sample.Err != nil && ctx.Err() != nil {
		return sample
	}

	if sample.Err != nil {
		vu.logger.Warn("request failed",
			"iteration", n,
			"url", vu.config.Target.URL,
			"error", sample.Err)
	}

	sample.Checks = []metrics.CheckResult{checkStatus200(sample)}
	vu.recorder.Record(sample)
	return sample
}

// executeRequest performs the HTTP round trip and times it.
func (vu *VirtualUser) executeRequest(ctx context.Context, iteration int64) metrics.Sample {
	sample := metrics.Sample{
		VUID:      vu.ID,
		Iteration: iteration,
		StartTime: time.Now(),
	}

	req, err := vu.buildRequest(ctx)
	if err != nil {
		sample.Duration = time.Since(sample.StartTime)
		sample.Err = fmt.Errorf("failed to build request: %w", err)
		return sample
	}

	resp, err := vu.client.Do(req)
	if err != nil {
		sample.Duration = time.Since(sample.StartTime)
		sample.Err = err
		return sample
	}
	defer resp.Body.Close()

	// Drain the body so the connection goes back to the pool.
	n, err := io.Copy(io.Discard, resp.Body)
	sample.Duration = time.Since(sample.StartTime)
	sample.StatusCode = resp.StatusCode
	sample.Bytes = n
	if err != nil && !errors.Is(err, context.Canceled) {
		vu.logger.Debug("failed to read response body", "iteration", iteration, "error", err)
	}

	return sample
}

// buildRequest builds the POST request for the configured target.
func (vu *VirtualUser) buildRequest(ctx context.Context) (*http.Request, error) {
	body := io.Reader(http.NoBody)
	if vu.config.Target.Body != "" {
		body = strings.NewReader(vu.config.Target.Body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, vu.config.Target.URL, body)
	if err != nil {
		return nil, err
	}

	for key, value := range vu.config.Target.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// pause waits for the configured sleep, cut short by the deadline or ctx.
func (vu *VirtualUser) pause(ctx context.Context, deadline time.Time) {
	wait := vu.config.Sleep.Std()
	if remaining := time.Until(deadline); remaining < wait {
		wait = remaining
	}
	if wait <= 0 {
		return
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// checkStatus200 passes iff a response arrived with status 200.
func checkStatus200(s metrics.Sample) metrics.CheckResult {
	return metrics.CheckResult{
		Label:  CheckStatus200,
		Passed: s.Err == nil && s.StatusCode == http.StatusOK,
	}
}
