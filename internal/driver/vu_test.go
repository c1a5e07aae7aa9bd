package driver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/poleepo/loaddriver/internal/config"
	"github.com/poleepo/loaddriver/internal/metrics"
)

func TestCheckStatus200(t *testing.T) {
	tests := []struct {
		name   string
		sample metrics.Sample
		want   bool
	}{
		{name: "200", sample: metrics.Sample{StatusCode: 200}, want: true},
		{name: "201", sample: metrics.Sample{StatusCode: 201}, want: false},
		{name: "500", sample: metrics.Sample{StatusCode: 500}, want: false},
		{name: "transport error", sample: metrics.Sample{Err: errors.New("dial tcp: connection refused")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkStatus200(tt.sample)
			if got.Label != CheckStatus200 {
				t.Errorf("Label = %q, want %q", got.Label, CheckStatus200)
			}
			if got.Passed != tt.want {
				t.Errorf("Passed = %v, want %v", got.Passed, tt.want)
			}
		})
	}
}

func TestVirtualUser_RunIteration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Target.URL = server.URL
	collector := metrics.NewCollector()
	vu := NewVirtualUser(7, cfg, server.Client(), collector, nil)

	sample := vu.RunIteration(context.Background())

	if sample.VUID != 7 || sample.Iteration != 1 {
		t.Errorf("sample VU/iteration = %d/%d, want 7/1", sample.VUID, sample.Iteration)
	}
	if sample.Bytes != 10 {
		t.Errorf("Bytes = %d, want 10", sample.Bytes)
	}
	if len(sample.Checks) != 1 || !sample.Checks[0].Passed {
		t.Errorf("Checks = %+v, want one passed check", sample.Checks)
	}
	if vu.GetIteration() != 1 {
		t.Errorf("GetIteration() = %d, want 1", vu.GetIteration())
	}
	if got := collector.Summary().Iterations; got != 1 {
		t.Errorf("recorded iterations = %d, want 1", got)
	}
}

func TestVirtualUser_CancelledIterationNotRecorded(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := config.Default()
	cfg.Target.URL = server.URL
	collector := metrics.NewCollector()
	vu := NewVirtualUser(1, cfg, server.Client(), collector, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sample := vu.RunIteration(ctx)
	if sample.Err == nil {
		t.Fatal("expected cancelled request to return an error")
	}
	if got := collector.Summary().Iterations; got != 0 {
		t.Errorf("recorded iterations = %d, want 0", got)
	}
}

func TestVirtualUser_PauseStopsAtDeadline(t *testing.T) {
	cfg := config.Default()
	cfg.Sleep = config.Duration(5 * time.Second)
	vu := NewVirtualUser(1, cfg, http.DefaultClient, metrics.NewCollector(), nil)

	start := time.Now()
	vu.pause(context.Background(), start.Add(100*time.Millisecond))

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("pause took %v, want it cut at the deadline", elapsed)
	}
}

func TestHTTPClientConfigFor(t *testing.T) {
	cfg := httpClientConfigFor(2000, 2*time.Second)
	if cfg.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", cfg.Timeout)
	}
	if cfg.MaxIdleConnsPerHost != 2000 || cfg.MaxIdleConns != 2000 {
		t.Errorf("idle pool = %d/%d, want 2000/2000", cfg.MaxIdleConns, cfg.MaxIdleConnsPerHost)
	}

	small := httpClientConfigFor(5, 0)
	if small.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want default 30s", small.Timeout)
	}
	if small.MaxIdleConnsPerHost != 100 {
		t.Errorf("MaxIdleConnsPerHost = %d, want 100", small.MaxIdleConnsPerHost)
	}
}
