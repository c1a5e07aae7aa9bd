package config

import (
	"testing"
	"time"
)

func TestParseDurationString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "standard seconds", input: "30s", expected: 30 * time.Second},
		{name: "milliseconds", input: "500ms", expected: 500 * time.Millisecond},
		{name: "combined duration", input: "1m30s", expected: 90 * time.Second},
		{name: "integer as seconds", input: "3", expected: 3 * time.Second},
		{name: "surrounding spaces", input: " 2s ", expected: 2 * time.Second},
		{name: "empty string", input: "", expected: 0},
		{name: "invalid format", input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDurationString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDurationString() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.expected {
				t.Errorf("ParseDurationString() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &RunConfig{}
	ApplyDefaults(cfg)

	if cfg.Name != DefaultName {
		t.Errorf("Name = %q, want %q", cfg.Name, DefaultName)
	}
	if cfg.VUs != 50 {
		t.Errorf("VUs = %d, want 50", cfg.VUs)
	}
	if cfg.Duration.Std() != 30*time.Second {
		t.Errorf("Duration = %v, want 30s", cfg.Duration)
	}
	if cfg.Target.URL != "http://localhost:8000/configurations" {
		t.Errorf("Target.URL = %q", cfg.Target.URL)
	}
	if cfg.Sleep.Std() != time.Second {
		t.Errorf("Sleep = %v, want 1s", cfg.Sleep)
	}
	if cfg.Timeout.Std() != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &RunConfig{
		Name:     "smoke",
		VUs:      3,
		Duration: Duration(5 * time.Second),
		Target:   TargetConfig{URL: "http://example.test/x"},
		Sleep:    Duration(200 * time.Millisecond),
	}
	ApplyDefaults(cfg)

	if cfg.Name != "smoke" || cfg.VUs != 3 {
		t.Errorf("explicit values overwritten: %+v", cfg)
	}
	if cfg.Duration.Std() != 5*time.Second {
		t.Errorf("Duration = %v, want 5s", cfg.Duration)
	}
	if cfg.Sleep.Std() != 200*time.Millisecond {
		t.Errorf("Sleep = %v, want 200ms", cfg.Sleep)
	}
	if cfg.Target.URL != "http://example.test/x" {
		t.Errorf("Target.URL = %q", cfg.Target.URL)
	}
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{input: `"30s"`, expected: 30 * time.Second},
		{input: `"1m"`, expected: time.Minute},
		{input: `45`, expected: 45 * time.Second},
		{input: `""`, expected: 0},
		{input: `null`, expected: 0},
		{input: `"later"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalJSON([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && d.Std() != tt.expected {
				t.Errorf("UnmarshalJSON() = %v, want %v", d.Std(), tt.expected)
			}
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	got, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(got) != `"1.5s"` {
		t.Errorf("MarshalJSON() = %s, want \"1.5s\"", got)
	}
}
