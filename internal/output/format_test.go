package output

import (
	"testing"
	"time"
)

func TestFormatNumber(t *testing.T) {
	tests := map[int64]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		1234567: "1,234,567",
		-4200:   "-4,200",
	}
	for in, want := range tests {
		if got := formatNumber(in); got != want {
			t.Errorf("formatNumber(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{30 * time.Second, "30.0s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Minute, "2h 05m 00s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0ms"},
		{750 * time.Microsecond, "750µs"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.50s"},
		{3 * time.Minute, "3.0m"},
	}
	for _, tt := range tests {
		if got := formatDurationShort(tt.in); got != tt.want {
			t.Errorf("formatDurationShort(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderProgressBar(t *testing.T) {
	if got := renderProgressBar(0.5, 4); got != "[██░░]" {
		t.Errorf("renderProgressBar(0.5) = %q", got)
	}
	if got := renderProgressBar(2, 2); got != "[██]" {
		t.Errorf("renderProgressBar(2) = %q, want clamped", got)
	}
	if got := renderProgressBar(-1, 2); got != "[░░]" {
		t.Errorf("renderProgressBar(-1) = %q, want clamped", got)
	}
}

func TestFormatBytes(t *testing.T) {
	if got := formatBytes(512); got != "512 B" {
		t.Errorf("formatBytes(512) = %q", got)
	}
	if got := formatBytes(3 * 1024 * 1024); got != "3.00 MB" {
		t.Errorf("formatBytes(3MB) = %q", got)
	}
}
