// Package config provides configuration parsing and validation for load runs.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Defaults taken from the reference load script.
const (
	DefaultName      = "configurations"
	DefaultVUs       = 50
	DefaultDuration  = 30 * time.Second
	DefaultTargetURL = "http://localhost:8000/configurations"
	DefaultSleep     = time.Second
	DefaultTimeout   = 30 * time.Second
)

// RunConfig is the root configuration for a load run.
//
// Example YAML:
//
//	name: configurations
//	vus: 50
//	duration: 30s
//	target:
//	  url: http://localhost:8000/configurations
//	sleep: 1s
//
// A RunConfig is treated as immutable once Validate has passed; every
// virtual user reads the same instance.
type RunConfig struct {
	// Name of the run (for reporting)
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// VUs is the number of concurrent virtual users
	VUs int `json:"vus" yaml:"vus"`

	// Duration is how long virtual users keep starting iterations
	Duration Duration `json:"duration" yaml:"duration"`

	// Target is the endpoint every iteration posts to
	Target TargetConfig `json:"target" yaml:"target"`

	// Sleep is the pause between two iterations of the same VU
	Sleep Duration `json:"sleep,omitempty" yaml:"sleep,omitempty"`

	// Timeout is the HTTP client timeout for a single request
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// TargetConfig describes the request issued once per iteration.
// The method is always POST.
type TargetConfig struct {
	// URL is the absolute http(s) URL to post to
	URL string `json:"url" yaml:"url"`

	// Body is sent verbatim; empty means no body
	Body string `json:"body,omitempty" yaml:"body,omitempty"`

	// Headers are added to every request
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// ApplyDefaults fills every zero-valued field with its default value.
// Configs read by ParseConfig already carry defaults for absent keys and
// keep explicit zeros, so ApplyDefaults is meant for configs built in code.
func ApplyDefaults(cfg *RunConfig) {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.VUs == 0 {
		cfg.VUs = DefaultVUs
	}
	if cfg.Duration == 0 {
		cfg.Duration = Duration(DefaultDuration)
	}
	if cfg.Target.URL == "" {
		cfg.Target.URL = DefaultTargetURL
	}
	if cfg.Sleep == 0 {
		cfg.Sleep = Duration(DefaultSleep)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = Duration(DefaultTimeout)
	}
}

// Default returns a RunConfig populated with defaults only.
func Default() *RunConfig {
	cfg := &RunConfig{}
	ApplyDefaults(cfg)
	return cfg
}

// Duration is a time.Duration that can be unmarshaled from JSON/YAML strings.
type Duration time.Duration

// ParseDurationString parses a duration string.
//
// Supported formats:
//   - Standard Go duration: "30s", "2m", "1h30m", "500ms"
//   - Seconds as integer: "30" (treated as 30 seconds)
func ParseDurationString(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	seconds, convErr := strconv.Atoi(s)
	if convErr == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	return 0, fmt.Errorf("invalid duration format: %s", s)
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
// Accepts quoted duration strings and bare numbers (seconds).
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if s == "" || s == "null" {
		*d = 0
		return nil
	}

	dur, err := ParseDurationString(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}
