package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate validates the run configuration.
//
// Returns nil if valid, or a *ValidationErrors containing every problem found.
func (c *RunConfig) Validate() error {
	errs := &ValidationErrors{}

	if c.VUs <= 0 {
		errs.Add("vus", "vus must be greater than 0")
	}
	if c.Duration <= 0 {
		errs.Add("duration", "duration must be greater than 0")
	}
	if c.Sleep < 0 {
		errs.Add("sleep", "sleep cannot be negative")
	}
	if c.Timeout < 0 {
		errs.Add("timeout", "timeout cannot be negative")
	}

	validateTarget("target", &c.Target, errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// validateTarget validates the target endpoint.
func validateTarget(prefix string, t *TargetConfig, errs *ValidationErrors) {
	if t.URL == "" {
		errs.Add(prefix+".url", "url is required")
	} else {
		u, err := url.Parse(t.URL)
		switch {
		case err != nil:
			errs.Add(prefix+".url", fmt.Sprintf("invalid URL: %v", err))
		case u.Scheme != "http" && u.Scheme != "https":
			errs.Add(prefix+".url", fmt.Sprintf("unsupported scheme %q (want http or https)", u.Scheme))
		case u.Host == "":
			errs.Add(prefix+".url", "url must include a host")
		}
	}

	for key := range t.Headers {
		if strings.TrimSpace(key) == "" {
			errs.Add(prefix+".headers", "header name cannot be empty")
		}
	}
}
