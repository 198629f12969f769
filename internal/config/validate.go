package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	s := cfg.Service

	if s.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "service.base_url", Message: "is required"})
	} else if u, err := url.Parse(s.BaseURL); err != nil || u.Host == "" {
		errs = append(errs, ValidationError{Field: "service.base_url", Message: fmt.Sprintf("invalid URL %q", s.BaseURL)})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{Field: "service.base_url", Message: fmt.Sprintf("unsupported scheme %q (want http or https)", u.Scheme)})
	}

	if s.Timeout != "" && s.Timeout != "0" {
		if d, err := time.ParseDuration(s.Timeout); err != nil {
			errs = append(errs, ValidationError{Field: "service.timeout", Message: fmt.Sprintf("invalid duration %q", s.Timeout)})
		} else if d < 0 {
			errs = append(errs, ValidationError{Field: "service.timeout", Message: "must not be negative"})
		}
	}

	endpoints := []struct {
		field string
		path  string
	}{
		{"service.endpoints.upload", s.Endpoints.Upload},
		{"service.endpoints.analyze", s.Endpoints.Analyze},
		{"service.endpoints.strategy", s.Endpoints.Strategy},
		{"service.endpoints.refactor", s.Endpoints.Refactor},
	}
	seen := make(map[string]string)
	for _, e := range endpoints {
		if e.path == "" {
			errs = append(errs, ValidationError{Field: e.field, Message: "is required"})
			continue
		}
		if !strings.HasPrefix(e.path, "/") {
			errs = append(errs, ValidationError{Field: e.field, Message: fmt.Sprintf("path %q must start with /", e.path)})
		}
		if other, dup := seen[e.path]; dup {
			errs = append(errs, ValidationError{Field: e.field, Message: fmt.Sprintf("duplicates %s", other)})
		}
		seen[e.path] = e.field
	}

	if cfg.History.Enabled && cfg.History.DBPath == "" {
		errs = append(errs, ValidationError{Field: "history.db_path", Message: "is required when history is enabled"})
	}

	return errs
}
