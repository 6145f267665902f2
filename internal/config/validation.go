package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate applies semantic checks so an invalid config never starts the
// service.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is empty")
	}

	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return newFieldError("ListenPort", "must be within 1-65535")
	}
	if c.DataDir == "" {
		return newFieldError("DataDir", "must not be empty")
	}
	if err := validateURL(c.ExternalURL); err != nil {
		return fmt.Errorf("ExternalURL: %w", err)
	}

	if !c.Offline {
		if err := validateURL(c.UpstreamIndexURL); err != nil {
			return fmt.Errorf("UpstreamIndexURL: %w", err)
		}
		if err := validateURL(c.UpstreamDownloadURL); err != nil {
			return fmt.Errorf("UpstreamDownloadURL: %w", err)
		}
	}

	if c.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("UpstreamTimeout", "must be greater than 0")
	}
	if c.MirrorTTL.DurationValue() <= 0 {
		return newFieldError("MirrorTTL", "must be greater than 0")
	}
	if c.DocsQueueSize < 0 {
		return newFieldError("DocsQueueSize", "must not be negative")
	}
	return nil
}

func validateURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return errors.New("must not be empty")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
