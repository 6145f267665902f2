package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration accepts both Go duration strings ("30m") and plain integer
// seconds in the config file.
type Duration time.Duration

// UnmarshalText lets Viper parse values like "30s", "5m" or bare seconds.
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue returns the plain time.Duration.
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// Config is the TOML file mapped onto one flat structure.
type Config struct {
	ListenPort  int    `mapstructure:"ListenPort"`
	ExternalURL string `mapstructure:"ExternalURL"`
	DataDir     string `mapstructure:"DataDir"`

	// Offline disables every upstream fetch; stale mirrored data is served
	// as-is and misses become 404s.
	Offline bool `mapstructure:"Offline"`

	UpstreamIndexURL    string   `mapstructure:"UpstreamIndexURL"`
	UpstreamDownloadURL string   `mapstructure:"UpstreamDownloadURL"`
	UpstreamTimeout     Duration `mapstructure:"UpstreamTimeout"`
	MirrorTTL           Duration `mapstructure:"MirrorTTL"`

	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`

	DocsBuilderCommand string `mapstructure:"DocsBuilderCommand"`
	DocsQueueSize      int    `mapstructure:"DocsQueueSize"`
}
