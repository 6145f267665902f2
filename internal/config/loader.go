package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads and parses the TOML config file, applying defaults and
// validation.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absData, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve data dir: %w", err)
	}
	cfg.DataDir = absData

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 1491)
	v.SetDefault("ExternalURL", "http://localhost:1491")
	v.SetDefault("DataDir", "./data")
	v.SetDefault("Offline", false)
	v.SetDefault("UpstreamIndexURL", "https://index.crates.io")
	v.SetDefault("UpstreamDownloadURL", "https://crates.io/api/v1/crates")
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("MirrorTTL", "30m")
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("DocsBuilderCommand", "")
	v.SetDefault("DocsQueueSize", 128)
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if intVal, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return Duration(time.Duration(intVal) * time.Second), nil
			}
			return nil, fmt.Errorf("invalid duration value: %s", v)
		case int, int32, int64, float64:
			seconds, err := strconv.ParseInt(fmt.Sprintf("%v", v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid duration value: %v", v)
			}
			return Duration(time.Duration(seconds) * time.Second), nil
		default:
			return data, nil
		}
	}
}
