package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/cargohold/cargohold/internal/config"
)

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	if _, err := InitLogger(&config.Config{LogLevel: "loud"}); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestInitLoggerDefaults(t *testing.T) {
	logger, err := InitLogger(&config.Config{LogLevel: "debug"})
	if err != nil {
		t.Fatalf("InitLogger: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want JSONFormatter", logger.Formatter)
	}
}

func TestInitLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "registry.log")
	logger, err := InitLogger(&config.Config{
		LogLevel:    "info",
		LogFilePath: path,
		LogMaxSize:  1,
	})
	if err != nil {
		t.Fatalf("InitLogger: %v", err)
	}

	logger.WithFields(BaseFields("startup", "config.toml")).Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty")
	}
}

func TestRequestFieldsOmitsEmptyValues(t *testing.T) {
	fields := RequestFields("publish", "req-1", "foo", "")
	if fields["action"] != "publish" || fields["request_id"] != "req-1" {
		t.Errorf("unexpected fields: %v", fields)
	}
	if fields["crate"] != "foo" {
		t.Errorf("crate = %v", fields["crate"])
	}
	if _, present := fields["version"]; present {
		t.Error("empty version should be omitted")
	}
}
