package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/spectrum-monitor/internal/storage"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
serial:
  port: /dev/ttyACM0
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Settings.LogLevel != "info" {
		t.Errorf("Expected default log level info, got %q", config.Settings.LogLevel)
	}
	if config.Serial.BaudRate != 115200 {
		t.Errorf("Expected default baud rate 115200, got %d", config.Serial.BaudRate)
	}
	if config.Sweep.StartFreq != 50e3 || config.Sweep.StopFreq != 3e6 {
		t.Errorf("Unexpected default span: %f to %f", config.Sweep.StartFreq, config.Sweep.StopFreq)
	}
	if config.Sweep.Points != 101 {
		t.Errorf("Expected default 101 points, got %d", config.Sweep.Points)
	}
	if got := config.Acquisition.Interval(); got != time.Second {
		t.Errorf("Expected default poll interval 1s, got %s", got)
	}
	if got := config.Recording.Refresh(); got != 20*time.Second {
		t.Errorf("Expected default heatmap refresh 20s, got %s", got)
	}
	if config.Recording.Enabled {
		t.Error("Expected recording disabled by default")
	}
}

func TestLoadConfig_Full(t *testing.T) {
	path := writeConfig(t, `
settings:
  logLevel: debug
serial:
  port: COM3
  baudRate: 921600
  readTimeout: 0.5
sweep:
  startFreq: 88e6
  stopFreq: 108e6
  points: 290
  programSpan: true
  useDeviceAxis: true
acquisition:
  pollInterval: 0.25
  failureThreshold: 10
recording:
  enabled: true
  duration: 3600
  heatmapRefresh: 5
  heatmapMaxRows: 1024
storage:
  dataDirectory: /var/lib/monitor
  backend: sqlite
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Serial.Port != "COM3" {
		t.Errorf("Expected port COM3, got %q", config.Serial.Port)
	}
	if got := config.Serial.Timeout(); got != 500*time.Millisecond {
		t.Errorf("Expected read timeout 500ms, got %s", got)
	}
	if got := config.Acquisition.Interval(); got != 250*time.Millisecond {
		t.Errorf("Expected poll interval 250ms, got %s", got)
	}
	if config.Acquisition.FailureThreshold != 10 {
		t.Errorf("Expected failure threshold 10, got %d", config.Acquisition.FailureThreshold)
	}
	if got := config.Recording.Limit(); got != time.Hour {
		t.Errorf("Expected recording limit 1h, got %s", got)
	}
	if !config.Sweep.ProgramSpan || !config.Sweep.UseDeviceAxis {
		t.Error("Expected span programming and device axis adoption enabled")
	}
	if config.Storage.Backend != storage.BackendSQLite {
		t.Errorf("Expected sqlite backend, got %q", config.Storage.Backend)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"missing port", `
sweep:
  points: 101
`},
		{"zero baud rate", `
serial:
  port: /dev/ttyACM0
  baudRate: 0
`},
		{"inverted span", `
serial:
  port: /dev/ttyACM0
sweep:
  startFreq: 3e6
  stopFreq: 50e3
`},
		{"too few points", `
serial:
  port: /dev/ttyACM0
sweep:
  points: 1
`},
		{"zero poll interval", `
serial:
  port: /dev/ttyACM0
acquisition:
  pollInterval: 0
`},
		{"negative recording duration", `
serial:
  port: /dev/ttyACM0
recording:
  duration: -1
`},
		{"malformed yaml", `serial: [`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.content)); err == nil {
				t.Error("Expected error for invalid configuration")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing configuration file")
	}
}
