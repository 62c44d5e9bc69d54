package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/spectrum-monitor/internal/acquire"
	"github.com/roman-kulish/spectrum-monitor/internal/serial"
	"github.com/roman-kulish/spectrum-monitor/internal/storage"
	"github.com/roman-kulish/spectrum-monitor/internal/sweep"
)

// Config represents the main application configuration. Interval-valued
// fields are expressed in seconds.
type Config struct {
	Settings    Settings          `yaml:"settings"`
	Serial      SerialConfig      `yaml:"serial"`
	Sweep       SweepConfig       `yaml:"sweep"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Recording   RecordingConfig   `yaml:"recording"`
	Storage     storage.Config    `yaml:"storage"`
}

// Settings represents global application settings.
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// SerialConfig represents the serial connection settings.
type SerialConfig struct {
	Port        string  `yaml:"port"`
	BaudRate    uint    `yaml:"baudRate"`
	ReadTimeout float64 `yaml:"readTimeout"` // seconds
}

// SweepConfig represents the sweep span and decoding settings.
type SweepConfig struct {
	StartFreq     float64 `yaml:"startFreq"` // Hz
	StopFreq      float64 `yaml:"stopFreq"`  // Hz
	Points        int     `yaml:"points"`
	MinDB         float64 `yaml:"minDB"`
	MaxDB         float64 `yaml:"maxDB"`
	ProgramSpan   bool    `yaml:"programSpan"`   // push the configured span to the device on startup
	UseDeviceAxis bool    `yaml:"useDeviceAxis"` // adopt the device-reported frequency list on startup
}

// AcquisitionConfig represents the polling loop settings.
type AcquisitionConfig struct {
	PollInterval     float64 `yaml:"pollInterval"` // seconds
	FailureThreshold int     `yaml:"failureThreshold"`
}

// RecordingConfig represents the recording session settings.
type RecordingConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Duration       float64 `yaml:"duration"`       // seconds, 0 records until shutdown
	HeatmapRefresh float64 `yaml:"heatmapRefresh"` // seconds
	HeatmapMaxRows int     `yaml:"heatmapMaxRows"`
}

// LoadConfig reads and validates a YAML configuration file, applying
// defaults for unset values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Settings: Settings{LogLevel: "info"},
		Serial: SerialConfig{
			BaudRate:    115200,
			ReadTimeout: serial.DefaultReadTimeout.Seconds(),
		},
		Sweep: SweepConfig{
			StartFreq: 50e3,
			StopFreq:  3e6,
			Points:    101,
			MinDB:     sweep.DefaultMinDB,
			MaxDB:     sweep.DefaultMaxDB,
		},
		Acquisition: AcquisitionConfig{
			PollInterval:     1,
			FailureThreshold: acquire.DefaultFailureThreshold,
		},
		Recording: RecordingConfig{
			HeatmapRefresh: 20,
		},
	}
}

func (c *Config) validate() error {
	if c.Serial.Port == "" {
		return fmt.Errorf("serial.port is required")
	}
	if c.Serial.BaudRate == 0 {
		return fmt.Errorf("serial.baudRate must be positive")
	}
	if c.Sweep.StartFreq >= c.Sweep.StopFreq {
		return fmt.Errorf("sweep span is invalid: startFreq=%f, stopFreq=%f", c.Sweep.StartFreq, c.Sweep.StopFreq)
	}
	if c.Sweep.Points < 2 {
		return fmt.Errorf("sweep.points must be at least 2")
	}
	if c.Acquisition.PollInterval <= 0 {
		return fmt.Errorf("acquisition.pollInterval must be positive")
	}
	if c.Recording.Duration < 0 {
		return fmt.Errorf("recording.duration must not be negative")
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Timeout returns the serial read timeout as a duration.
func (c SerialConfig) Timeout() time.Duration {
	return seconds(c.ReadTimeout)
}

// Interval returns the poll interval as a duration.
func (c AcquisitionConfig) Interval() time.Duration {
	return seconds(c.PollInterval)
}

// Limit returns the recording duration limit as a duration.
func (c RecordingConfig) Limit() time.Duration {
	return seconds(c.Duration)
}

// Refresh returns the heatmap refresh period as a duration.
func (c RecordingConfig) Refresh() time.Duration {
	return seconds(c.HeatmapRefresh)
}
