package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default radio device candidates, tried in order.
var defaultRadioPaths = []string{"/dev/ttyUSB1", "/dev/ttyUSB2", "/dev/ttyUSB3"}

// Config represents the main application configuration.
type Config struct {
	Settings   Settings         `yaml:"settings"`
	Vehicle    VehicleConfig    `yaml:"vehicle"`
	Radio      RadioConfig      `yaml:"radio"`
	Motors     MotorConfig      `yaml:"motors"`
	Sensors    SensorConfig     `yaml:"sensors"`
	Hydrophone HydrophoneConfig `yaml:"hydrophone"`
	Mission    MissionConfig    `yaml:"mission"`
	Storage    StorageConfig    `yaml:"storage"`
}

// Settings represents global application settings.
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level parses the configured log level, defaulting to info.
func (s Settings) Level() (slog.Level, error) {
	if s.LogLevel == "" {
		return slog.LevelInfo, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	return level, nil
}

// VehicleConfig identifies the vehicle in the dive log.
type VehicleConfig struct {
	Name string `yaml:"name"`
}

// RadioConfig represents the base station link settings. Intervals are in
// seconds.
type RadioConfig struct {
	DevicePaths       []string `yaml:"devicePaths"`
	BaudRate          int      `yaml:"baudRate"`
	PingInterval      float64  `yaml:"pingInterval"`
	TelemetryInterval float64  `yaml:"telemetryInterval"`
	ReceiveInterval   float64  `yaml:"receiveInterval"`
	ConnectionTimeout float64  `yaml:"connectionTimeout"`
}

// MotorConfig represents the ESC bridge settings. Without a serial port the
// vehicle runs with a logging-only motor driver.
type MotorConfig struct {
	SerialPort    string  `yaml:"serialPort"`
	BaudRate      int     `yaml:"baudRate"`
	TurnSpeed     int     `yaml:"turnSpeed"`
	ForwardSpeed  int     `yaml:"forwardSpeed"`
	ManeuverPhase float64 `yaml:"maneuverPhase"`
}

// SensorConfig represents the optional peripherals. A sensor that fails to
// open is skipped, not fatal.
type SensorConfig struct {
	Pressure SerialDeviceConfig `yaml:"pressure"`
	IMU      SerialDeviceConfig `yaml:"imu"`
}

// SerialDeviceConfig represents one serial peripheral.
type SerialDeviceConfig struct {
	DevicePaths []string `yaml:"devicePaths"`
	BaudRate    int      `yaml:"baudRate"`
	Enabled     bool     `yaml:"enabled"`
}

// HydrophoneConfig represents the acoustic capture device.
type HydrophoneConfig struct {
	DevicePath         string `yaml:"devicePath"`
	RecordingDirectory string `yaml:"recordingDirectory"`
	Enabled            bool   `yaml:"enabled"`
}

// MissionConfig represents the mission supervisor settings. Tick and MaxTime
// are in seconds.
type MissionConfig struct {
	Tick    float64 `yaml:"tick"`
	MaxTime float64 `yaml:"maxTime"`
}

// StorageConfig represents dive log settings.
type StorageConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DataDirectory string `yaml:"dataDirectory"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// LoadConfig reads and validates the YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	config := Config{
		Storage: StorageConfig{Enabled: true},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if len(config.Radio.DevicePaths) == 0 {
		config.Radio.DevicePaths = defaultRadioPaths
	}
	if _, err := config.Settings.Level(); err != nil {
		return nil, err
	}

	return &config, nil
}

// seconds converts a configured interval to a duration, with a fallback for
// the zero value.
func seconds(v float64, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return time.Duration(v * float64(time.Second))
}
