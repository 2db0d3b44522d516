package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"genset-bridge/pkg/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Device  DeviceConfig         `yaml:"device"`
	Poll    PollConfig           `yaml:"poll"`
	MQTT    MQTTConfig           `yaml:"mqtt"`
	HTTP    HTTPConfig           `yaml:"http"`
	Journal JournalConfig        `yaml:"journal"`
	Logging logger.LoggingConfig `yaml:"logging"`
}

// DeviceConfig describes the serial-to-Ethernet bridge in front of the
// generator controller. All timeouts are in milliseconds.
type DeviceConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	DialTimeoutMs    int    `yaml:"dial_timeout"`
	ReadTimeoutMs    int    `yaml:"read_timeout"`
	WriteTimeoutMs   int    `yaml:"write_timeout"`
	MaxResponseBytes int    `yaml:"max_response_bytes"`
}

// DialTimeout returns the dial timeout as a duration
func (d DeviceConfig) DialTimeout() time.Duration {
	return time.Duration(d.DialTimeoutMs) * time.Millisecond
}

// ReadTimeout returns the read timeout as a duration
func (d DeviceConfig) ReadTimeout() time.Duration {
	return time.Duration(d.ReadTimeoutMs) * time.Millisecond
}

// WriteTimeout returns the write timeout as a duration
func (d DeviceConfig) WriteTimeout() time.Duration {
	return time.Duration(d.WriteTimeoutMs) * time.Millisecond
}

// PollConfig controls the status polling cadence, the reconnect backoff
// window and command dispatch bounds. All values are in milliseconds.
type PollConfig struct {
	IntervalMs       int `yaml:"interval"`
	BackoffFloorMs   int `yaml:"backoff_floor"`
	BackoffCeilingMs int `yaml:"backoff_ceiling"`
	GracePeriodMs    int `yaml:"grace_period"`
	CommandTimeoutMs int `yaml:"command_timeout"`
}

// Interval returns the poll interval as a duration
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// BackoffFloor returns the backoff floor as a duration
func (p PollConfig) BackoffFloor() time.Duration {
	return time.Duration(p.BackoffFloorMs) * time.Millisecond
}

// BackoffCeiling returns the backoff ceiling as a duration
func (p PollConfig) BackoffCeiling() time.Duration {
	return time.Duration(p.BackoffCeilingMs) * time.Millisecond
}

// GracePeriod returns the offline grace period as a duration
func (p PollConfig) GracePeriod() time.Duration {
	return time.Duration(p.GracePeriodMs) * time.Millisecond
}

// CommandTimeout returns the default command timeout as a duration
func (p PollConfig) CommandTimeout() time.Duration {
	return time.Duration(p.CommandTimeoutMs) * time.Millisecond
}

// MQTTConfig contains the optional MQTT export settings
type MQTTConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Broker            string `yaml:"broker"`
	Port              int    `yaml:"port"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	ClientID          string `yaml:"client_id"`
	StateTopic        string `yaml:"state_topic"`
	AvailabilityTopic string `yaml:"availability_topic"`
	DiagnosticTopic   string `yaml:"diagnostic_topic"`
	RetryDelay        int    `yaml:"retry_delay"` // Delay between connection retries in milliseconds
	KeepAlive         int    `yaml:"keep_alive"`  // Keepalive in seconds
	HeartbeatInterval int    `yaml:"heartbeat_interval"` // Availability republish interval in seconds
}

// HTTPConfig contains the optional HTTP panel surface settings
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// JournalConfig contains the optional sqlite event journal settings
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoadConfig loads configuration from the specified file, falling back to
// the standard locations. A .env file in the working directory and
// GENSET_* environment variables override the file values.
func LoadConfig(configPath string) (*Config, error) {
	paths := []string{
		configPath,
		"/etc/genset-bridge/config.yaml",
		"./config.yaml",
	}

	var data []byte
	var err error
	var usedPath string

	for _, path := range paths {
		if path == "" {
			continue
		}
		// #nosec G304 - Paths are from a hardcoded list of safe configuration file locations
		data, err = os.ReadFile(path)
		if err == nil {
			usedPath = path
			break
		}
	}

	if err != nil {
		return nil, fmt.Errorf("cannot read configuration file from any of the locations: %v. Last error: %w", paths, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing configuration from %s: %w", usedPath, err)
	}

	// Site-local overrides without editing the shipped config
	_ = godotenv.Load()
	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", usedPath, err)
	}

	logger.LogInfo("✅ Configuration loaded successfully from %s", usedPath)
	return &config, nil
}

// LoadConfigFromString loads configuration from a YAML string (for testing)
func LoadConfigFromString(yamlContent string) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal([]byte(yamlContent), &config); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides overlays GENSET_* environment variables on the file values
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GENSET_DEVICE_HOST"); v != "" {
		c.Device.Host = v
	}
	if v := os.Getenv("GENSET_DEVICE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Device.Port = port
		} else {
			logger.LogWarn("⚠️ Ignoring invalid GENSET_DEVICE_PORT=%q", v)
		}
	}
	if v := os.Getenv("GENSET_MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("GENSET_HTTP_LISTEN"); v != "" {
		c.HTTP.Listen = v
	}
}

// Validate checks the configuration and fills in defaults for anything the
// file leaves unset. Defaults match the bridge wiring observed in the field:
// USR device at 192.168.1.192:8899, 1 s polling, 3 s reads, 1 s→5 s backoff.
func (c *Config) Validate() error {
	if c.Device.Host == "" {
		c.Device.Host = "192.168.1.192"
	}
	if c.Device.Port == 0 {
		c.Device.Port = 8899
	}
	if c.Device.Port < 0 || c.Device.Port > 65535 {
		return fmt.Errorf("device.port %d out of range", c.Device.Port)
	}
	if c.Device.DialTimeoutMs == 0 {
		c.Device.DialTimeoutMs = 3000
	}
	if c.Device.ReadTimeoutMs == 0 {
		c.Device.ReadTimeoutMs = 3000
	}
	if c.Device.WriteTimeoutMs == 0 {
		c.Device.WriteTimeoutMs = 2000
	}
	if c.Device.MaxResponseBytes == 0 {
		c.Device.MaxResponseBytes = 1024
	}
	if c.Device.DialTimeoutMs < 0 || c.Device.ReadTimeoutMs < 0 || c.Device.WriteTimeoutMs < 0 {
		return fmt.Errorf("device timeouts must be non-negative")
	}

	if c.Poll.IntervalMs == 0 {
		c.Poll.IntervalMs = 1000
	}
	if c.Poll.IntervalMs < 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Poll.BackoffFloorMs == 0 {
		c.Poll.BackoffFloorMs = 1000
	}
	if c.Poll.BackoffCeilingMs == 0 {
		c.Poll.BackoffCeilingMs = 5000
	}
	if c.Poll.BackoffCeilingMs < c.Poll.BackoffFloorMs {
		return fmt.Errorf("poll.backoff_ceiling (%dms) must be >= poll.backoff_floor (%dms)",
			c.Poll.BackoffCeilingMs, c.Poll.BackoffFloorMs)
	}
	if c.Poll.GracePeriodMs == 0 {
		c.Poll.GracePeriodMs = 15000
	}
	if c.Poll.CommandTimeoutMs == 0 {
		c.Poll.CommandTimeoutMs = 5000
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is not specified")
		}
		if c.MQTT.Port == 0 {
			c.MQTT.Port = 1883
		}
		if c.MQTT.Port < 0 {
			return fmt.Errorf("mqtt.port must be positive")
		}
		if c.MQTT.ClientID == "" {
			c.MQTT.ClientID = "genset-bridge"
		}
		if c.MQTT.StateTopic == "" {
			c.MQTT.StateTopic = "genset/state"
		}
		if c.MQTT.AvailabilityTopic == "" {
			c.MQTT.AvailabilityTopic = "genset/availability"
		}
		if c.MQTT.DiagnosticTopic == "" {
			c.MQTT.DiagnosticTopic = "genset/diagnostic"
		}
	}

	if c.HTTP.Enabled && c.HTTP.Listen == "" {
		c.HTTP.Listen = ":8093"
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		c.Journal.Path = "genset-events.db"
	}

	return nil
}
