package robot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gwillem/waypointer/pkg/joy"
	"github.com/gwillem/waypointer/pkg/waypoint"
)

const DefaultConfigFile = "waypointer.json"

// Controller input sources.
const (
	SourceUDP    = "udp"
	SourceSerial = "serial"
	SourceArm    = "arm"
)

// Config holds the waypointer configuration.
type Config struct {
	Hz         int                  `json:"hz"`
	Mapping    joy.Mapping          `json:"mapping"`
	Store      waypoint.StoreConfig `json:"store"`
	Pose       PoseConfig           `json:"pose"`
	Controller ControllerConfig     `json:"controller"`
	Output     OutputConfig         `json:"output"`
}

// PoseConfig controls the UDP pose feed.
type PoseConfig struct {
	UDPAddr    string `json:"udp_addr"`
	ReadBuffer int    `json:"read_buffer,omitempty"`
}

// ControllerConfig selects where controller samples come from.
type ControllerConfig struct {
	Source     string    `json:"source"`
	UDPAddr    string    `json:"udp_addr,omitempty"`
	SerialPort string    `json:"serial_port,omitempty"`
	BaudRate   int       `json:"baud_rate,omitempty"`
	Arm        ArmConfig `json:"arm,omitempty"`
}

// ArmConfig holds configuration for a leader arm used as a controller.
type ArmConfig struct {
	Port            string      `json:"port,omitempty"`
	Calibration     Calibration `json:"calibration,omitempty"`
	ButtonThreshold float64     `json:"button_threshold,omitempty"`
}

// IsCalibrated returns true if the arm has calibration data
func (a *ArmConfig) IsCalibrated() bool {
	return len(a.Calibration) > 0
}

// OutputConfig holds UDP destinations for velocity commands and markers.
// An empty address disables that output.
type OutputConfig struct {
	VelocityAddr string `json:"velocity_addr"`
	MarkerAddr   string `json:"marker_addr"`
}

// DefaultConfig returns a 10 Hz UDP setup writing waypoints.csv.
func DefaultConfig() *Config {
	return &Config{
		Hz:      10,
		Mapping: joy.DefaultMapping(),
		Store: waypoint.StoreConfig{
			Kind: waypoint.KindCSV,
			Path: "waypoints.csv",
		},
		Pose: PoseConfig{UDPAddr: "127.0.0.1:9870"},
		Controller: ControllerConfig{
			Source:   SourceUDP,
			UDPAddr:  "127.0.0.1:9871",
			BaudRate: 115200,
		},
		Output: OutputConfig{
			VelocityAddr: "127.0.0.1:9872",
			MarkerAddr:   "127.0.0.1:9873",
		},
	}
}

// Validate checks the config for values the recorder cannot run with.
func (c *Config) Validate() error {
	if c.Hz <= 0 {
		return fmt.Errorf("hz must be > 0")
	}
	if err := c.Mapping.Validate(); err != nil {
		return err
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must be set")
	}
	switch c.Controller.Source {
	case SourceUDP:
		if c.Controller.UDPAddr == "" {
			return fmt.Errorf("controller.udp_addr must be set")
		}
	case SourceSerial:
		if c.Controller.SerialPort == "" {
			return fmt.Errorf("controller.serial_port must be set")
		}
	case SourceArm:
		if c.Controller.Arm.Port == "" {
			return fmt.Errorf("controller.arm.port must be set")
		}
		if !c.Controller.Arm.Calibration.Complete() {
			return fmt.Errorf("controller arm is not calibrated, run setup")
		}
		if err := c.Controller.Arm.Calibration.Check(); err != nil {
			return fmt.Errorf("controller.arm: %w", err)
		}
	default:
		return fmt.Errorf("unknown controller source %q", c.Controller.Source)
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Missing fields
// keep their DefaultConfig values.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
