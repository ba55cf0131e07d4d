// Package config handles the two configuration layers of the device: the
// static hardware config baked into the image (device.yaml) and the
// runtime-provisioned JSON documents written by the captive portal and the
// OTA manager. For every document, absence is not an error — defaults apply.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from yaml strings ("50ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Device is the static hardware and daemon configuration.
type Device struct {
	LEDCount     int      `yaml:"led_count"`
	LEDSPIDevice string   `yaml:"led_spi_device"`
	ButtonPin    int      `yaml:"button_pin"`
	PollInterval Duration `yaml:"poll_interval"`
	LogLevel     string   `yaml:"log_level"`
	LogColors    bool     `yaml:"log_colors"`
	Dir          string   `yaml:"config_dir"`
}

// DefaultDevice returns the device config used when device.yaml is absent.
func DefaultDevice() Device {
	return Device{
		LEDCount:     24,
		LEDSPIDevice: "/dev/spidev0.0",
		ButtonPin:    5,
		PollInterval: Duration(50 * time.Millisecond),
		LogLevel:     "info",
		LogColors:    false,
		Dir:          "/var/lib/ledring",
	}
}

// LoadDevice reads the static device config. A missing file yields
// defaults; a malformed file is an error, since it means the image is bad.
func LoadDevice(path string) (Device, error) {
	dev := DefaultDevice()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dev, nil
		}
		return dev, fmt.Errorf("read device config: %w", err)
	}
	if err := yaml.Unmarshal(data, &dev); err != nil {
		return dev, fmt.Errorf("parse device config: %w", err)
	}
	if dev.LEDCount <= 0 {
		dev.LEDCount = 24
	}
	if dev.PollInterval <= 0 {
		dev.PollInterval = Duration(50 * time.Millisecond)
	}
	return dev, nil
}
