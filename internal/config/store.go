package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// File names of the runtime-provisioned documents inside the config dir.
const (
	wifiFile    = "wifi_config.json"
	mqttFile    = "mqtt_config.json"
	otaFile     = "ota_config.json"
	versionFile = "ota_version.json"
)

// WiFi holds station credentials captured by the portal.
type WiFi struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// MQTT holds broker session settings.
type MQTT struct {
	Broker   string `json:"broker"`
	Port     int    `json:"port"`
	Topic    string `json:"topic"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// DefaultMQTT returns the broker settings used when no file exists.
func DefaultMQTT() MQTT {
	return MQTT{
		Broker: "broker.hivemq.com",
		Port:   1883,
		Topic:  "esp32/test",
	}
}

// OTA holds over-the-air update settings.
type OTA struct {
	Enabled     bool   `json:"enabled"`
	ServerURL   string `json:"server_url"`
	CheckOnBoot bool   `json:"check_on_boot"`
	AutoUpdate  bool   `json:"auto_update"`
}

// DefaultOTA returns the OTA settings used when no file exists: disabled
// until configured, but boot checks on once it is.
func DefaultOTA() OTA {
	return OTA{CheckOnBoot: true}
}

// Version records the installed firmware version after a successful update.
type Version struct {
	Version   string   `json:"version"`
	Files     []string `json:"files"`
	UpdatedAt int64    `json:"updated_at"`
}

// DefaultVersion is the factory version record.
func DefaultVersion() Version {
	return Version{Version: "0.0.0"}
}

// Store reads and writes the runtime JSON documents in a directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// LoadWiFi returns the saved WiFi credentials, or nil if the device is
// unprovisioned. A corrupt file also reads as unprovisioned: the AP portal
// is the recovery path either way.
func (s *Store) LoadWiFi() *WiFi {
	var cfg WiFi
	if !s.read(wifiFile, &cfg) || cfg.SSID == "" {
		return nil
	}
	return &cfg
}

// SaveWiFi persists WiFi credentials.
func (s *Store) SaveWiFi(cfg WiFi) error {
	return s.write(wifiFile, cfg)
}

// LoadMQTT returns the saved MQTT settings, or defaults.
func (s *Store) LoadMQTT() MQTT {
	cfg := DefaultMQTT()
	s.read(mqttFile, &cfg)
	if cfg.Broker == "" {
		cfg.Broker = "broker.hivemq.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 1883
	}
	if cfg.Topic == "" {
		cfg.Topic = "esp32/test"
	}
	return cfg
}

// SaveMQTT persists MQTT settings.
func (s *Store) SaveMQTT(cfg MQTT) error {
	return s.write(mqttFile, cfg)
}

// LoadOTA returns the saved OTA settings, or defaults.
func (s *Store) LoadOTA() OTA {
	cfg := DefaultOTA()
	s.read(otaFile, &cfg)
	return cfg
}

// SaveOTA persists OTA settings.
func (s *Store) SaveOTA(cfg OTA) error {
	return s.write(otaFile, cfg)
}

// LoadVersion returns the installed version record, or the factory record.
func (s *Store) LoadVersion() Version {
	cfg := DefaultVersion()
	s.read(versionFile, &cfg)
	if cfg.Version == "" {
		cfg.Version = "0.0.0"
	}
	return cfg
}

// SaveVersion persists the version record after a successful update.
func (s *Store) SaveVersion(v Version) error {
	return s.write(versionFile, v)
}

// RemoveAll deletes every provisioned document (factory reset).
func (s *Store) RemoveAll() error {
	var firstErr error
	for _, name := range []string{wifiFile, mqttFile, otaFile, versionFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// read unmarshals a document into v, returning false if the file is
// missing or unreadable.
func (s *Store) read(name string, v any) bool {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// write marshals v and replaces the document through a temp file so a
// power cut mid-write never leaves a truncated config behind.
func (s *Store) write(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
