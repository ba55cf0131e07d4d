package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestWiFiAbsentIsUnprovisioned(t *testing.T) {
	s := newTestStore(t)
	if cfg := s.LoadWiFi(); cfg != nil {
		t.Errorf("expected nil for absent config, got %+v", cfg)
	}
}

func TestWiFiRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveWiFi(WiFi{SSID: "Home", Password: "pw123"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	cfg := s.LoadWiFi()
	if cfg == nil {
		t.Fatal("load returned nil after save")
	}
	if cfg.SSID != "Home" || cfg.Password != "pw123" {
		t.Errorf("got %+v", cfg)
	}
}

func TestWiFiCorruptReadsAsUnprovisioned(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(dir)
	os.WriteFile(filepath.Join(dir, "wifi_config.json"), []byte("{not json"), 0o600)
	if cfg := s.LoadWiFi(); cfg != nil {
		t.Errorf("corrupt file should read as unprovisioned, got %+v", cfg)
	}
}

func TestMQTTDefaults(t *testing.T) {
	s := newTestStore(t)
	cfg := s.LoadMQTT()
	if cfg.Broker != "broker.hivemq.com" {
		t.Errorf("broker: got %q", cfg.Broker)
	}
	if cfg.Port != 1883 {
		t.Errorf("port: got %d", cfg.Port)
	}
	if cfg.Topic != "esp32/test" {
		t.Errorf("topic: got %q", cfg.Topic)
	}
}

func TestMQTTRoundTrip(t *testing.T) {
	s := newTestStore(t)
	in := MQTT{Broker: "10.0.0.2", Port: 8883, Topic: "home/ring", Username: "u", Password: "p"}
	if err := s.SaveMQTT(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := s.LoadMQTT(); got != in {
		t.Errorf("got %+v, want %+v", got, in)
	}
}

func TestOTADefaultsDisabled(t *testing.T) {
	s := newTestStore(t)
	cfg := s.LoadOTA()
	if cfg.Enabled {
		t.Error("OTA should default to disabled")
	}
	if !cfg.CheckOnBoot {
		t.Error("check_on_boot should default to true")
	}
}

func TestVersionDefaults(t *testing.T) {
	s := newTestStore(t)
	if v := s.LoadVersion(); v.Version != "0.0.0" {
		t.Errorf("got %q, want 0.0.0", v.Version)
	}
}

func TestVersionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	in := Version{Version: "1.2.3", Files: []string{"main.bin"}, UpdatedAt: 1234}
	if err := s.SaveVersion(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := s.LoadVersion()
	if got.Version != "1.2.3" || len(got.Files) != 1 || got.UpdatedAt != 1234 {
		t.Errorf("got %+v", got)
	}
}

func TestRemoveAll(t *testing.T) {
	s := newTestStore(t)
	s.SaveWiFi(WiFi{SSID: "x", Password: "y"})
	s.SaveMQTT(DefaultMQTT())
	if err := s.RemoveAll(); err != nil {
		t.Fatalf("remove all: %v", err)
	}
	if s.LoadWiFi() != nil {
		t.Error("wifi config survived RemoveAll")
	}
	// Removing nothing is fine too.
	if err := s.RemoveAll(); err != nil {
		t.Errorf("second RemoveAll: %v", err)
	}
}

func TestLoadDeviceDefaults(t *testing.T) {
	dev, err := LoadDevice(filepath.Join(t.TempDir(), "device.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if dev.LEDCount != 24 || dev.ButtonPin != 5 {
		t.Errorf("defaults: got %+v", dev)
	}
	if dev.PollInterval.Duration() != 50*time.Millisecond {
		t.Errorf("poll interval: got %v", dev.PollInterval)
	}
}

func TestLoadDeviceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.yaml")
	yaml := "led_count: 16\nbutton_pin: 17\npoll_interval: 25ms\nlog_level: debug\n"
	os.WriteFile(path, []byte(yaml), 0o600)

	dev, err := LoadDevice(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if dev.LEDCount != 16 || dev.ButtonPin != 17 {
		t.Errorf("got %+v", dev)
	}
	if dev.PollInterval.Duration() != 25*time.Millisecond {
		t.Errorf("poll interval: got %v", dev.PollInterval)
	}
	if dev.LogLevel != "debug" {
		t.Errorf("log level: got %q", dev.LogLevel)
	}
}

func TestLoadDeviceMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.yaml")
	os.WriteFile(path, []byte("led_count: [1, 2"), 0o600)
	if _, err := LoadDevice(path); err == nil {
		t.Error("malformed device.yaml should error")
	}
}
