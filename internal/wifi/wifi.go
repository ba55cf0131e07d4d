// Package wifi manages the wireless link: joining a configured network
// and, when provisioning is needed, hosting the setup access point.
package wifi

import "time"

// Setup access point identity. Fixed so the companion instructions can
// name the network to join.
const (
	APSSID     = "ESP32-Setup"
	APPassword = "12345678"
)

// Manager owns the wireless link lifecycle. The real implementation
// drives NetworkManager; tests use a Fake with scripted link states.
type Manager interface {
	// Connect associates with the given network, blocking at most timeout.
	Connect(ssid, password string, timeout time.Duration) error

	// IsConnected reports whether the station link is currently up.
	// Probe failures read as disconnected.
	IsConnected() bool

	// StartAP brings up the provisioning access point and returns the
	// device's IP on it.
	StartAP(ssid, password string) (string, error)

	// Close tears down anything the manager brought up.
	Close() error
}
