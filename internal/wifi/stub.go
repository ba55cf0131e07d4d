//go:build !linux

package wifi

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// RealManager is not available on non-Linux platforms.
type RealManager struct{}

// NewRealManager returns a manager whose operations all fail.
func NewRealManager(iface string, log zerolog.Logger) *RealManager {
	return &RealManager{}
}

// Connect is not implemented on non-Linux platforms.
func (m *RealManager) Connect(ssid, password string, timeout time.Duration) error {
	return errors.New("wifi: not supported on this platform (requires Linux)")
}

// IsConnected always reports disconnected on non-Linux platforms.
func (m *RealManager) IsConnected() bool {
	return false
}

// StartAP is not implemented on non-Linux platforms.
func (m *RealManager) StartAP(ssid, password string) (string, error) {
	return "", errors.New("wifi: not supported on this platform (requires Linux)")
}

// Close is not implemented on non-Linux platforms.
func (m *RealManager) Close() error {
	return nil
}
