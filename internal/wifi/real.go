//go:build linux

package wifi

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const hotspotConn = "ledring-setup"

// RealManager drives the wireless link through NetworkManager's nmcli.
// Every invocation is bounded by a context deadline so a wedged nmcli
// cannot stall the orchestration loop's startup path.
type RealManager struct {
	iface string
	log   zerolog.Logger

	apUp bool
}

// NewRealManager creates a manager for the given wireless interface
// (e.g. "wlan0"). Empty means let nmcli pick.
func NewRealManager(iface string, log zerolog.Logger) *RealManager {
	return &RealManager{iface: iface, log: log}
}

// Connect associates with the network, blocking at most timeout.
func (m *RealManager) Connect(ssid, password string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	args := []string{"device", "wifi", "connect", ssid, "password", password}
	if m.iface != "" {
		args = append(args, "ifname", m.iface)
	}
	out, err := exec.CommandContext(ctx, "nmcli", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("nmcli connect %q: %w: %s", ssid, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// IsConnected reports whether any wifi device is in the connected state.
// Probe failures read as disconnected.
func (m *RealManager) IsConnected() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "nmcli", "-t", "-f", "DEVICE,TYPE,STATE", "device").Output()
	if err != nil {
		m.log.Debug().Err(err).Msg("nmcli state probe failed")
		return false
	}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		fields := strings.Split(line, ":")
		if len(fields) != 3 || fields[1] != "wifi" {
			continue
		}
		if m.iface != "" && fields[0] != m.iface {
			continue
		}
		if fields[2] == "connected" {
			return true
		}
	}
	return false
}

// StartAP brings up the provisioning hotspot and returns the device's IP
// on it. NetworkManager shared mode hands the device 10.42.0.1 unless the
// connection says otherwise, so that is the fallback when the address
// query fails.
func (m *RealManager) StartAP(ssid, password string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	args := []string{"device", "wifi", "hotspot", "con-name", hotspotConn, "ssid", ssid, "password", password}
	if m.iface != "" {
		args = append(args, "ifname", m.iface)
	}
	out, err := exec.CommandContext(ctx, "nmcli", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("nmcli hotspot: %w: %s", err, strings.TrimSpace(string(out)))
	}
	m.apUp = true

	ip := m.hotspotIP(ctx)
	if ip == "" {
		ip = "10.42.0.1"
	}
	m.log.Info().Str("ssid", ssid).Str("ip", ip).Msg("access point up")
	return ip, nil
}

func (m *RealManager) hotspotIP(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "nmcli", "-t", "-f", "IP4.ADDRESS", "connection", "show", hotspotConn).Output()
	if err != nil {
		return ""
	}
	// IP4.ADDRESS[1]:10.42.0.1/24
	line := strings.TrimSpace(string(out))
	if i := strings.IndexByte(line, ':'); i >= 0 {
		line = line[i+1:]
	}
	if i := strings.IndexByte(line, '/'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// Close tears down the hotspot if this manager started one.
func (m *RealManager) Close() error {
	if !m.apUp {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if out, err := exec.CommandContext(ctx, "nmcli", "connection", "down", hotspotConn).CombinedOutput(); err != nil {
		return fmt.Errorf("nmcli hotspot down: %w: %s", err, strings.TrimSpace(string(out)))
	}
	m.apUp = false
	return nil
}
