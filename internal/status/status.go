// Package status provides a thread-safe status tracker for the ring
// daemon. The orchestration loop writes it every tick; HTTP handlers
// read it concurrently.
package status

import (
	"sync"
	"time"
)

// Counts tallies notable events since startup.
type Counts struct {
	ButtonPresses int
	Commands      int
	Heartbeats    int
	OTAChecks     int
}

// Config contains daemon configuration for display.
type Config struct {
	Broker   string
	Topic    string
	HTTPAddr string
	PollMs   int64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Mode          string
	Direction     int
	Brightness    uint8
	WiFiConnected bool
	MQTTConnected bool
	Version       string
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, version string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Version:   version,
			Config:    cfg,
		},
	}
}

// UpdateRing records the current animation state.
// Called from the loop on every tick.
func (t *Tracker) UpdateRing(mode string, direction int, brightness uint8) {
	t.mu.Lock()
	t.snap.Mode = mode
	t.snap.Direction = direction
	t.snap.Brightness = brightness
	t.mu.Unlock()
}

// SetWiFiConnected sets the WiFi link status.
func (t *Tracker) SetWiFiConnected(connected bool) {
	t.mu.Lock()
	t.snap.WiFiConnected = connected
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetVersion records the installed firmware version.
func (t *Tracker) SetVersion(v string) {
	t.mu.Lock()
	t.snap.Version = v
	t.mu.Unlock()
}

// CountButtonPress increments the button press tally.
func (t *Tracker) CountButtonPress() { t.count(func(c *Counts) { c.ButtonPresses++ }) }

// CountCommand increments the handled command tally.
func (t *Tracker) CountCommand() { t.count(func(c *Counts) { c.Commands++ }) }

// CountHeartbeat increments the heartbeat tally.
func (t *Tracker) CountHeartbeat() { t.count(func(c *Counts) { c.Heartbeats++ }) }

// CountOTACheck increments the update check tally.
func (t *Tracker) CountOTACheck() { t.count(func(c *Counts) { c.OTAChecks++ }) }

func (t *Tracker) count(f func(*Counts)) {
	t.mu.Lock()
	f(&t.snap.Counts)
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
