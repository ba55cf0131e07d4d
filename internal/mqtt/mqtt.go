// Package mqtt provides the broker session with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Message is one inbound command message.
type Message struct {
	Topic   string
	Payload []byte
}

// Client is the broker session used by the orchestration loop. All methods
// are non-blocking or bounded; reconnect policy lives with the caller.
type Client interface {
	// Subscribe registers interest in a topic filter.
	Subscribe(topic string) error

	// Publish sends a message at QoS 0.
	Publish(topic string, payload []byte) error

	// Drain returns all inbound messages received since the last call.
	// It never blocks.
	Drain() []Message

	// IsConnected reports whether the session is up.
	IsConnected() bool

	// Reconnect makes one bounded attempt to re-establish the session.
	Reconnect() error

	// Close tears the session down.
	Close() error
}

// Topics relative to the configured base topic.
const (
	TopicHeartbeat = "heartbeat"
	TopicCommand   = "command"
)

// RingCommands are the animation command suffixes under <base>/ring/.
var RingCommands = []string{"chase", "static", "flash", "comet", "spinner", "rainbow", "pulse", "reset"}

// OTACommands are the update command suffixes under <base>/ota/.
var OTACommands = []string{"check", "update", "status"}

// SubscriptionTopics returns every topic filter the device listens on.
func SubscriptionTopics(base string) []string {
	topics := make([]string, 0, len(RingCommands)+len(OTACommands)+2)
	for _, cmd := range RingCommands {
		topics = append(topics, base+"/ring/"+cmd)
	}
	for _, cmd := range OTACommands {
		topics = append(topics, base+"/ota/"+cmd)
	}
	topics = append(topics, base+"/"+TopicCommand, base+"/button/#")
	return topics
}

// HeartbeatPayload is the periodic liveness message.
type HeartbeatPayload struct {
	Device string `json:"device"`
	Status string `json:"status"`
	Uptime int64  `json:"uptime"` // seconds
}

// FormatHeartbeat creates the JSON payload for a heartbeat.
func FormatHeartbeat(device string, uptime time.Duration) ([]byte, error) {
	return json.Marshal(HeartbeatPayload{
		Device: device,
		Status: "alive",
		Uptime: int64(uptime.Seconds()),
	})
}

// ButtonPayload reports a classified button press.
type ButtonPayload struct {
	Device string `json:"device"`
	Button string `json:"button"`
	Uptime int64  `json:"uptime"` // seconds
}

// FormatButtonPress creates the JSON payload for a button press message.
// Button is "1" (short), "2" (long), or "3" (very long).
func FormatButtonPress(device, button string, uptime time.Duration) ([]byte, error) {
	return json.Marshal(ButtonPayload{
		Device: device,
		Button: button,
		Uptime: int64(uptime.Seconds()),
	})
}

// AnnouncePayload is published once when the session comes up.
type AnnouncePayload struct {
	Device    string `json:"device"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// FormatAnnounce creates the JSON payload for the online announcement.
func FormatAnnounce(device string, now time.Time) ([]byte, error) {
	return json.Marshal(AnnouncePayload{
		Device:    device,
		Status:    "online",
		Message:   "device connected successfully",
		Timestamp: now.Unix(),
	})
}

// ClientID derives a stable client id from the machine id, falling back
// to the hostname. The id must survive restarts so the broker sees the
// same session owner.
func ClientID() string {
	if data, err := os.ReadFile("/etc/machine-id"); err == nil {
		id := strings.TrimSpace(string(data))
		if len(id) > 12 {
			id = id[:12]
		}
		if id != "" {
			return "ledring_" + id
		}
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("ledring_%s", host)
}
