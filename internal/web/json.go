package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/ledring/internal/status"
)

// StatusJSON is the JSON representation of the daemon status.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Mode          string     `json:"mode"`
	Direction     string     `json:"direction"`
	Brightness    uint8      `json:"brightness"`
	Version       string     `json:"version"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	WiFi          LinkStatus `json:"wifi"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// LinkStatus reports WiFi link state.
type LinkStatus struct {
	Connected bool `json:"connected"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Topic     string `json:"topic"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	ButtonPresses int `json:"button_presses"`
	Commands      int `json:"commands"`
	Heartbeats    int `json:"heartbeats"`
	OTAChecks     int `json:"ota_checks"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs   int64  `json:"poll_ms"`
	Broker   string `json:"broker"`
	Topic    string `json:"topic"`
	HTTPAddr string `json:"http_addr"`
}

func directionName(d int) string {
	if d < 0 {
		return "counter-clockwise"
	}
	return "clockwise"
}

func formatJSON(snap status.Snapshot) []byte {
	mode := snap.Mode
	if mode == "" {
		mode = "unknown"
	}

	sj := StatusJSON{
		Status: StatusInner{
			Mode:          mode,
			Direction:     directionName(snap.Direction),
			Brightness:    snap.Brightness,
			Version:       snap.Version,
			UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
			StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
			Timestamp:     snap.Now.UTC().Format(time.RFC3339),
			WiFi:          LinkStatus{Connected: snap.WiFiConnected},
			MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker, Topic: snap.Config.Topic},
			Counts: CountsJSON{
				ButtonPresses: snap.Counts.ButtonPresses,
				Commands:      snap.Counts.Commands,
				Heartbeats:    snap.Counts.Heartbeats,
				OTAChecks:     snap.Counts.OTAChecks,
			},
			Config: ConfigJSON{
				PollMs:   snap.Config.PollMs,
				Broker:   snap.Config.Broker,
				Topic:    snap.Config.Topic,
				HTTPAddr: snap.Config.HTTPAddr,
			},
		},
	}

	data, _ := json.MarshalIndent(sj, "", "  ")
	return data
}
