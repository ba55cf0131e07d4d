// Package ota schedules, checks, downloads, and atomically applies
// firmware updates from a remote manifest server.
//
// Known weakness, preserved deliberately: the manifest and files travel
// over plain HTTP and nothing verifies a signature. Trust rests entirely
// on the configured server URL and the manifest's version field.
package ota

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/ledring/internal/animation"
	"github.com/sweeney/ledring/internal/config"
)

// Check interval bounds. The jitter keeps a fleet of devices from hitting
// the update server at the same instant every day.
const (
	checkMinInterval = 22 * time.Hour
	checkMaxInterval = 26 * time.Hour
)

// Manifest is the remote update description.
type Manifest struct {
	Version string         `json:"version"`
	Files   []ManifestFile `json:"files"`
}

// ManifestFile accepts both manifest shapes: a bare file name string or an
// object with a "name" key.
type ManifestFile struct {
	Name string `json:"name"`
}

// UnmarshalJSON implements json.Unmarshaler for ManifestFile.
func (m *ManifestFile) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		m.Name = s
		return nil
	}
	type plain ManifestFile
	return json.Unmarshal(data, (*plain)(m))
}

// UpdateInfo is the outcome of a version check.
type UpdateInfo struct {
	Available      bool     `json:"available"`
	CurrentVersion string   `json:"current_version"`
	NewVersion     string   `json:"new_version"`
	Files          []string `json:"files"`
}

// Status reports scheduling state for the ota/status command.
type Status struct {
	Enabled          bool    `json:"enabled"`
	ServerURL        string  `json:"server_url"`
	CurrentVersion   string  `json:"current_version"`
	LastCheckMsAgo   int64   `json:"last_check_ms_ago"`
	NextCheckInMs    int64   `json:"next_check_in_ms"`
	NextCheckInHours float64 `json:"next_check_in_hours"`
}

// Manager owns the OTA schedule and update application. It is driven
// entirely from the orchestration loop; time is always injected.
type Manager struct {
	store   *config.Store
	httpc   *http.Client
	dir     string // download destination
	restart func()
	rng     *rand.Rand
	log     zerolog.Logger

	lastCheck    time.Time
	nextInterval time.Duration
}

// NewManager creates a manager downloading into dir. restart is invoked
// after a fully applied update; tests inject a recorder.
func NewManager(store *config.Store, dir string, restart func(), log zerolog.Logger) *Manager {
	return &Manager{
		store:   store,
		httpc:   &http.Client{Timeout: 60 * time.Second},
		dir:     dir,
		restart: restart,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     log,
	}
}

// randomInterval picks the next check delay uniformly from [22h, 26h).
func (m *Manager) randomInterval() time.Duration {
	span := int64(checkMaxInterval - checkMinInterval)
	return checkMinInterval + time.Duration(m.rng.Int63n(span))
}

// Init seeds the schedule and, when configured, performs the boot check
// with a visible pulse indicator on the ring. ring may be nil.
func (m *Manager) Init(ring *animation.Engine, now time.Time) {
	cfg := m.store.LoadOTA()
	m.lastCheck = now
	m.nextInterval = m.randomInterval()
	m.log.Info().Float64("hours", m.nextInterval.Hours()).Msg("ota initialized, next check scheduled")

	if !cfg.Enabled {
		return
	}
	m.log.Warn().Str("server_url", cfg.ServerURL).Msg("ota enabled over plain http without signature verification")
	if !cfg.CheckOnBoot {
		return
	}

	m.log.Info().Msg("ota boot check")
	if ring != nil {
		ring.SetMode(animation.ModePulse)
		if c, ok := animation.ParseColor("cyan"); ok {
			ring.SetPulseColor(c)
		}
	}

	info, err := m.Check()
	if err != nil {
		m.log.Warn().Err(err).Msg("ota boot check failed")
	} else if info.Available {
		if cfg.AutoUpdate {
			if err := m.Apply(info); err != nil {
				m.log.Warn().Err(err).Msg("ota boot update failed")
			}
		} else {
			m.log.Info().Str("version", info.NewVersion).Msg("update available but auto_update is disabled")
		}
	}

	// Back to the normal online indication if we are still running.
	if ring != nil {
		ring.SetMode(animation.ModeChase)
		if c, ok := animation.ParseColor("green"); ok {
			ring.SetChaseColor(c)
		}
	}
}

// PeriodicCheck is the zero-argument style poll from the loop: it does
// nothing until the randomized interval has elapsed, then reschedules —
// always, success or not — and runs a check, auto-applying if configured.
// Returns true if an update was applied (the restart hook has fired).
func (m *Manager) PeriodicCheck(now time.Time) bool {
	if m.nextInterval == 0 {
		m.nextInterval = m.randomInterval()
		m.lastCheck = now
		return false
	}
	if now.Sub(m.lastCheck) < m.nextInterval {
		return false
	}

	// Reschedule before anything can fail, so a broken server never
	// stalls the schedule.
	m.lastCheck = now
	m.nextInterval = m.randomInterval()
	m.log.Info().Float64("hours", m.nextInterval.Hours()).Msg("ota periodic check fired, next check scheduled")

	cfg := m.store.LoadOTA()
	if !cfg.Enabled {
		return false
	}

	info, err := m.Check()
	if err != nil {
		m.log.Warn().Err(err).Msg("ota periodic check failed")
		return false
	}
	if info.Available && cfg.AutoUpdate {
		if err := m.Apply(info); err != nil {
			m.log.Warn().Err(err).Msg("ota periodic update failed")
			return false
		}
		return true
	}
	return false
}

// Check fetches the manifest and compares versions. It does not apply
// anything.
func (m *Manager) Check() (*UpdateInfo, error) {
	cfg := m.store.LoadOTA()
	if !cfg.Enabled {
		return nil, fmt.Errorf("ota disabled")
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("no ota server url configured")
	}

	manifest, err := m.fetchManifest(cfg.ServerURL)
	if err != nil {
		return nil, err
	}

	local := m.store.LoadVersion().Version
	info := &UpdateInfo{
		CurrentVersion: local,
		NewVersion:     manifest.Version,
	}
	if RemoteIsNewer(local, manifest.Version) {
		info.Available = true
		for _, f := range manifest.Files {
			if f.Name != "" {
				info.Files = append(info.Files, f.Name)
			}
		}
		m.log.Info().Str("local", local).Str("remote", manifest.Version).Msg("update available")
	} else {
		m.log.Info().Str("local", local).Msg("already up to date")
	}
	return info, nil
}

func (m *Manager) fetchManifest(baseURL string) (*Manifest, error) {
	url := strings.TrimRight(baseURL, "/") + "/manifest.json"
	resp, err := m.httpc.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch manifest: http %d", resp.StatusCode)
	}
	var manifest Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &manifest, nil
}

// Apply downloads every file in the update and swaps each into place.
// The whole update aborts on the first failed download; files already
// swapped in stay — the next scheduled check re-attempts everything.
// On full success it persists the version record and fires the restart
// hook.
func (m *Manager) Apply(info *UpdateInfo) error {
	cfg := m.store.LoadOTA()
	if !cfg.Enabled {
		return fmt.Errorf("ota disabled")
	}
	if info == nil || !info.Available {
		return fmt.Errorf("no update available")
	}
	if len(info.Files) == 0 {
		return fmt.Errorf("manifest lists no files")
	}

	base := strings.TrimRight(cfg.ServerURL, "/")
	m.log.Info().Str("version", info.NewVersion).Int("files", len(info.Files)).Msg("applying update")

	var applied []string
	for _, name := range info.Files {
		if err := m.downloadFile(base+"/"+name, name); err != nil {
			return fmt.Errorf("download %s: %w", name, err)
		}
		applied = append(applied, name)
	}

	record := config.Version{
		Version:   info.NewVersion,
		Files:     applied,
		UpdatedAt: time.Now().Unix(),
	}
	if err := m.store.SaveVersion(record); err != nil {
		return fmt.Errorf("save version record: %w", err)
	}

	m.log.Info().Str("version", info.NewVersion).Msg("update complete, restarting")
	m.restart()
	return nil
}

// downloadFile fetches url into <dir>/<name> through a temp file, then
// removes the original and renames the temp over it.
func (m *Manager) downloadFile(url, name string) error {
	resp, err := m.httpc.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d", resp.StatusCode)
	}

	dest := filepath.Join(m.dir, filepath.Base(name))
	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		return err
	}
	m.log.Info().Str("file", name).Msg("downloaded")
	return nil
}

// Status reports scheduling state for diagnostics.
func (m *Manager) Status(now time.Time) Status {
	cfg := m.store.LoadOTA()
	elapsed := now.Sub(m.lastCheck)
	remaining := m.nextInterval - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Enabled:          cfg.Enabled,
		ServerURL:        cfg.ServerURL,
		CurrentVersion:   m.store.LoadVersion().Version,
		LastCheckMsAgo:   elapsed.Milliseconds(),
		NextCheckInMs:    remaining.Milliseconds(),
		NextCheckInHours: remaining.Hours(),
	}
}

// NextInterval exposes the scheduled delay for tests and diagnostics.
func (m *Manager) NextInterval() time.Duration {
	return m.nextInterval
}

// LastCheck returns when the schedule last fired or was seeded. The loop
// compares it across ticks to tally performed checks.
func (m *Manager) LastCheck() time.Time {
	return m.lastCheck
}

// SetHTTPClient overrides the HTTP client (tests use httptest servers).
func (m *Manager) SetHTTPClient(c *http.Client) {
	m.httpc = c
}
