package ota

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/ledring/internal/config"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, serverURL string) (*Manager, *config.Store, *int) {
	t.Helper()
	dir := t.TempDir()
	store, err := config.NewStore(dir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if serverURL != "" {
		store.SaveOTA(config.OTA{Enabled: true, ServerURL: serverURL, AutoUpdate: true})
	}
	restarts := 0
	m := NewManager(store, dir, func() { restarts++ }, zerolog.Nop())
	return m, store, &restarts
}

func manifestServer(t *testing.T, manifest string, files map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/manifest.json" {
			w.Write([]byte(manifest))
			return
		}
		if body, ok := files[r.URL.Path]; ok {
			w.Write([]byte(body))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestManifestFileAcceptsBothShapes(t *testing.T) {
	var m Manifest
	data := `{"version":"1.2.0","files":[{"name":"main.bin"},"boot.bin"]}`
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m.Files) != 2 || m.Files[0].Name != "main.bin" || m.Files[1].Name != "boot.bin" {
		t.Errorf("got %+v", m.Files)
	}
}

func TestRandomIntervalBounds(t *testing.T) {
	m, _, _ := newTestManager(t, "")
	for i := 0; i < 1000; i++ {
		d := m.randomInterval()
		if d < 22*time.Hour || d >= 26*time.Hour {
			t.Fatalf("interval %v outside [22h, 26h)", d)
		}
	}
}

func TestPeriodicCheckNoopBeforeInterval(t *testing.T) {
	m, _, _ := newTestManager(t, "http://127.0.0.1:1/nowhere")
	m.Init(nil, t0)

	// Much less than 22h: never fires even with a broken server.
	if m.PeriodicCheck(t0.Add(time.Hour)) {
		t.Error("check fired before interval elapsed")
	}
	if m.PeriodicCheck(t0.Add(21 * time.Hour)) {
		t.Error("check fired before interval elapsed")
	}
}

func TestPeriodicCheckAlwaysReschedules(t *testing.T) {
	// Server is unreachable: the check fails, but the schedule must
	// still be renewed into [22h, 26h).
	m, store, _ := newTestManager(t, "")
	store.SaveOTA(config.OTA{Enabled: true, ServerURL: "http://127.0.0.1:1/nowhere", AutoUpdate: true})
	m.httpc = &http.Client{Timeout: 50 * time.Millisecond}

	m.lastCheck = t0
	m.nextInterval = 22 * time.Hour

	fireAt := t0.Add(27 * time.Hour)
	if m.PeriodicCheck(fireAt) {
		t.Error("failed check reported an applied update")
	}
	if !m.lastCheck.Equal(fireAt) {
		t.Errorf("lastCheck not advanced: %v", m.lastCheck)
	}
	if m.nextInterval < 22*time.Hour || m.nextInterval >= 26*time.Hour {
		t.Errorf("rescheduled interval %v outside [22h, 26h)", m.nextInterval)
	}
}

func TestPeriodicCheckDisabledStillReschedules(t *testing.T) {
	m, store, _ := newTestManager(t, "")
	store.SaveOTA(config.OTA{Enabled: false})
	m.lastCheck = t0
	m.nextInterval = 22 * time.Hour

	if m.PeriodicCheck(t0.Add(23 * time.Hour)) {
		t.Error("disabled check applied an update")
	}
	if m.nextInterval < 22*time.Hour || m.nextInterval >= 26*time.Hour {
		t.Errorf("interval %v outside bounds", m.nextInterval)
	}
}

func TestCheckReportsAvailableUpdate(t *testing.T) {
	srv := manifestServer(t, `{"version":"1.0.0","files":["main.bin"]}`, nil)
	m, _, _ := newTestManager(t, srv.URL)

	info, err := m.Check()
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !info.Available {
		t.Error("expected update available from 0.0.0 to 1.0.0")
	}
	if info.CurrentVersion != "0.0.0" || info.NewVersion != "1.0.0" {
		t.Errorf("versions: %+v", info)
	}
	if len(info.Files) != 1 || info.Files[0] != "main.bin" {
		t.Errorf("files: %v", info.Files)
	}
}

func TestCheckUpToDate(t *testing.T) {
	srv := manifestServer(t, `{"version":"1.0.0","files":["main.bin"]}`, nil)
	m, store, _ := newTestManager(t, srv.URL)
	store.SaveVersion(config.Version{Version: "1.0.0"})

	info, err := m.Check()
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if info.Available {
		t.Error("same version reported as update")
	}
	if len(info.Files) != 0 {
		t.Errorf("files should be empty when up to date: %v", info.Files)
	}
}

func TestCheckDisabledErrors(t *testing.T) {
	m, _, _ := newTestManager(t, "")
	if _, err := m.Check(); err == nil {
		t.Error("disabled check should error")
	}
}

func TestApplyDownloadsAndRestarts(t *testing.T) {
	srv := manifestServer(t, `{"version":"2.0.0","files":["main.bin","extra.bin"]}`,
		map[string]string{"/main.bin": "MAIN", "/extra.bin": "EXTRA"})
	m, store, restarts := newTestManager(t, srv.URL)

	info, err := m.Check()
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := m.Apply(info); err != nil {
		t.Fatalf("apply: %v", err)
	}

	for name, want := range map[string]string{"main.bin": "MAIN", "extra.bin": "EXTRA"} {
		data, err := os.ReadFile(filepath.Join(m.dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(data) != want {
			t.Errorf("%s: got %q", name, data)
		}
	}

	v := store.LoadVersion()
	if v.Version != "2.0.0" || len(v.Files) != 2 {
		t.Errorf("version record: %+v", v)
	}
	if *restarts != 1 {
		t.Errorf("restarts: got %d, want 1", *restarts)
	}
}

func TestApplyAbortsOnFirstFailure(t *testing.T) {
	// second.bin 404s: first.bin stays applied, version record untouched,
	// no restart.
	srv := manifestServer(t, `{"version":"2.0.0","files":["first.bin","second.bin"]}`,
		map[string]string{"/first.bin": "FIRST"})
	m, store, restarts := newTestManager(t, srv.URL)

	info, err := m.Check()
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := m.Apply(info); err == nil {
		t.Fatal("apply should fail on missing file")
	}

	if _, err := os.Stat(filepath.Join(m.dir, "first.bin")); err != nil {
		t.Errorf("first.bin should remain applied: %v", err)
	}
	if v := store.LoadVersion(); v.Version != "0.0.0" {
		t.Errorf("version record advanced despite failure: %+v", v)
	}
	if *restarts != 0 {
		t.Errorf("restart fired on failed update")
	}
	// No stray temp files.
	if _, err := os.Stat(filepath.Join(m.dir, "second.bin.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestApplyReplacesExistingFile(t *testing.T) {
	srv := manifestServer(t, `{"version":"2.0.0","files":["main.bin"]}`,
		map[string]string{"/main.bin": "NEW"})
	m, _, _ := newTestManager(t, srv.URL)
	os.WriteFile(filepath.Join(m.dir, "main.bin"), []byte("OLD"), 0o644)

	info, _ := m.Check()
	if err := m.Apply(info); err != nil {
		t.Fatalf("apply: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(m.dir, "main.bin"))
	if string(data) != "NEW" {
		t.Errorf("got %q", data)
	}
}

func TestStatus(t *testing.T) {
	m, store, _ := newTestManager(t, "")
	store.SaveOTA(config.OTA{Enabled: true, ServerURL: "http://srv"})
	m.lastCheck = t0
	m.nextInterval = 24 * time.Hour

	s := m.Status(t0.Add(2 * time.Hour))
	if !s.Enabled || s.ServerURL != "http://srv" {
		t.Errorf("status: %+v", s)
	}
	if s.LastCheckMsAgo != (2 * time.Hour).Milliseconds() {
		t.Errorf("last check ago: %d", s.LastCheckMsAgo)
	}
	if s.NextCheckInMs != (22 * time.Hour).Milliseconds() {
		t.Errorf("next check in: %d", s.NextCheckInMs)
	}
	if s.CurrentVersion != "0.0.0" {
		t.Errorf("version: %q", s.CurrentVersion)
	}
}
