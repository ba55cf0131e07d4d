package portal

import (
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/ledring/internal/config"
)

func newTestHTTP(t *testing.T) (*HTTPServer, *config.Store) {
	t.Helper()
	store, err := config.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv, err := NewHTTPServer("127.0.0.1:0", "192.168.4.1", store, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv, store
}

// roundTrip writes a raw request, polls the server until it handles the
// connection, and returns the raw response plus Poll's result.
func roundTrip(t *testing.T, srv *HTTPServer, request string) (string, bool) {
	t.Helper()
	conn, err := net.Dial("tcp4", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(request)); err != nil {
		t.Fatal(err)
	}

	var received bool
	deadline := time.Now().Add(2 * time.Second)
	for {
		if srv.Poll() {
			received = true
		}
		conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		resp, _ := io.ReadAll(conn)
		if len(resp) > 0 {
			return string(resp), received
		}
		if time.Now().After(deadline) {
			t.Fatal("no response from portal")
		}
	}
}

func TestServesConfigForm(t *testing.T) {
	srv, _ := newTestHTTP(t)
	resp, received := roundTrip(t, srv, "GET / HTTP/1.1\r\nHost: 192.168.4.1\r\n\r\n")
	if received {
		t.Error("plain GET reported config received")
	}
	if !strings.HasPrefix(resp, "HTTP/1.1 200 OK") {
		t.Errorf("status line = %q", firstLine(resp))
	}
	if !strings.Contains(resp, `name="ssid"`) {
		t.Error("response is not the configuration form")
	}
	if !strings.Contains(resp, "no-cache") {
		t.Error("form served without cache suppression")
	}
}

func TestProbePathsRedirect(t *testing.T) {
	srv, _ := newTestHTTP(t)
	for _, path := range []string{"/generate_204", "/hotspot-detect.html", "/connecttest.txt", "/ncsi.txt"} {
		resp, _ := roundTrip(t, srv, "GET "+path+" HTTP/1.1\r\nHost: captive.example\r\n\r\n")
		if !strings.HasPrefix(resp, "HTTP/1.1 302 Found") {
			t.Errorf("%s: status line = %q, want 302", path, firstLine(resp))
		}
		if !strings.Contains(resp, "Location: http://192.168.4.1/") {
			t.Errorf("%s: missing redirect to portal root", path)
		}
	}
}

func TestConfigureSavesAllConfigs(t *testing.T) {
	srv, store := newTestHTTP(t)
	body := "ssid=Home+Net&password=s3cret%40x&broker=mq.example.com&port=8883&topic=house%2Fring" +
		"&mqtt_user=bob&mqtt_pass=hunter2&ota_enabled=1&ota_url=http%3A//srv/fw&ota_boot_check=1"
	req := "POST /configure HTTP/1.1\r\nHost: 192.168.4.1\r\nContent-Type: application/x-www-form-urlencoded\r\n\r\n" + body

	resp, received := roundTrip(t, srv, req)
	if !received {
		t.Fatal("Poll did not signal config received")
	}
	if !strings.Contains(resp, "Configuration Saved") {
		t.Errorf("response is not the success page: %q", firstLine(resp))
	}

	wifiCfg := store.LoadWiFi()
	if wifiCfg == nil {
		t.Fatal("wifi config not persisted")
	}
	if wifiCfg.SSID != "Home Net" || wifiCfg.Password != "s3cret@x" {
		t.Errorf("wifi = %+v, want decoded ssid/password", wifiCfg)
	}

	mqttCfg := store.LoadMQTT()
	if mqttCfg.Broker != "mq.example.com" || mqttCfg.Port != 8883 || mqttCfg.Topic != "house/ring" {
		t.Errorf("mqtt = %+v", mqttCfg)
	}
	if mqttCfg.Username != "bob" || mqttCfg.Password != "hunter2" {
		t.Errorf("mqtt credentials = %q/%q", mqttCfg.Username, mqttCfg.Password)
	}

	otaCfg := store.LoadOTA()
	if !otaCfg.Enabled || otaCfg.ServerURL != "http://srv/fw" || !otaCfg.CheckOnBoot || otaCfg.AutoUpdate {
		t.Errorf("ota = %+v", otaCfg)
	}
}

func TestConfigureMissingCredentialsServesForm(t *testing.T) {
	srv, store := newTestHTTP(t)
	req := "POST /configure HTTP/1.1\r\nHost: x\r\n\r\nbroker=mq.example.com"

	resp, received := roundTrip(t, srv, req)
	if received {
		t.Error("incomplete submission reported as received")
	}
	if !strings.Contains(resp, `name="ssid"`) {
		t.Error("expected the form back for an incomplete submission")
	}
	if store.LoadWiFi() != nil {
		t.Error("incomplete submission persisted wifi config")
	}
}

func TestConfigReceivedSignaledOnce(t *testing.T) {
	srv, _ := newTestHTTP(t)
	req := "POST /configure HTTP/1.1\r\nHost: x\r\n\r\nssid=a&password=b"

	if _, received := roundTrip(t, srv, req); !received {
		t.Fatal("first submission not signaled")
	}
	if _, received := roundTrip(t, srv, req); received {
		t.Error("second submission signaled again")
	}
}

func TestParseFormDecoding(t *testing.T) {
	params := parseForm("a=x+y&b=u%40h%2Fp%3A1%23f&weird&c=")
	if params["a"] != "x y" {
		t.Errorf("a = %q", params["a"])
	}
	if params["b"] != "u@h/p:1#f" {
		t.Errorf("b = %q", params["b"])
	}
	if _, ok := params["weird"]; ok {
		t.Error("pair without '=' should be skipped")
	}
	if v, ok := params["c"]; !ok || v != "" {
		t.Errorf("c = %q, %v", v, ok)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\r\n")
	return line
}
