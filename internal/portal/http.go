package portal

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/ledring/internal/config"
)

// clientIODeadline bounds how long one portal client may hold the loop.
// Captive portal clients are on the same hop, so this is generous.
const clientIODeadline = 2 * time.Second

// Paths that OS captive-portal probes request. Any of them gets a
// redirect to the form so the client pops its sign-in sheet.
var probePaths = []string{
	"generate_204",        // Android
	"hotspot-detect.html", // iOS/macOS
	"connecttest",         // Windows (connecttest.txt and friends)
	"success.txt",         // Windows
	"ncsi.txt",            // Windows
}

// HTTPServer serves the configuration form over a single polled TCP
// listener. One request is handled per Poll call.
type HTTPServer struct {
	ln       *net.TCPListener
	store    *config.Store
	ip       string
	log      zerolog.Logger
	received bool
}

// NewHTTPServer binds the portal web server. addr is normally ":80";
// tests pass a loopback ephemeral port. ip is the portal address used in
// redirect targets.
func NewHTTPServer(addr, ip string, store *config.Store, log zerolog.Logger) (*HTTPServer, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve portal addr: %w", err)
	}
	ln, err := net.ListenTCP("tcp4", tcpAddr)
	if err != nil {
		return nil, fmt.Errorf("bind portal web server: %w", err)
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("portal web server up")
	return &HTTPServer{ln: ln, store: store, ip: ip, log: log}, nil
}

// Addr returns the bound address, for tests that use an ephemeral port.
func (s *HTTPServer) Addr() net.Addr { return s.ln.Addr() }

// Poll accepts and serves at most one pending connection, returning true
// exactly once: on the request that delivered a complete configuration.
func (s *HTTPServer) Poll() bool {
	s.ln.SetDeadline(time.Now())
	conn, err := s.ln.Accept()
	if err != nil {
		var nerr net.Error
		if !errors.As(err, &nerr) || !nerr.Timeout() {
			s.log.Debug().Err(err).Msg("portal accept")
		}
		return false
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(clientIODeadline))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return false
	}
	req := string(buf[:n])

	got := s.handle(conn, req)
	if got && !s.received {
		s.received = true
		return true
	}
	return false
}

// handle classifies one raw request and writes the response. It returns
// true when a complete configuration was persisted.
func (s *HTTPServer) handle(conn net.Conn, req string) bool {
	line, _, _ := strings.Cut(req, "\r\n")
	s.log.Debug().Str("request", line).Msg("portal request")

	if strings.HasPrefix(req, "POST /configure") {
		return s.handleConfigure(conn, req)
	}
	for _, p := range probePaths {
		if strings.Contains(req, p) {
			fmt.Fprintf(conn, "HTTP/1.1 302 Found\r\nLocation: http://%s/\r\nContent-Length: 0\r\n\r\n", s.ip)
			return false
		}
	}
	s.writePage(conn, formPage)
	return false
}

func (s *HTTPServer) handleConfigure(conn net.Conn, req string) bool {
	_, body, found := strings.Cut(req, "\r\n\r\n")
	if !found {
		s.writePage(conn, formPage)
		return false
	}
	params := parseForm(body)
	ssid, password := params["ssid"], params["password"]
	if ssid == "" || password == "" {
		s.writePage(conn, formPage)
		return false
	}

	if err := s.store.SaveWiFi(config.WiFi{SSID: ssid, Password: password}); err != nil {
		s.log.Error().Err(err).Msg("save wifi config")
		return false
	}

	mqttCfg := config.DefaultMQTT()
	if v := params["broker"]; v != "" {
		mqttCfg.Broker = v
	}
	if v := params["port"]; v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p < 65536 {
			mqttCfg.Port = p
		}
	}
	if v := params["topic"]; v != "" {
		mqttCfg.Topic = v
	}
	mqttCfg.Username = params["mqtt_user"]
	mqttCfg.Password = params["mqtt_pass"]
	if err := s.store.SaveMQTT(mqttCfg); err != nil {
		s.log.Error().Err(err).Msg("save mqtt config")
	}

	_, otaEnabled := params["ota_enabled"]
	_, bootCheck := params["ota_boot_check"]
	_, autoUpdate := params["ota_auto_update"]
	otaCfg := config.OTA{
		Enabled:     otaEnabled,
		ServerURL:   params["ota_url"],
		CheckOnBoot: bootCheck,
		AutoUpdate:  autoUpdate,
	}
	if err := s.store.SaveOTA(otaCfg); err != nil {
		s.log.Error().Err(err).Msg("save ota config")
	}

	s.log.Info().Str("ssid", ssid).Str("broker", mqttCfg.Broker).Msg("configuration received")
	s.writePage(conn, successPage)
	return true
}

func (s *HTTPServer) writePage(conn net.Conn, page string) {
	fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nCache-Control: no-cache, no-store, must-revalidate\r\n\r\n%s", page)
}

// Close releases the listener.
func (s *HTTPServer) Close() error {
	return s.ln.Close()
}

// parseForm splits urlencoded form data, decoding only the escapes the
// form's field values can actually contain. Unknown escapes pass through
// untouched rather than failing the whole submission.
func parseForm(body string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(body, "&") {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		params[key] = decodeValue(value)
	}
	return params
}

var formDecoder = strings.NewReplacer(
	"+", " ",
	"%40", "@",
	"%2F", "/",
	"%3A", ":",
	"%23", "#",
)

func decodeValue(v string) string {
	return formDecoder.Replace(v)
}
