// Package device is the orchestrator: one cooperative loop that owns the
// animation engine, button, broker session, link health, portal, and
// update schedule. Nothing in here blocks longer than one tick.
package device

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/ledring/internal/animation"
	"github.com/sweeney/ledring/internal/button"
	"github.com/sweeney/ledring/internal/command"
	"github.com/sweeney/ledring/internal/config"
	"github.com/sweeney/ledring/internal/gpio"
	"github.com/sweeney/ledring/internal/mqtt"
	"github.com/sweeney/ledring/internal/ota"
	"github.com/sweeney/ledring/internal/portal"
	"github.com/sweeney/ledring/internal/status"
	"github.com/sweeney/ledring/internal/wifi"
)

const (
	maxConnectRetries = 3
	connectTimeout    = 30 * time.Second
	retryDelay        = 5 * time.Second

	heartbeatInterval = 60 * time.Second
	wifiCheckInterval = 5 * time.Second

	onlineTickPeriod   = 50 * time.Millisecond
	degradedTickPeriod = 5 * time.Millisecond
	portalTickPeriod   = 100 * time.Millisecond

	// restartPause lets the portal success page reach the browser before
	// the process goes down.
	restartPause = 2 * time.Second
)

// Dialer opens a broker session for the given settings.
type Dialer func(cfg config.MQTT, clientID string) (mqtt.Client, error)

// Options wires a Loop. Now, Sleep, and Restart default to the real
// thing; tests inject fakes.
type Options struct {
	Ring    *animation.Engine
	Button  *button.Classifier
	Input   gpio.Input
	WiFi    wifi.Manager
	Store   *config.Store
	Tracker *status.Tracker
	OTA     *ota.Manager
	Dial    Dialer
	Log     zerolog.Logger

	ClientID string

	Now     func() time.Time
	Sleep   func(time.Duration)
	Restart func()

	// Poll is the online tick cadence; zero means the default.
	Poll time.Duration

	// Portal bind addresses, overridable for tests.
	DNSAddr  string
	HTTPAddr string
}

// Loop runs the device. Construct with NewLoop and drive with Run; the
// tick methods are split out so tests can drive them with a fake clock.
type Loop struct {
	ring    *animation.Engine
	button  *button.Classifier
	input   gpio.Input
	wifi    wifi.Manager
	store   *config.Store
	tracker *status.Tracker
	ota     *ota.Manager
	dial    Dialer
	log     zerolog.Logger

	clientID string
	now      func() time.Time
	sleep    func(time.Duration)
	restart  func()
	dnsAddr  string
	httpAddr string
	poll     time.Duration

	start time.Time

	// online session state
	client        mqtt.Client
	router        *command.Router
	baseTopic     string
	lastHeartbeat time.Time
	lastWiFiCheck time.Time
	wifiWasUp     bool
	savedRing     *animation.State
}

// NewLoop assembles the orchestrator.
func NewLoop(opts Options) *Loop {
	l := &Loop{
		ring:     opts.Ring,
		button:   opts.Button,
		input:    opts.Input,
		wifi:     opts.WiFi,
		store:    opts.Store,
		tracker:  opts.Tracker,
		ota:      opts.OTA,
		dial:     opts.Dial,
		log:      opts.Log,
		clientID: opts.ClientID,
		now:      opts.Now,
		sleep:    opts.Sleep,
		restart:  opts.Restart,
		dnsAddr:  opts.DNSAddr,
		httpAddr: opts.HTTPAddr,
		poll:     opts.Poll,
	}
	if l.poll <= 0 {
		l.poll = onlineTickPeriod
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.sleep == nil {
		l.sleep = time.Sleep
	}
	if l.dnsAddr == "" {
		l.dnsAddr = ":53"
	}
	if l.httpAddr == "" {
		l.httpAddr = ":80"
	}
	return l
}

// Run drives the device until ctx is cancelled: provision check, WiFi
// association with retries, then either the online loop, the degraded
// loop (WiFi up, broker down), or the provisioning portal.
func (l *Loop) Run(ctx context.Context) error {
	l.start = l.now()
	if err := l.ring.Clear(); err != nil {
		l.log.Warn().Err(err).Msg("initial strip clear failed")
	}

	wifiCfg := l.store.LoadWiFi()
	if wifiCfg == nil {
		l.log.Info().Msg("no wifi configuration, entering setup mode")
		l.setChase("cyan")
		return l.runPortal(ctx)
	}

	if !l.connectWithRetries(wifiCfg) {
		l.log.Error().Int("attempts", maxConnectRetries).Str("ssid", wifiCfg.SSID).
			Msg("wifi association failed, entering setup mode")
		l.setChase("red")
		return l.runPortal(ctx)
	}

	l.tracker.SetWiFiConnected(true)
	l.log.Info().Str("ssid", wifiCfg.SSID).Msg("device is online")
	l.setChase("green")

	l.ota.Init(l.ring, l.now())

	mqttCfg := l.store.LoadMQTT()
	if err := l.openSession(mqttCfg); err != nil {
		l.log.Error().Err(err).Str("broker", mqttCfg.Broker).
			Msg("broker session failed, running standalone")
		return l.runDegraded(ctx)
	}
	defer l.client.Close()

	if err := l.runOnline(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		l.log.Error().Err(err).Msg("broker session lost, entering setup mode")
		return l.runPortal(ctx)
	}
	return nil
}

func (l *Loop) connectWithRetries(cfg *config.WiFi) bool {
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		l.log.Info().Int("attempt", attempt).Int("max", maxConnectRetries).
			Str("ssid", cfg.SSID).Msg("connecting to wifi")
		if err := l.wifi.Connect(cfg.SSID, cfg.Password, connectTimeout); err == nil {
			return true
		} else {
			l.log.Warn().Err(err).Msg("wifi association attempt failed")
		}
		if attempt < maxConnectRetries {
			l.sleep(retryDelay)
		}
	}
	return false
}

// openSession dials the broker, subscribes to every command topic, and
// announces the device.
func (l *Loop) openSession(cfg config.MQTT) error {
	client, err := l.dial(cfg, l.clientID)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}

	for _, topic := range mqtt.SubscriptionTopics(cfg.Topic) {
		if err := client.Subscribe(topic); err != nil {
			client.Close()
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		l.log.Debug().Str("topic", topic).Msg("subscribed")
	}

	// The announce goes to the bare base topic so watchers see the
	// device come up.
	payload, err := mqtt.FormatAnnounce(l.clientID, l.now())
	if err == nil {
		if err := client.Publish(cfg.Topic, payload); err != nil {
			l.log.Warn().Err(err).Msg("online announce failed")
		}
	}

	l.client = client
	l.baseTopic = cfg.Topic
	l.router = command.NewRouter(l.ring, l.ota, client, cfg.Topic, l.now, l.log)
	l.lastHeartbeat = l.now()
	l.lastWiFiCheck = l.now()
	l.wifiWasUp = true
	l.tracker.SetMQTTConnected(true)
	return nil
}

func (l *Loop) runOnline(ctx context.Context) error {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.OnlineTick(l.now()); err != nil {
				return err
			}
		}
	}
}

// OnlineTick advances one cycle of the connected loop. The order is
// fixed: animation, button, inbound commands, heartbeat, link health,
// update schedule. It returns an error only when the broker session is
// gone and could not be re-established.
func (l *Loop) OnlineTick(now time.Time) error {
	if err := l.ring.Tick(now); err != nil {
		l.log.Warn().Err(err).Msg("strip write failed")
	}

	if press, ok := l.pollButton(now); ok {
		l.handleOnlinePress(press, now)
	}

	for _, msg := range l.client.Drain() {
		l.log.Debug().Str("topic", msg.Topic).Msg("command received")
		l.router.Route(msg.Topic, msg.Payload)
		l.tracker.CountCommand()
	}

	var sessionErr error
	if now.Sub(l.lastHeartbeat) >= heartbeatInterval {
		l.lastHeartbeat = now
		payload, err := mqtt.FormatHeartbeat(l.clientID, now.Sub(l.start))
		if err == nil {
			if err := l.client.Publish(l.baseTopic+"/"+mqtt.TopicHeartbeat, payload); err != nil {
				sessionErr = err
			} else {
				l.tracker.CountHeartbeat()
			}
		}
	}

	if now.Sub(l.lastWiFiCheck) >= wifiCheckInterval {
		l.lastWiFiCheck = now
		l.checkLink()
	}

	otaFired := l.ota.NextInterval() > 0 && now.Sub(l.ota.LastCheck()) >= l.ota.NextInterval()
	if l.ota.PeriodicCheck(now) {
		// An update was applied; the restart hook has already fired.
		return nil
	}
	if otaFired {
		l.tracker.CountOTACheck()
	}

	l.tracker.UpdateRing(string(l.ring.Mode()), l.ring.Direction(), l.ring.Brightness())
	l.tracker.SetMQTTConnected(l.client.IsConnected())

	if sessionErr == nil && !l.client.IsConnected() {
		sessionErr = fmt.Errorf("broker session dropped")
	}
	if sessionErr != nil {
		l.log.Warn().Err(sessionErr).Msg("broker trouble, attempting reconnect")
		if err := l.client.Reconnect(); err != nil {
			return fmt.Errorf("reconnect: %w", err)
		}
		l.log.Info().Msg("broker session re-established")
		l.tracker.SetMQTTConnected(true)
	}
	return nil
}

// checkLink is the edge-triggered WiFi health check: on loss, save the
// ring state and switch to a yellow pulse; on recovery, restore exactly
// once.
func (l *Loop) checkLink() {
	up := l.wifi.IsConnected()
	l.tracker.SetWiFiConnected(up)

	switch {
	case l.wifiWasUp && !up:
		l.log.Warn().Msg("wifi connection lost")
		saved := l.ring.Save()
		l.savedRing = &saved
		l.setPulse("yellow", 20, 200, 5)
		l.wifiWasUp = false
	case !l.wifiWasUp && up:
		l.log.Info().Msg("wifi connection restored")
		l.ring.Restore(l.savedRing)
		l.savedRing = nil
		l.wifiWasUp = true
	}
}

func (l *Loop) pollButton(now time.Time) (button.Press, bool) {
	pressed, err := l.input.Pressed()
	if err != nil {
		l.log.Warn().Err(err).Msg("button read failed")
		return "", false
	}
	return l.button.Poll(pressed, now)
}

func (l *Loop) handleOnlinePress(press button.Press, now time.Time) {
	l.tracker.CountButtonPress()
	var kind string
	switch press {
	case button.PressShort:
		kind = "1"
		l.ring.Reverse()
		l.log.Info().Msg("short press: direction reversed")
	case button.PressLong:
		kind = "2"
		l.log.Info().Msg("long press")
	case button.PressVeryLong:
		kind = "3"
		l.log.Info().Msg("very long press")
	default:
		return
	}
	payload, err := mqtt.FormatButtonPress(l.clientID, kind, now.Sub(l.start))
	if err != nil {
		return
	}
	if err := l.client.Publish(l.baseTopic+"/button/"+kind, payload); err != nil {
		l.log.Warn().Err(err).Msg("button publish failed")
	}
}

// runDegraded keeps the animation alive when WiFi is up but the broker
// is unreachable: a gentle red pulse, nothing else.
func (l *Loop) runDegraded(ctx context.Context) error {
	l.setPulse("red", 10, 100, 5)
	ticker := time.NewTicker(degradedTickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.ring.Tick(l.now()); err != nil {
				l.log.Warn().Err(err).Msg("strip write failed")
			}
			l.tracker.UpdateRing(string(l.ring.Mode()), l.ring.Direction(), l.ring.Brightness())
		}
	}
}

// runPortal hosts the setup access point and polls the captive portal
// until a configuration arrives, then restarts the process so boot runs
// the provisioned path.
func (l *Loop) runPortal(ctx context.Context) error {
	ip, err := l.wifi.StartAP(wifi.APSSID, wifi.APPassword)
	if err != nil {
		return fmt.Errorf("start access point: %w", err)
	}
	defer l.wifi.Close()

	dns, err := portal.NewDNSServer(l.dnsAddr, ip, l.log)
	if err != nil {
		// A failed DNS bind degrades captive detection but the portal
		// still works for clients that type the address.
		l.log.Warn().Err(err).Msg("dns responder unavailable")
		dns = nil
	} else {
		defer dns.Close()
	}

	web, err := portal.NewHTTPServer(l.httpAddr, ip, l.store, l.log)
	if err != nil {
		return fmt.Errorf("start portal web server: %w", err)
	}
	defer web.Close()

	l.log.Info().Str("ssid", wifi.APSSID).Str("ip", ip).Msg("waiting for configuration")

	ticker := time.NewTicker(portalTickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := l.now()
			if press, ok := l.pollButton(now); ok && press == button.PressShort {
				l.ring.Reverse()
			}
			if dns != nil {
				dns.Poll()
			}
			if web.Poll() {
				l.log.Info().Msg("configuration received, restarting")
				l.sleep(restartPause)
				l.restart()
				return nil
			}
			if err := l.ring.Tick(now); err != nil {
				l.log.Warn().Err(err).Msg("strip write failed")
			}
		}
	}
}

func (l *Loop) setChase(color string) {
	c, _ := animation.ParseColor(color)
	l.ring.SetChaseColor(c)
	l.ring.SetMode(animation.ModeChase)
}

func (l *Loop) setPulse(color string, min, max, step int) {
	c, _ := animation.ParseColor(color)
	l.ring.SetPulseColor(c)
	l.ring.SetPulseRange(min, max)
	l.ring.SetPulseStep(step)
	l.ring.SetMode(animation.ModePulse)
}
