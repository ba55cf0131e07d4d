// Command ledring drives a 24-pixel WS2812 ring over SPI, taking
// animation commands from MQTT and provisioning itself through a captive
// portal when no WiFi configuration exists.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/ledring/internal/animation"
	"github.com/sweeney/ledring/internal/button"
	"github.com/sweeney/ledring/internal/config"
	"github.com/sweeney/ledring/internal/device"
	"github.com/sweeney/ledring/internal/gpio"
	"github.com/sweeney/ledring/internal/leds"
	"github.com/sweeney/ledring/internal/mqtt"
	"github.com/sweeney/ledring/internal/ota"
	"github.com/sweeney/ledring/internal/status"
	"github.com/sweeney/ledring/internal/web"
	"github.com/sweeney/ledring/internal/wifi"
)

// restartExitCode tells the supervisor this is a requested restart, not a
// crash. The systemd unit restarts the service on it.
const restartExitCode = 64

func main() {
	configPath := flag.String("config", "/etc/ledring/device.yaml", "Path to device configuration file")
	broker := flag.String("broker", "", "Override the provisioned MQTT broker host")
	httpAddr := flag.String("http", ":8080", "HTTP status address while online (empty to disable)")
	printVersion := flag.Bool("print-version", false, "Print installed firmware version and exit")
	flag.Parse()

	dev, err := config.LoadDevice(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load device configuration")
	}

	setupLogging(dev.LogLevel, dev.LogColors)

	if err := run(dev, *broker, *httpAddr, *printVersion); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func run(dev config.Device, brokerOverride, httpAddr string, printVersion bool) error {
	store, err := config.NewStore(dev.Dir)
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}

	if printVersion {
		fmt.Println(store.LoadVersion().Version)
		return nil
	}

	log.Info().Str("config_dir", dev.Dir).Int("leds", dev.LEDCount).Msg("starting ledring")

	strip, err := leds.NewRealStrip(dev.LEDSPIDevice, dev.LEDCount)
	if err != nil {
		return fmt.Errorf("open led strip: %w", err)
	}
	defer strip.Close()

	input, err := gpio.NewRealInput(dev.ButtonPin)
	if err != nil {
		return fmt.Errorf("open button input: %w", err)
	}
	defer input.Close()

	ring := animation.NewEngine(strip, dev.LEDCount, log.Logger)

	mqttCfg := store.LoadMQTT()
	if brokerOverride != "" {
		mqttCfg.Broker = brokerOverride
	}

	tracker := status.NewTracker(time.Now(), store.LoadVersion().Version, status.Config{
		Broker:   fmt.Sprintf("%s:%d", mqttCfg.Broker, mqttCfg.Port),
		Topic:    mqttCfg.Topic,
		HTTPAddr: httpAddr,
		PollMs:   dev.PollInterval.Duration().Milliseconds(),
	})

	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http status server failed")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", httpAddr).Msg("http status server listening")
	}

	restart := func() {
		log.Info().Int("code", restartExitCode).Msg("restarting")
		os.Exit(restartExitCode)
	}

	otaMgr := ota.NewManager(store, filepath.Join(dev.Dir, "firmware"), restart, log.Logger)

	dial := func(cfg config.MQTT, clientID string) (mqtt.Client, error) {
		if brokerOverride != "" {
			cfg.Broker = brokerOverride
		}
		return mqtt.NewRealClient(cfg, clientID, log.Logger)
	}

	loop := device.NewLoop(device.Options{
		Ring:     ring,
		Button:   button.NewClassifier(),
		Input:    input,
		WiFi:     wifi.NewRealManager("", log.Logger),
		Store:    store,
		Tracker:  tracker,
		OTA:      otaMgr,
		Dial:     dial,
		Log:      log.Logger,
		ClientID: mqtt.ClientID(),
		Restart:  restart,
		Poll:     dev.PollInterval.Duration(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = loop.Run(ctx)
	if ctx.Err() != nil {
		log.Info().Msg("shutting down")
		ring.Clear()
		return nil
	}
	return err
}

func setupLogging(level string, colors bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !colors,
	})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
