// Command iobeam-bridge reads button and interlock signals from the iobeam
// daemon socket and republishes them to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/iobeam-bridge/internal/bus"
	"github.com/sweeney/iobeam-bridge/internal/config"
	"github.com/sweeney/iobeam-bridge/internal/gpio"
	"github.com/sweeney/iobeam-bridge/internal/iobeam"
	"github.com/sweeney/iobeam-bridge/internal/metrics"
	"github.com/sweeney/iobeam-bridge/internal/mqtt"
	"github.com/sweeney/iobeam-bridge/internal/status"
	"github.com/sweeney/iobeam-bridge/internal/web"
)

func main() {
	cfg, printConfig, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if printConfig {
		out, _ := yaml.Marshal(cfg)
		fmt.Print(string(out))
		return
	}
	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseFlags builds the effective config: defaults, then the -config file,
// then any flag given explicitly on the command line.
func parseFlags(args []string) (config.Config, bool, error) {
	def := config.Default()

	fs := flag.NewFlagSet("iobeam-bridge", flag.ContinueOnError)
	path := fs.String("config", "", "YAML config file")
	socket := fs.String("socket", def.SocketPath, "iobeam socket path")
	delay := fs.Duration("reconnect-delay", def.ReconnectDelay, "Delay before reconnecting to the socket")
	maxFail := fs.Int("max-parse-failures", def.MaxConsecutiveParseFailures, "Consecutive bad lines tolerated before reconnecting (negative disables)")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address")
	clientID := fs.String("client-id", def.MQTT.ClientID, "MQTT client ID")
	noMQTT := fs.Bool("no-mqtt", false, "Disable MQTT publishing")
	httpAddr := fs.String("http", def.HTTPAddr, "HTTP status address (empty to disable)")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	ledPin := fs.Int("led-pin", def.LEDPin, "BCM pin for the interlock LED (negative to disable)")
	chip := fs.String("gpio-chip", def.GPIOChip, "GPIO chip for the interlock LED")
	printConfig := fs.Bool("print-config", false, "Print the effective config and exit")

	if err := fs.Parse(args); err != nil {
		return def, false, err
	}

	cfg := def
	if *path != "" {
		loaded, err := config.Load(*path)
		if err != nil {
			return def, false, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "socket":
			cfg.SocketPath = *socket
		case "reconnect-delay":
			cfg.ReconnectDelay = *delay
		case "max-parse-failures":
			cfg.MaxConsecutiveParseFailures = *maxFail
		case "broker":
			cfg.MQTT.Broker = *broker
		case "client-id":
			cfg.MQTT.ClientID = *clientID
		case "no-mqtt":
			cfg.MQTT.Enabled = !*noMQTT
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "led-pin":
			cfg.LEDPin = *ledPin
		case "gpio-chip":
			cfg.GPIOChip = *chip
		}
	})

	if err := cfg.Validate(); err != nil {
		return cfg, false, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, *printConfig, nil
}

func run(cfg config.Config) error {
	// Initialize MQTT
	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.MQTT.Enabled {
		p, err := mqtt.NewRealPublisher(mqtt.Options{Broker: cfg.MQTT.Broker, ClientID: cfg.MQTT.ClientID})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	} else {
		log.Printf("mqtt disabled")
	}
	defer publisher.Close()

	events := bus.New()
	events.SubscribeAll(func(e bus.Event) {
		logEvent(e)
		if err := publisher.Publish(e); err != nil {
			log.Printf("publish error: %v", err)
		}
	})

	// Initialize the interlock LED
	if cfg.LEDPin >= 0 {
		w, err := gpio.NewRealWriter(cfg.GPIOChip, cfg.LEDPin)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer w.Close()
		gpio.NewIndicator(w, false).Attach(events)
		log.Printf("interlock led on %s pin %d", cfg.GPIOChip, cfg.LEDPin)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		SocketPath:                  cfg.SocketPath,
		ReconnectDelayMs:            cfg.ReconnectDelay.Milliseconds(),
		MaxConsecutiveParseFailures: cfg.MaxConsecutiveParseFailures,
		HeartbeatMs:                 cfg.Heartbeat.Milliseconds(),
		Broker:                      cfg.MQTT.Broker,
		HTTPAddr:                    cfg.HTTPAddr,
	})

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	handler := iobeam.NewUnix(events, cfg.IOBeam())

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		reg := metrics.NewRegistry(metrics.NewCollector(handler))
		srv := web.New(cfg.HTTPAddr, tracker, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: socket=%s reconnect=%v max_parse_failures=%d broker=%s heartbeat=%v",
		cfg.SocketPath, cfg.ReconnectDelay, cfg.MaxConsecutiveParseFailures, cfg.MQTT.Broker, cfg.Heartbeat)

	statsTicker := time.NewTicker(cfg.StatsInterval)
	defer statsTicker.Stop()

	var heartbeatTick <-chan time.Time
	if cfg.Heartbeat > 0 {
		hb := time.NewTicker(cfg.Heartbeat)
		defer hb.Stop()
		heartbeatTick = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(handler, publisher, publisher, tracker, time.Now, statsTicker.C, heartbeatTick, sigCh)
}

// source is the part of *iobeam.Handler that runLoop drives.
type source interface {
	Stats() iobeam.Stats
	Shutdown()
}

func runLoop(h source, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, statsTick, heartbeatTick <-chan time.Time, sig <-chan os.Signal) error {
	refresh := func() status.Snapshot {
		tracker.Update(h.Stats())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		return tracker.Snapshot()
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			// Stop the socket worker first so the final snapshot is settled.
			h.Shutdown()

			snap := refresh()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-heartbeatTick:
			snap := refresh()
			st := snap.IOBeam
			log.Printf("heartbeat: uptime=%v state=%s interlock=%s connects=%d parse_failures=%d",
				snap.Uptime().Truncate(time.Second), st.State, status.InterlockLabel(st.InterlockClosed), st.Connects, st.ParseFailures)

			hbEvent := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}

		case <-statsTick:
			// Update status tracker for HTTP consumers
			refresh()
		}
	}
}

func logEvent(e bus.Event) {
	if v, ok := e.Payload.(float64); ok {
		log.Printf("event: %s (%.3fs)", e.Name, v)
		return
	}
	log.Printf("event: %s", e.Name)
}
