// Command measure-sync follows a sequencer's sync pulses, detects measure
// starts and fans them out to a LED, the console or a serial port, MQTT, MIDI
// and a live web page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/measure-sync/internal/config"
	"github.com/sweeney/measure-sync/internal/gpio"
	"github.com/sweeney/measure-sync/internal/logic"
	"github.com/sweeney/measure-sync/internal/midi"
	"github.com/sweeney/measure-sync/internal/mqtt"
	"github.com/sweeney/measure-sync/internal/serial"
	"github.com/sweeney/measure-sync/internal/status"
	"github.com/sweeney/measure-sync/internal/web"
)

// eventBuffer bounds the queue between the pulse handler and runLoop.
const eventBuffer = 64

func main() {
	cfg, err := config.Parse(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config) error {
	var debug io.Writer
	if cfg.Debug {
		debug = os.Stdout
	}
	clock := logic.NewMeasureClock(cfg.Clock(debug), gpio.NowMs())
	events := make(chan logic.Event, eventBuffer)

	// Initialize GPIO
	pulses, err := gpio.NewRealPulseSource(cfg.PinSync, newPulseHandler(clock, events))
	if err != nil {
		return fmt.Errorf("init sync input: %w", err)
	}
	defer pulses.Close()

	var indicator gpio.Indicator = nopIndicator{}
	if cfg.PinLED >= 0 {
		led, err := gpio.NewRealIndicator(cfg.PinLED)
		if err != nil {
			return fmt.Errorf("init LED: %w", err)
		}
		defer led.Close()
		indicator = led
	}

	// Notice lines go to stdout and optionally a serial port
	var notices io.Writer = os.Stdout
	if cfg.Serial != "" {
		port, err := serial.Open(cfg.Serial, cfg.Baud)
		if err != nil {
			return fmt.Errorf("init serial: %w", err)
		}
		defer port.Close()
		notices = io.MultiWriter(os.Stdout, port)
	}

	var clicks eventHandler
	if cfg.MIDIOut != "" {
		sink, err := midi.Open(cfg.MIDIOut, cfg.MIDIChannel, cfg.MIDINote)
		if err != nil {
			return fmt.Errorf("init midi: %w", err)
		}
		defer sink.Close()
		clicks = sink
	}

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(cfg.Broker)
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:       cfg.Poll.Milliseconds(),
		DebounceMs:   cfg.Debounce.Milliseconds(),
		DisconnectMs: cfg.Disconnect.Milliseconds(),
		SignatureMs:  cfg.Signature.Milliseconds(),
		HeartbeatMs:  cfg.Heartbeat.Milliseconds(),
		PinSync:      cfg.PinSync,
		PinLED:       cfg.PinLED,
		Broker:       cfg.Broker,
		HTTPAddr:     cfg.HTTP,
		Serial:       cfg.Serial,
		MIDIOut:      cfg.MIDIOut,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	var hub *web.Hub
	if cfg.HTTP != "" {
		hub = web.NewHub()
		g.Go(func() error {
			hub.Run(ctx)
			return nil
		})

		srv := web.New(cfg.HTTP, tracker, hub)
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return srv.Shutdown(context.Background())
		})
		log.Printf("http status server listening on %s", cfg.HTTP)

		if cfg.MDNS {
			adv, err := web.Advertise(cfg.HTTP)
			if err != nil {
				log.Printf("mdns: %v", err)
			} else {
				defer adv.Shutdown()
			}
		}
	}

	log.Printf("started: pin=%d led=%d debounce=%v disconnect=%v broker=%s heartbeat=%v",
		cfg.PinSync, cfg.PinLED, cfg.Debounce, cfg.Disconnect, cfg.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	out := outputs{
		notices:    notices,
		indicator:  indicator,
		publisher:  publisher,
		mqttStatus: publisher,
		clicks:     clicks,
	}
	if hub != nil {
		out.live = hub
	}

	g.Go(func() error {
		defer cancel()
		return runLoop(ctx, clock.Shared(), events, out, tracker, cfg.Heartbeat, time.Now, ticker.C, sigCh)
	})
	return g.Wait()
}

// newPulseHandler runs the clock on each edge and queues its events without
// blocking. Events that do not fit are counted as dropped.
func newPulseHandler(clock *logic.MeasureClock, out chan<- logic.Event) gpio.PulseHandler {
	return func(ms int64) {
		for _, e := range clock.OnPulse(ms) {
			select {
			case out <- e:
			default:
				clock.Shared().AddDropped()
			}
		}
	}
}

// eventHandler consumes clock events (the MIDI sink).
type eventHandler interface {
	Handle(e logic.Event)
}

// broadcaster delivers payloads to live web clients.
type broadcaster interface {
	Broadcast(msg []byte)
}

// outputs are the sinks runLoop fans events out to. clicks and live may be nil.
type outputs struct {
	notices    io.Writer
	indicator  gpio.Indicator
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	clicks     eventHandler
	live       broadcaster
}

type nopIndicator struct{}

func (nopIndicator) Set(bool) error { return nil }
func (nopIndicator) Close() error   { return nil }

func runLoop(ctx context.Context, shared *logic.SharedState, events <-chan logic.Event, out outputs, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	hb := logic.NewHeartbeat(heartbeat, now())
	var session string

	for {
		select {
		case <-ctx.Done():
			return nil

		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if err := out.indicator.Set(false); err != nil {
				log.Printf("led error: %v", err)
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refreshTracker(tracker, shared, out.mqttStatus)
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := out.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case e := <-events:
			t := now()
			if _, err := io.WriteString(out.notices, logic.FormatNotice(e)); err != nil {
				log.Printf("notice write error: %v", err)
			}

			switch e.Type {
			case logic.EventPlaybackStart:
				session = uuid.NewString()
				log.Printf("session %s started", session)
			case logic.EventMeasureStart:
				if tracker != nil {
					tracker.SetLastMeasure(t)
				}
			}
			if tracker != nil {
				tracker.SetSession(session)
			}

			me := mqtt.MeasureEvent{Timestamp: t, Event: e, Session: session}
			if err := out.publisher.Publish(me); err != nil {
				log.Printf("publish error: %v", err)
			}
			if out.clicks != nil {
				out.clicks.Handle(e)
			}
			if out.live != nil {
				if payload, err := mqtt.FormatPayload(me); err == nil {
					out.live.Broadcast(payload)
				}
			}

			if e.Type == logic.EventDisconnect && session != "" {
				log.Printf("session %s ended", session)
				session = ""
				if tracker != nil {
					tracker.SetSession("")
				}
			}

		case <-tick:
			t := now()

			// On for one tick after each measure start.
			if err := out.indicator.Set(shared.TakeMeasureStarted()); err != nil {
				log.Printf("led error: %v", err)
			}

			if tracker != nil {
				refreshTracker(tracker, shared, out.mqttStatus)
			}

			if hbData := hb.Check(t, shared.Snapshot().Counts); hbData != nil {
				c := hbData.Counts
				log.Printf("heartbeat: uptime=%v measures=%d playback_starts=%d disconnects=%d debounced=%d dropped=%d",
					hbData.Uptime, c.Measures, c.PlaybackStarts, c.Disconnects, c.Debounced, c.Dropped)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := out.publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func refreshTracker(tracker *status.Tracker, shared *logic.SharedState, mqttStatus mqtt.ConnectionStatus) {
	tracker.Update(shared.Snapshot())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
