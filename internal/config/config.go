// Package config holds the daemon settings. Values come from built-in
// defaults, then an optional YAML file, then command-line flags.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/measure-sync/internal/gpio"
	"github.com/sweeney/measure-sync/internal/logic"
	"github.com/sweeney/measure-sync/internal/serial"
)

// Config is the full daemon configuration. YAML keys mirror the flag names
// with underscores.
type Config struct {
	Poll       time.Duration `yaml:"poll"`
	Debounce   time.Duration `yaml:"debounce"`
	Disconnect time.Duration `yaml:"disconnect"`
	Signature  time.Duration `yaml:"signature"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
	Debug      bool          `yaml:"debug"`

	PinSync int `yaml:"pin_sync"`
	PinLED  int `yaml:"pin_led"` // negative disables the LED

	Broker string `yaml:"broker"`
	HTTP   string `yaml:"http"` // empty disables the status server
	MDNS   bool   `yaml:"mdns"`

	Serial string `yaml:"serial"` // empty writes notices to stdout only
	Baud   int    `yaml:"baud"`

	MIDIOut     string `yaml:"midi_out"` // empty disables MIDI
	MIDIChannel int    `yaml:"midi_channel"`
	MIDINote    int    `yaml:"midi_note"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Poll:        100 * time.Millisecond,
		Debounce:    logic.DefaultDebounceMs * time.Millisecond,
		Disconnect:  logic.DefaultDisconnectMs * time.Millisecond,
		Signature:   logic.DefaultSignatureMs * time.Millisecond,
		Heartbeat:   15 * time.Minute,
		PinSync:     gpio.DefaultPinSync,
		PinLED:      gpio.DefaultPinLED,
		Broker:      "tcp://192.168.1.200:1883",
		HTTP:        ":8080",
		Baud:        serial.DefaultBaud,
		MIDIChannel: 10, // General MIDI percussion
		MIDINote:    37, // side stick
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if err := LoadInto(path, c); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadInto reads a YAML file over c. Keys absent from the file keep their
// current values.
func LoadInto(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(c)
	return nil
}

// applyDefaults replaces values that cannot be meant literally.
func applyDefaults(c *Config) {
	d := Default()
	if c.Poll <= 0 {
		c.Poll = d.Poll
	}
	if c.Debounce <= 0 {
		c.Debounce = d.Debounce
	}
	if c.Disconnect <= 0 {
		c.Disconnect = d.Disconnect
	}
	if c.Signature <= 0 {
		c.Signature = d.Signature
	}
	if c.Baud <= 0 {
		c.Baud = d.Baud
	}
}

// Validate reports settings that the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Debounce >= c.Disconnect {
		return fmt.Errorf("debounce %v must be shorter than disconnect %v", c.Debounce, c.Disconnect)
	}
	if c.PinSync < 0 {
		return fmt.Errorf("invalid sync pin %d", c.PinSync)
	}
	if c.PinLED == c.PinSync {
		return fmt.Errorf("LED pin %d is the sync pin", c.PinLED)
	}
	if c.MIDIChannel < 1 || c.MIDIChannel > 16 {
		return fmt.Errorf("midi channel %d out of range 1-16", c.MIDIChannel)
	}
	if c.MIDINote < 0 || c.MIDINote > 127 {
		return fmt.Errorf("midi note %d out of range 0-127", c.MIDINote)
	}
	return nil
}

// Clock returns the clock thresholds in milliseconds.
func (c *Config) Clock(debug io.Writer) logic.ClockConfig {
	return logic.ClockConfig{
		DebounceMs:   c.Debounce.Milliseconds(),
		DisconnectMs: c.Disconnect.Milliseconds(),
		SignatureMs:  c.Signature.Milliseconds(),
		Debug:        debug,
	}
}

func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.DurationVar(&c.Poll, "poll", c.Poll, "Consumer tick interval (LED, status)")
	fs.DurationVar(&c.Debounce, "debounce", c.Debounce, "Pulses closer than this are ignored")
	fs.DurationVar(&c.Disconnect, "disconnect", c.Disconnect, "Gap after which the sequencer counts as stopped")
	fs.DurationVar(&c.Signature, "signature", c.Signature, "Tolerance of the playback-start gap detector")
	fs.DurationVar(&c.Heartbeat, "heartbeat", c.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Dump the signature ring buffer on every pulse")
	fs.IntVar(&c.PinSync, "pin-sync", c.PinSync, "BCM pin number for the sync input")
	fs.IntVar(&c.PinLED, "led-pin", c.PinLED, "BCM pin number for the measure LED (-1 to disable)")
	fs.StringVar(&c.Broker, "broker", c.Broker, "MQTT broker address")
	fs.StringVar(&c.HTTP, "http", c.HTTP, "HTTP status address (empty to disable)")
	fs.BoolVar(&c.MDNS, "mdns", c.MDNS, "Advertise the status page via mDNS")
	fs.StringVar(&c.Serial, "serial", c.Serial, "Serial device for notice lines (empty for stdout only)")
	fs.IntVar(&c.Baud, "baud", c.Baud, "Serial baud rate")
	fs.StringVar(&c.MIDIOut, "midi-out", c.MIDIOut, "MIDI output port name substring (empty to disable)")
	fs.IntVar(&c.MIDIChannel, "midi-channel", c.MIDIChannel, "MIDI channel for the click (1-16)")
	fs.IntVar(&c.MIDINote, "midi-note", c.MIDINote, "MIDI note for the click")
}

// Parse builds the configuration from args (without the program name).
// A file named by -config is applied over the defaults and every flag given
// on the command line is applied over the file.
func Parse(name string, args []string) (*Config, error) {
	c := Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", "", "YAML config file")
	c.bindFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *path != "" {
		if err := LoadInto(*path, c); err != nil {
			return nil, err
		}
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}
