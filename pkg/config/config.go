package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ChannelConfig maps one logical sensor name to a physical ADC input.
// The slice order in Config.Channels is the canonical channel order: serial
// CSV columns, JSON keys and the dashboard all follow it.
type ChannelConfig struct {
	Name  string `json:"name"`
	Input int    `json:"input"`
}

type I2CConfig struct {
	Bus string `json:"bus"`
	// Addresses lists the ADS1115 chips in input order: inputs 0-3 map to
	// the first address, 4-7 to the second.
	Addresses []int `json:"addresses"`
}

type SerialConfig struct {
	Port string `json:"port"`
	Baud int    `json:"baud,omitempty"`
}

type MQTTConfig struct {
	Server            string `json:"server"`
	Username          string `json:"username,omitempty"`
	Password          string `json:"password,omitempty"`
	ClientID          string `json:"client_id"`
	StateTopic        string `json:"state_topic,omitempty"`
	DiscoveryTopic    string `json:"discovery_topic,omitempty"`
	DiscoveryName     string `json:"discovery_name,omitempty"`
	DiscoveryUniqueID string `json:"discovery_unique_id,omitempty"`
}

type OutputConfig struct {
	Type   string        `json:"type"`
	Serial *SerialConfig `json:"serial,omitempty"`
	MQTT   *MQTTConfig   `json:"mqtt,omitempty"`
}

type HTTPConfig struct {
	Listen string `json:"listen"`
}

// AccessPointConfig describes the wireless network clients join to reach the
// dashboard. Bringing the AP up is the host system's job (hostapd or similar);
// the daemon only logs these so one config file drives provisioning too.
type AccessPointConfig struct {
	SSID       string `json:"ssid"`
	Passphrase string `json:"passphrase"`
}

type Config struct {
	SensorType     string            `json:"sensor_type"`
	I2C            I2CConfig         `json:"i2c"`
	SampleRateHz   int               `json:"sample_rate_hz"`
	ResolutionBits int               `json:"resolution_bits"`
	Channels       []ChannelConfig   `json:"channels"`
	Outputs        []OutputConfig    `json:"outputs"`
	HTTP           HTTPConfig        `json:"http"`
	AccessPoint    AccessPointConfig `json:"access_point"`
}

// DefaultConfig is the calibration deployment: all six sensors on one device.
// The production deployments (three sensors per leg, two devices) override
// the channel table via config file, see configs/.
func DefaultConfig() Config {
	return Config{
		SensorType:     "ads1115",
		I2C:            I2CConfig{Bus: "1", Addresses: []int{0x48, 0x49}},
		SampleRateHz:   50,
		ResolutionBits: 12,
		Channels: []ChannelConfig{
			{Name: "L_P_Heel", Input: 0},
			{Name: "L_P_Ball", Input: 1},
			{Name: "L_S_Knee", Input: 2},
			{Name: "R_P_Heel", Input: 3},
			{Name: "R_P_Ball", Input: 4},
			{Name: "R_S_Knee", Input: 5},
		},
		Outputs: []OutputConfig{
			{Type: "serial", Serial: &SerialConfig{Port: "/dev/ttyACM0", Baud: 115200}},
		},
		HTTP:        HTTPConfig{Listen: ":80"},
		AccessPoint: AccessPointConfig{SSID: "SmartSocks-Cal", Passphrase: "calibrate"},
	}
}

// MaxValue returns the largest sample value at the configured resolution.
func (c Config) MaxValue() int {
	return (1 << c.ResolutionBits) - 1
}

// SampleIntervalMs returns the serial report cadence in milliseconds.
func (c Config) SampleIntervalMs() uint32 {
	return uint32(1000 / c.SampleRateHz)
}

func (c Config) Validate() error {
	if c.SampleRateHz <= 0 || c.SampleRateHz > 1000 {
		return fmt.Errorf("sample_rate_hz must be in 1..1000, got %d", c.SampleRateHz)
	}
	if c.ResolutionBits < 1 || c.ResolutionBits > 16 {
		return fmt.Errorf("resolution_bits must be in 1..16, got %d", c.ResolutionBits)
	}
	if len(c.Channels) == 0 {
		return errors.New("at least one channel required")
	}
	seen := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if ch.Name == "" {
			return errors.New("channel name must not be empty")
		}
		if seen[ch.Name] {
			return fmt.Errorf("duplicate channel name %q", ch.Name)
		}
		seen[ch.Name] = true
		if ch.Input < 0 {
			return fmt.Errorf("channel %q: input must be >= 0, got %d", ch.Name, ch.Input)
		}
	}
	for _, o := range c.Outputs {
		switch o.Type {
		case "serial":
			if o.Serial == nil || o.Serial.Port == "" {
				return errors.New("serial output requires a port")
			}
		case "console":
		case "mqtt":
			if o.MQTT == nil || o.MQTT.Server == "" {
				return errors.New("mqtt output requires a server")
			}
		default:
			return fmt.Errorf("unknown output type %q", o.Type)
		}
	}
	return nil
}

// LoadFromFlags loads configuration from a JSON file (optional) and flags.
// Flags override values present in the JSON file.
func LoadFromFlags() (Config, error) {
	cfgPath := flag.String("config", "", "Path to JSON config file")
	flagSensorType := flag.String("sensor-type", "", "sensor type: ads1115|fake")
	flagI2CBus := flag.String("i2c-bus", "", "I2C bus (e.g., '1' -> /dev/i2c-1)")
	flagI2CAddrs := flag.String("i2c-addresses", "", "Comma-separated ADS1115 addresses (decimal or 0x hex)")
	flagSampleRate := flag.Int("sample-rate", -1, "Sample rate in Hz")
	flagResolution := flag.Int("resolution-bits", -1, "ADC resolution in bits")
	flagOutputs := flag.String("outputs", "", "Comma-separated outputs (serial,console,mqtt)")
	flagSerialPort := flag.String("serial-port", "", "Serial port for CSV reports")
	flagSerialBaud := flag.Int("serial-baud", -1, "Serial baud rate")
	flagHTTPListen := flag.String("http-listen", "", "HTTP listen address (e.g., :80)")
	flagMQTTServer := flag.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := flag.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := flag.String("mqtt-pass", "", "MQTT password")
	flagMQTTClientID := flag.String("mqtt-client-id", "", "MQTT client id")
	flagMQTTTopic := flag.String("mqtt-topic", "", "MQTT state topic")

	flag.Parse()

	cfg := DefaultConfig()

	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if *flagSensorType != "" {
		cfg.SensorType = *flagSensorType
	}
	if *flagI2CBus != "" {
		cfg.I2C.Bus = *flagI2CBus
	}
	if *flagI2CAddrs != "" {
		addrs, err := parseAddresses(*flagI2CAddrs)
		if err != nil {
			return cfg, fmt.Errorf("i2c-addresses: %w", err)
		}
		cfg.I2C.Addresses = addrs
	}
	if *flagSampleRate != -1 {
		cfg.SampleRateHz = *flagSampleRate
	}
	if *flagResolution != -1 {
		cfg.ResolutionBits = *flagResolution
	}
	if *flagOutputs != "" {
		// convert simple CSV of types into structured OutputConfig entries,
		// keeping existing sub-configs for types already present
		existing := map[string]OutputConfig{}
		for _, o := range cfg.Outputs {
			existing[o.Type] = o
		}
		parts := parseCSV(*flagOutputs)
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			if o, ok := existing[p]; ok {
				outs = append(outs, o)
				continue
			}
			outs = append(outs, OutputConfig{Type: p})
		}
		cfg.Outputs = outs
	}
	if *flagSerialPort != "" || *flagSerialBaud != -1 {
		applied := false
		for i := range cfg.Outputs {
			if cfg.Outputs[i].Type != "serial" {
				continue
			}
			if cfg.Outputs[i].Serial == nil {
				cfg.Outputs[i].Serial = &SerialConfig{}
			}
			if *flagSerialPort != "" {
				cfg.Outputs[i].Serial.Port = *flagSerialPort
			}
			if *flagSerialBaud != -1 {
				cfg.Outputs[i].Serial.Baud = *flagSerialBaud
			}
			applied = true
		}
		if !applied {
			sc := &SerialConfig{Port: *flagSerialPort}
			if *flagSerialBaud != -1 {
				sc.Baud = *flagSerialBaud
			}
			cfg.Outputs = append(cfg.Outputs, OutputConfig{Type: "serial", Serial: sc})
		}
	}
	if *flagHTTPListen != "" {
		cfg.HTTP.Listen = *flagHTTPListen
	}
	if *flagMQTTServer != "" || *flagMQTTUser != "" || *flagMQTTPass != "" || *flagMQTTClientID != "" || *flagMQTTTopic != "" {
		applied := false
		for i := range cfg.Outputs {
			if cfg.Outputs[i].Type != "mqtt" {
				continue
			}
			if cfg.Outputs[i].MQTT == nil {
				cfg.Outputs[i].MQTT = &MQTTConfig{}
			}
			applyMQTTFlags(cfg.Outputs[i].MQTT, *flagMQTTServer, *flagMQTTUser, *flagMQTTPass, *flagMQTTClientID, *flagMQTTTopic)
			applied = true
		}
		if !applied {
			mc := &MQTTConfig{}
			applyMQTTFlags(mc, *flagMQTTServer, *flagMQTTUser, *flagMQTTPass, *flagMQTTClientID, *flagMQTTTopic)
			cfg.Outputs = append(cfg.Outputs, OutputConfig{Type: "mqtt", MQTT: mc})
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyMQTTFlags(mc *MQTTConfig, server, user, pass, clientID, topic string) {
	if server != "" {
		mc.Server = server
	}
	if user != "" {
		mc.Username = user
	}
	if pass != "" {
		mc.Password = pass
	}
	if clientID != "" {
		mc.ClientID = clientID
	}
	if topic != "" {
		mc.StateTopic = topic
	}
}

func parseIntOrHex(s string) (int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 0)
		return int(v), err
	}
	v, err := strconv.Atoi(s)
	return v, err
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseAddresses(s string) ([]int, error) {
	parts := parseCSV(s)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := parseIntOrHex(p)
		if err != nil {
			return nil, fmt.Errorf("invalid address '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
