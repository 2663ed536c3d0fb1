package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/smartsocks/sensorhub/pkg/config"
	"github.com/smartsocks/sensorhub/pkg/output"
	"github.com/smartsocks/sensorhub/pkg/sensor"
)

const (
	DefaultServer     = "tcp://localhost:1883"
	DefaultClientID   = "sensorhub"
	DefaultStateTopic = "smartsocks/readings"
	// discovery payload keys/values
	keyName              = "name"
	keyStateTopic        = "state_topic"
	keyStateClass        = "state_class"
	keyValueTemplate     = "value_template"
	keyUniqueID          = "unique_id"
	stateClassMeasure    = "measurement"
	valueTemplateChannel = "{{ value_json.sensors.%s }}"
)

// MQTTOutput publishes each report as a JSON payload to a state topic. It is
// an optional third sink next to serial and console, handy when the readings
// should land in a broker-backed dashboard instead of the built-in one.
type MQTTOutput struct {
	client     mqtt.Client
	stateTopic string
}

type reportPayload struct {
	UptimeMs uint32          `json:"uptime_ms"`
	Sensors  sensor.Snapshot `json:"sensors"`
}

func NewMQTT(cfg config.MQTTConfig, channels []config.ChannelConfig) (output.Output, error) {
	server := cfg.Server
	if server == "" {
		server = DefaultServer
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	opts := mqtt.NewClientOptions().AddBroker(server).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	st := cfg.StateTopic
	if st == "" {
		st = DefaultStateTopic
	}
	m := &MQTTOutput{client: client, stateTopic: st}

	// Publish Home Assistant discovery payload(s) if requested. A %s in the
	// topic yields one entity per channel.
	if cfg.DiscoveryTopic != "" {
		if strings.Contains(cfg.DiscoveryTopic, "%s") {
			for _, ch := range channels {
				dTopic := fmt.Sprintf(cfg.DiscoveryTopic, ch.Name)
				payload := discoveryPayload(cfg, m.stateTopic, &ch)
				if err := publishJSON(client, dTopic, true, payload); err != nil {
					log.Printf("mqtt discovery publish error: %v", err)
				}
			}
		} else {
			payload := discoveryPayload(cfg, m.stateTopic, nil)
			if err := publishJSON(client, cfg.DiscoveryTopic, true, payload); err != nil {
				log.Printf("mqtt discovery publish error: %v", err)
			}
		}
	}

	return m, nil
}

func (m *MQTTOutput) Name() string { return "mqtt" }

func (m *MQTTOutput) Publish(rep sensor.Report) error {
	b, err := json.Marshal(reportPayload{UptimeMs: rep.UptimeMs, Sensors: sensor.Snapshot(rep.Readings)})
	if err != nil {
		return err
	}
	token := m.client.Publish(m.stateTopic, 0, false, b)
	token.Wait()
	return token.Error()
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

// discoveryPayload builds a Home Assistant discovery entry; when ch is set
// the entity tracks one channel out of the report payload.
func discoveryPayload(cfg config.MQTTConfig, stateTopic string, ch *config.ChannelConfig) map[string]interface{} {
	name := cfg.DiscoveryName
	if name == "" {
		name = fmt.Sprintf("Smart Socks %s", cfg.ClientID)
	}
	uid := cfg.DiscoveryUniqueID
	if uid == "" {
		uid = cfg.ClientID
	}
	payload := map[string]interface{}{
		keyName:       name,
		keyStateTopic: stateTopic,
		keyStateClass: stateClassMeasure,
	}
	if ch != nil {
		payload[keyName] = fmt.Sprintf("%s %s", name, ch.Name)
		payload[keyValueTemplate] = fmt.Sprintf(valueTemplateChannel, ch.Name)
		if uid != "" {
			uid = fmt.Sprintf("%s_%s", uid, ch.Name)
		}
	}
	if uid != "" {
		payload[keyUniqueID] = uid
	}
	return payload
}

func publishJSON(client mqtt.Client, topic string, retained bool, payload map[string]interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := client.Publish(topic, 0, retained, b)
	token.Wait()
	return token.Error()
}
