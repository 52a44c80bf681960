package relay

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/eclipse/paho.mqtt.golang"

	"github.com/esplan/serialmon/pkg/monitor"
)

// MQTTRelay forwards monitored lines to an MQTT topic. It implements
// monitor.LineHandler.
type MQTTRelay struct {
	client mqtt.Client
	topic  string
}

type MQTTRelayConfig struct {
	Username      string
	Password      string
	BrokerAddress string
	Topic         string
	Logger        monitor.Logger
	DebugLogger   monitor.Logger
}

func NewMQTTRelay(cfg MQTTRelayConfig) (*MQTTRelay, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerAddress)
	opts.SetClientID(generateClientId())
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)

	if cfg.Logger != nil {
		mqtt.ERROR = cfg.Logger
		mqtt.CRITICAL = cfg.Logger
		mqtt.WARN = cfg.Logger
	}
	if cfg.DebugLogger != nil {
		mqtt.DEBUG = cfg.DebugLogger
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	return &MQTTRelay{client, cfg.Topic}, nil
}

// HandleLine publishes the line without waiting for the broker, so the poll
// loop never blocks on the relay.
func (r *MQTTRelay) HandleLine(l monitor.Line) {
	r.client.Publish(r.topic, 0, false, linePayload(l))
}

func (r *MQTTRelay) Close() {
	r.client.Disconnect(1000)
}

// linePayload is the decoded text, or the quoted raw bytes for lines that did
// not decode.
func linePayload(l monitor.Line) string {
	if l.Valid {
		return l.Text
	}
	return fmt.Sprintf("%q", l.Raw)
}

func generateClientId() string {
	now := time.Now().Unix()
	random := rand.Intn(1000000)
	return fmt.Sprintf("serialmon-%v-%v", now, random)
}
