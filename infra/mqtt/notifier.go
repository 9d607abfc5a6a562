// Package mqtt publishes intervention events to the charge-point network.
// Station-side integrations subscribe to these to mirror reservations and
// quarantines locally; the planner never depends on a reply.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Topic    string `json:"topic"`
	QoS      byte   `json:"qos"`
}

// SetDefaults fills the stock topic and a random client ID suffix.
func (c *Config) SetDefaults() {
	if c.Topic == "" {
		c.Topic = "chargeplan/interventions"
	}
	if c.ClientID == "" {
		c.ClientID = "chargeplan-" + uuid.NewString()[:8]
	}
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Notifier publishes intervention events over MQTT.
type Notifier struct {
	cli   pahoClient
	topic string
	qos   byte
	log   logger.Logger
}

// NewNotifier connects to the broker. Returns nil when disabled so callers
// can treat the notifier as optional.
func NewNotifier(cfg Config) (*Notifier, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	cfg.SetDefaults()
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)
	cli := newMQTTClient(opts)
	tok := cli.Connect()
	if !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %v", tok.Error())
	}
	return &Notifier{cli: cli, topic: cfg.Topic, qos: cfg.QoS, log: logger.New("mqtt-notifier")}, nil
}

// Notify publishes the intervention as JSON. Publish failures are logged
// and swallowed: notifications are best-effort and must never fail a
// planning run.
func (n *Notifier) Notify(iv model.Intervention) {
	if n == nil {
		return
	}
	payload, err := json.Marshal(iv)
	if err != nil {
		n.log.Errorf("marshal intervention: %v", err)
		return
	}
	tok := n.cli.Publish(n.topic, n.qos, false, payload)
	if !tok.WaitTimeout(2*time.Second) || tok.Error() != nil {
		n.log.Warnf("publish intervention: %v", tok.Error())
	}
}

// Close disconnects from the broker.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.cli.Disconnect(250)
}
