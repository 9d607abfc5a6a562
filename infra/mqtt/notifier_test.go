package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/chargeplan/core/model"
)

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t fakeToken) Error() error { return t.err }

type fakeClient struct {
	connectErr error
	published  []string
	topics     []string
}

func (c *fakeClient) IsConnected() bool       { return c.connectErr == nil }
func (c *fakeClient) Connect() paho.Token     { return fakeToken{err: c.connectErr} }
func (c *fakeClient) Disconnect(quiesce uint) {}
func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.topics = append(c.topics, topic)
	c.published = append(c.published, string(payload.([]byte)))
	return fakeToken{}
}

func withFakeClient(t *testing.T, cli pahoClient) {
	t.Helper()
	orig := newMQTTClient
	newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return cli }
	t.Cleanup(func() { newMQTTClient = orig })
}

func TestNewNotifierDisabled(t *testing.T) {
	n, err := NewNotifier(Config{Enabled: false})
	if err != nil || n != nil {
		t.Fatalf("disabled notifier should be nil,nil: %v %v", n, err)
	}
}

func TestNewNotifierConnectFailure(t *testing.T) {
	withFakeClient(t, &fakeClient{connectErr: errors.New("refused")})
	if _, err := NewNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883"}); err == nil {
		t.Fatal("connect failure should surface")
	}
}

func TestNotifyPublishesJSON(t *testing.T) {
	cli := &fakeClient{}
	withFakeClient(t, cli)

	n, err := NewNotifier(Config{Enabled: true, Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer n.Close()

	promised := 12
	n.Notify(model.Intervention{
		Action:           model.ActionReserve,
		Reason:           "policy_decision",
		StationID:        "st-001",
		ConnectorID:      "st-001-c1",
		PromisedStartMin: &promised,
	})

	if len(cli.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(cli.published))
	}
	if cli.topics[0] != "chargeplan/interventions" {
		t.Fatalf("topic %q", cli.topics[0])
	}
	var iv model.Intervention
	if err := json.Unmarshal([]byte(cli.published[0]), &iv); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if iv.Action != model.ActionReserve || iv.ConnectorID != "st-001-c1" {
		t.Fatalf("payload: %+v", iv)
	}
}

func TestNotifyNilReceiver(t *testing.T) {
	var n *Notifier
	n.Notify(model.Intervention{Action: model.ActionReserve})
	n.Close()
}
