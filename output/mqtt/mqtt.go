package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mklimuk/breath/config"
	"github.com/mklimuk/breath/output"
)

const (
	DefaultClientID = "breath"
	DefaultTopic    = "breath/pressure"
	// milliseconds granted to in-flight messages on disconnect
	disconnectQuiesce = 250
)

// client is the subset of mqtt.Client used for publishing
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type MQTTOutput struct {
	client   client
	topic    string
	qos      byte
	retained bool
}

func NewMQTT(cfg config.MQTT) (output.Publisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	c := mqtt.NewClient(opts)
	token := c.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	slog.Debug("mqtt connected", "server", cfg.Server, "client_id", clientID)
	return newMQTTOutput(c, cfg), nil
}

func newMQTTOutput(c client, cfg config.MQTT) *MQTTOutput {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTOutput{client: c, topic: topic, qos: cfg.QoS, retained: cfg.Retained}
}

func (m *MQTTOutput) Publish(ctx context.Context, r output.Reading) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("mqtt payload: %w", err)
	}
	token := m.client.Publish(m.topic, m.qos, m.retained, b)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if token.Error() != nil {
		return fmt.Errorf("mqtt publish to %s: %w", m.topic, token.Error())
	}
	return nil
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(disconnectQuiesce)
	}
	return nil
}
