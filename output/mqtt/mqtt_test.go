package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/breath/config"
	"github.com/mklimuk/breath/output"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newToken(err error, completed bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if completed {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	args := m.Called(topic, qos, retained, payload)
	return args.Get(0).(mqtt.Token)
}

func (m *MockClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

func TestMQTTOutput_Publish(t *testing.T) {
	c := new(MockClient)
	out := newMQTTOutput(c, config.MQTT{Topic: "studio/breath", QoS: 1})
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var payload []byte
	c.On("Publish", "studio/breath", byte(1), false, mock.Anything).
		Run(func(args mock.Arguments) { payload = args.Get(3).([]byte) }).
		Return(newToken(nil, true)).Once()

	err := out.Publish(context.Background(), output.Reading{Value: 64, Baseline: -3, Timestamp: ts})
	require.NoError(t, err)

	var got output.Reading
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, 64, got.Value)
	assert.Equal(t, -3, got.Baseline)
	assert.True(t, ts.Equal(got.Timestamp))
	c.AssertExpectations(t)
}

func TestMQTTOutput_DefaultTopic(t *testing.T) {
	c := new(MockClient)
	out := newMQTTOutput(c, config.MQTT{})
	c.On("Publish", DefaultTopic, byte(0), false, mock.Anything).Return(newToken(nil, true)).Once()
	require.NoError(t, out.Publish(context.Background(), output.Reading{}))
	c.AssertExpectations(t)
}

func TestMQTTOutput_PublishError(t *testing.T) {
	c := new(MockClient)
	out := newMQTTOutput(c, config.MQTT{})
	brokerErr := errors.New("not connected")
	c.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(newToken(brokerErr, true)).Once()

	err := out.Publish(context.Background(), output.Reading{})
	assert.ErrorIs(t, err, brokerErr)
}

func TestMQTTOutput_PublishCancelled(t *testing.T) {
	c := new(MockClient)
	out := newMQTTOutput(c, config.MQTT{})
	c.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(newToken(nil, false)).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := out.Publish(ctx, output.Reading{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMQTTOutput_Close(t *testing.T) {
	c := new(MockClient)
	out := newMQTTOutput(c, config.MQTT{})
	c.On("Disconnect", uint(disconnectQuiesce)).Once()
	require.NoError(t, out.Close())
	c.AssertExpectations(t)
}
