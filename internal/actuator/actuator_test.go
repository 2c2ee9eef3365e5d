package actuator_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/smart-pump/internal/actuator"
)

func TestSimulatedPump_Transitions(t *testing.T) {
	var seen []actuator.Transition
	pump := actuator.NewSimulatedPump(actuator.SimulatedConfig{
		OnChange: func(tr actuator.Transition) { seen = append(seen, tr) },
	})
	ctx := context.Background()

	require.NoError(t, pump.SetOutput(ctx, true))
	assert.True(t, pump.IsOn())
	require.NoError(t, pump.SetOutput(ctx, true))
	require.NoError(t, pump.SetOutput(ctx, false))
	assert.False(t, pump.IsOn())

	history := pump.History()
	require.Len(t, history, 2)
	assert.True(t, history[0].On)
	assert.False(t, history[1].On)
	assert.Len(t, seen, 2)
}

func TestSimulatedPump_HistoryIsBounded(t *testing.T) {
	pump := actuator.NewSimulatedPump(actuator.SimulatedConfig{MaxHistory: 3})
	for i := 0; i < 10; i++ {
		require.NoError(t, pump.SetOutput(context.Background(), i%2 == 0))
	}
	assert.Len(t, pump.History(), 3)
}

func TestSimulatedPump_Failures(t *testing.T) {
	pump := actuator.NewSimulatedPump(actuator.SimulatedConfig{})
	boom := errors.New("relay stuck")

	pump.FailNext(boom)
	assert.ErrorIs(t, pump.SetOutput(context.Background(), true), boom)
	assert.False(t, pump.IsOn())
	assert.NoError(t, pump.SetOutput(context.Background(), true))

	require.NoError(t, pump.Close())
	assert.False(t, pump.IsOn())
	assert.ErrorIs(t, pump.SetOutput(context.Background(), true), actuator.ErrClosed)
}

type doneToken struct {
	err  error
	done chan struct{}
}

func newDoneToken(err error) *doneToken {
	t := &doneToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}          { return t.done }
func (t *doneToken) Error() error                   { return t.err }

type fakeClient struct {
	mqtt.Client
	published []published
	err       error
	disconn   bool
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, published{topic, qos, retained, payload.([]byte)})
	return newDoneToken(c.err)
}

func (c *fakeClient) Disconnect(uint) { c.disconn = true }

func TestMQTTPump_PublishesRetainedState(t *testing.T) {
	client := &fakeClient{}
	pump := actuator.NewMQTTPumpWithClient(client, actuator.MQTTConfig{Topic: "pump/relay", QoS: 1})

	require.NoError(t, pump.SetOutput(context.Background(), true))
	require.NoError(t, pump.SetOutput(context.Background(), false))

	require.Len(t, client.published, 2)
	first := client.published[0]
	assert.Equal(t, "pump/relay", first.topic)
	assert.Equal(t, byte(1), first.qos)
	assert.True(t, first.retained)

	var cmd map[string]interface{}
	require.NoError(t, json.Unmarshal(first.payload, &cmd))
	assert.Equal(t, "on", cmd["state"])

	require.NoError(t, json.Unmarshal(client.published[1].payload, &cmd))
	assert.Equal(t, "off", cmd["state"])
	assert.False(t, pump.IsOn())

	require.NoError(t, pump.Close())
	assert.True(t, client.disconn)
}

func TestMQTTPump_PublishError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	pump := actuator.NewMQTTPumpWithClient(client, actuator.MQTTConfig{Topic: "pump/relay"})

	err := pump.SetOutput(context.Background(), true)

	assert.ErrorIs(t, err, actuator.ErrActuationFailed)
	assert.False(t, pump.IsOn())
}
