package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storyfeed-api/models"
	"storyfeed-api/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewActivityCreated(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ev, err := NewActivityCreated(&models.ActivityRecord{
		ID:      9,
		Author:  2,
		Type:    "system_message",
		Data:    models.SystemPayload{Message: "maintenance"},
		Created: created,
	}, []int{2})
	require.NoError(t, err)
	assert.Equal(t, TypeActivityCreated, ev.Type)
	assert.JSONEq(t, `{"message":"maintenance"}`, string(ev.Data))
	assert.Equal(t, []int{2}, ev.Recipients)
	assert.Equal(t, created, ev.Created)
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(logging.Discard())
	var got []int
	bus.Subscribe(func(_ context.Context, ev ActivityCreated) { got = append(got, ev.ActivityID) })
	bus.Subscribe(func(context.Context, ActivityCreated) { panic("boom") })
	bus.Subscribe(func(_ context.Context, ev ActivityCreated) { got = append(got, ev.ActivityID*10) })

	require.NoError(t, bus.Publish(context.Background(), ActivityCreated{ActivityID: 3}))
	assert.Equal(t, []int{3, 30}, got)
}

func TestRedisRelayReceiveSkipsOwnOrigin(t *testing.T) {
	bus := NewBus(logging.Discard())
	var got []int
	bus.Subscribe(func(_ context.Context, ev ActivityCreated) { got = append(got, ev.ActivityID) })
	relay := NewRedisRelay(nil, "", bus, logging.Discard())
	assert.Equal(t, DefaultRedisChannel, relay.channel)

	own, _ := json.Marshal(envelope{Origin: relay.origin, Event: ActivityCreated{ActivityID: 1}})
	other, _ := json.Marshal(envelope{Origin: "another-instance", Event: ActivityCreated{ActivityID: 2}})

	relay.receive(context.Background(), own)
	relay.receive(context.Background(), other)
	relay.receive(context.Background(), []byte("{not json"))

	assert.Equal(t, []int{2}, got)
}
