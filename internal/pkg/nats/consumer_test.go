package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/constants"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/stretchr/testify/assert"
)

type fakeMsg struct {
	jetstream.Msg
	subject string
	data    []byte
	acked   bool
	naked   bool
}

func (m *fakeMsg) Subject() string { return m.subject }
func (m *fakeMsg) Data() []byte    { return m.data }
func (m *fakeMsg) Ack() error {
	m.acked = true
	return nil
}
func (m *fakeMsg) Nak() error {
	m.naked = true
	return nil
}

func TestHandleMessage_AcksOnSuccess(t *testing.T) {
	msg := &fakeMsg{subject: constants.SubjectRideRated, data: []byte(`{}`)}

	handleMessage(context.Background(), msg, func(_ context.Context, m jetstream.Msg) error {
		assert.Equal(t, []byte(`{}`), m.Data())
		return nil
	})

	assert.True(t, msg.acked)
	assert.False(t, msg.naked)
}

func TestHandleMessage_NaksOnError(t *testing.T) {
	msg := &fakeMsg{subject: constants.SubjectRideRated}

	handleMessage(context.Background(), msg, func(context.Context, jetstream.Msg) error {
		return errors.New("db down")
	})

	assert.False(t, msg.acked)
	assert.True(t, msg.naked)
}

func TestNewJetStreamConsumer_NilClient(t *testing.T) {
	_, err := NewJetStreamConsumer(context.Background(), nil, RatingConsumerConfig(), nil)
	assert.Error(t, err)
}

func TestDefaultStreamConfigs(t *testing.T) {
	streams := DefaultStreamConfigs()

	assert.Len(t, streams, 2)
	assert.Equal(t, constants.StreamRides, streams[0].Name)
	assert.Equal(t, []string{"ride.>"}, streams[0].Subjects)
	assert.Equal(t, constants.StreamChat, streams[1].Name)
	assert.Equal(t, jetstream.LimitsPolicy, streams[1].Retention)
}

func TestRatingConsumerConfig(t *testing.T) {
	cfg := RatingConsumerConfig()

	assert.Equal(t, constants.StreamRides, cfg.StreamName)
	assert.Equal(t, constants.SubjectRideRated, cfg.FilterSubject)
	assert.Equal(t, jetstream.DeliverAllPolicy, cfg.DeliverPolicy)
	assert.Equal(t, jetstream.AckExplicitPolicy, cfg.AckPolicy)
	assert.Equal(t, 5, cfg.MaxDeliver)

	js := cfg.toJetStream()
	assert.Equal(t, constants.ConsumerRatingAggregator, js.Durable)
}

func TestNewClient_InvalidURL(t *testing.T) {
	client, err := NewClient(models.NATSConfig{URL: "nats://127.0.0.1:1"})
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to connect to NATS server")
}

func TestClient_OnReconnect(t *testing.T) {
	c := &Client{reconnectHandlers: make(map[int]func())}
	fired := make(chan int, 2)

	unregister := c.OnReconnect(func() { fired <- 1 })
	c.OnReconnect(func() { fired <- 2 })
	unregister()

	c.fireReconnect()

	assert.Equal(t, 2, <-fired)
	assert.Len(t, fired, 0)
}
