package nats

import (
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/constants"
)

// StreamConfig describes a JetStream stream
type StreamConfig struct {
	Name      string
	Subjects  []string
	Retention jetstream.RetentionPolicy
	Storage   jetstream.StorageType
	Replicas  int
	MaxAge    time.Duration
	MaxBytes  int64
	MaxMsgs   int64
	Discard   jetstream.DiscardPolicy
}

func (s StreamConfig) toJetStream() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:      s.Name,
		Subjects:  s.Subjects,
		Retention: s.Retention,
		Storage:   s.Storage,
		Replicas:  s.Replicas,
		MaxAge:    s.MaxAge,
		MaxBytes:  s.MaxBytes,
		MaxMsgs:   s.MaxMsgs,
		Discard:   s.Discard,
	}
}

// ConsumerConfig describes a durable JetStream consumer
type ConsumerConfig struct {
	StreamName    string
	ConsumerName  string
	FilterSubject string
	DeliverPolicy jetstream.DeliverPolicy
	AckPolicy     jetstream.AckPolicy
	AckWait       time.Duration
	MaxDeliver    int
	MaxAckPending int
}

func (c ConsumerConfig) toJetStream() jetstream.ConsumerConfig {
	return jetstream.ConsumerConfig{
		Durable:       c.ConsumerName,
		FilterSubject: c.FilterSubject,
		DeliverPolicy: c.DeliverPolicy,
		AckPolicy:     c.AckPolicy,
		AckWait:       c.AckWait,
		MaxDeliver:    c.MaxDeliver,
		MaxAckPending: c.MaxAckPending,
	}
}

// StreamConfigBuilder helps build stream configurations
type StreamConfigBuilder struct {
	config StreamConfig
}

// NewStreamConfigBuilder starts from file-backed limits retention
func NewStreamConfigBuilder(name string) *StreamConfigBuilder {
	return &StreamConfigBuilder{
		config: StreamConfig{
			Name:      name,
			Retention: jetstream.LimitsPolicy,
			Storage:   jetstream.FileStorage,
			Replicas:  1,
			MaxAge:    24 * time.Hour,
			MaxBytes:  100 * 1024 * 1024,
			MaxMsgs:   1000000,
			Discard:   jetstream.DiscardOld,
		},
	}
}

func (b *StreamConfigBuilder) WithSubjects(subjects ...string) *StreamConfigBuilder {
	b.config.Subjects = subjects
	return b
}

func (b *StreamConfigBuilder) WithStorage(storage jetstream.StorageType) *StreamConfigBuilder {
	b.config.Storage = storage
	return b
}

func (b *StreamConfigBuilder) WithMaxAge(maxAge time.Duration) *StreamConfigBuilder {
	b.config.MaxAge = maxAge
	return b
}

func (b *StreamConfigBuilder) WithMaxBytes(maxBytes int64) *StreamConfigBuilder {
	b.config.MaxBytes = maxBytes
	return b
}

func (b *StreamConfigBuilder) Build() StreamConfig {
	return b.config
}

// ConsumerConfigBuilder helps build consumer configurations
type ConsumerConfigBuilder struct {
	config ConsumerConfig
}

// NewConsumerConfigBuilder starts from explicit acks and three deliveries
func NewConsumerConfigBuilder(streamName, consumerName string) *ConsumerConfigBuilder {
	return &ConsumerConfigBuilder{
		config: ConsumerConfig{
			StreamName:    streamName,
			ConsumerName:  consumerName,
			DeliverPolicy: jetstream.DeliverNewPolicy,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    3,
			MaxAckPending: 1000,
		},
	}
}

func (b *ConsumerConfigBuilder) WithSubject(subject string) *ConsumerConfigBuilder {
	b.config.FilterSubject = subject
	return b
}

func (b *ConsumerConfigBuilder) WithDeliverPolicy(policy jetstream.DeliverPolicy) *ConsumerConfigBuilder {
	b.config.DeliverPolicy = policy
	return b
}

func (b *ConsumerConfigBuilder) WithMaxDeliver(maxDeliver int) *ConsumerConfigBuilder {
	b.config.MaxDeliver = maxDeliver
	return b
}

func (b *ConsumerConfigBuilder) Build() ConsumerConfig {
	return b.config
}

// DefaultStreamConfigs returns the streams the dispatch services publish to
func DefaultStreamConfigs() []StreamConfig {
	return []StreamConfig{
		NewStreamConfigBuilder(constants.StreamRides).
			WithSubjects(constants.SubjectRideAll).
			WithMaxAge(7 * 24 * time.Hour). // audit trail of ride changes
			WithMaxBytes(200 * 1024 * 1024).
			Build(),

		NewStreamConfigBuilder(constants.StreamChat).
			WithSubjects(constants.SubjectChatAll).
			WithMaxAge(24 * time.Hour).
			Build(),
	}
}

// RatingConsumerConfig is the durable consumer feeding rating aggregation
func RatingConsumerConfig() ConsumerConfig {
	return NewConsumerConfigBuilder(constants.StreamRides, constants.ConsumerRatingAggregator).
		WithSubject(constants.SubjectRideRated).
		WithDeliverPolicy(jetstream.DeliverAllPolicy).
		WithMaxDeliver(5).
		Build()
}
