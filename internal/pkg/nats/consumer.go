package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
)

// JetStreamMessageHandler processes one message; an error triggers redelivery
type JetStreamMessageHandler func(ctx context.Context, msg jetstream.Msg) error

// Consumer pushes messages of a durable consumer to a handler
type Consumer struct {
	consumeCtx jetstream.ConsumeContext
	cancel     context.CancelFunc
}

// NewJetStreamConsumer creates (or updates) the durable consumer and starts consuming
func NewJetStreamConsumer(ctx context.Context, client *Client, config ConsumerConfig, handler JetStreamMessageHandler) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}

	cons, err := client.js.CreateOrUpdateConsumer(ctx, config.StreamName, config.toJetStream())
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer %s: %w", config.ConsumerName, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	consumeCtx, err := cons.Consume(func(msg jetstream.Msg) {
		handleMessage(runCtx, msg, handler)
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start consuming %s: %w", config.ConsumerName, err)
	}

	logger.Info("JetStream consumer started",
		logger.String("stream", config.StreamName),
		logger.String("consumer", config.ConsumerName))

	return &Consumer{consumeCtx: consumeCtx, cancel: cancel}, nil
}

// handleMessage acks on success and naks on failure
func handleMessage(ctx context.Context, msg jetstream.Msg, handler JetStreamMessageHandler) {
	if err := handler(ctx, msg); err != nil {
		logger.Error("Error processing JetStream message",
			logger.String("subject", msg.Subject()),
			logger.Err(err))
		if nakErr := msg.Nak(); nakErr != nil {
			logger.Error("Failed to NAK message", logger.Err(nakErr))
		}
		return
	}

	if ackErr := msg.Ack(); ackErr != nil {
		logger.Error("Failed to ACK message", logger.Err(ackErr))
	}
}

// Stop stops delivery and cancels in-flight handlers
func (c *Consumer) Stop() {
	if c.consumeCtx != nil {
		c.consumeCtx.Stop()
	}
	if c.cancel != nil {
		c.cancel()
	}
}
