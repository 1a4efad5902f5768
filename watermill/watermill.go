// Package watermill provides the change-notification transport used by the
// sqlite store's continuous queries: an in-process Go channel pub/sub for a
// single client and Redis Streams for clients sharing one database.
package watermill

import (
	"context"
	"errors"
	"fmt"

	wm "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// PubSub pairs a publisher with a subscriber on the same backend.
type PubSub struct {
	message.Publisher
	message.Subscriber

	closers []func() error
}

// Close closes the subscriber, the publisher and the backend connection.
func (p *PubSub) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewMemory returns an in-process pub/sub.
func NewMemory(logger zerolog.Logger) *PubSub {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 16,
	}, NewLogger(logger))
	return &PubSub{Publisher: ch, Subscriber: ch, closers: []func() error{ch.Close}}
}

// NewRedis returns a Redis Streams pub/sub at addr. Subscribers use no
// consumer group, so every subscriber of a topic receives every message.
func NewRedis(ctx context.Context, addr string, logger zerolog.Logger) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	marshaler := redisstream.DefaultMarshallerUnmarshaller{}
	wl := NewLogger(logger)

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, wl)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis publisher: %w", err)
	}

	sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:       client,
		Unmarshaller: marshaler,
	}, wl)
	if err != nil {
		_ = pub.Close()
		_ = client.Close()
		return nil, fmt.Errorf("redis subscriber: %w", err)
	}

	return &PubSub{
		Publisher:  pub,
		Subscriber: sub,
		closers:    []func() error{sub.Close, pub.Close, client.Close},
	}, nil
}

// NewMessage returns a message with a fresh UUID and the given payload.
func NewMessage(payload []byte) *message.Message {
	return message.NewMessage(wm.NewUUID(), payload)
}
