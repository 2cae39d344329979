package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrTopicRequired is returned when Publish is called with an empty destination.
	ErrTopicRequired = errors.New("messaging: topic is required")
	// ErrClosed is returned when publishing through a closed client.
	ErrClosed = errors.New("messaging: client is closed")
)

// Publisher is a broker-agnostic message publisher.
type Publisher interface {
	io.Closer

	// Publish sends msg to destination (topic or subject) and waits for the
	// broker to accept it.
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage is a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Key is used for partitioning by Kafka and as ordering key by Pub/Sub.
	Key []byte
	// Body is the payload.
	Body []byte
	// Headers are carried as native headers, or attributes on Pub/Sub.
	// NSQ has no headers and drops them.
	Headers []Header
}

// Header is a message header.
type Header struct {
	Key   string
	Value string
}

// PublishResult carries the broker acknowledgement.
type PublishResult struct {
	// MessageID is set by brokers that assign one (Pub/Sub).
	MessageID string
	Topic     string
	Timestamp time.Time
}

func headerMap(hs []Header) map[string]string {
	if len(hs) == 0 {
		return nil
	}

	m := make(map[string]string, len(hs))
	for _, h := range hs {
		if h.Key != "" {
			m[h.Key] = h.Value
		}
	}
	return m
}

func checkPublish(ctx context.Context, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrTopicRequired
	}
	return nil
}
