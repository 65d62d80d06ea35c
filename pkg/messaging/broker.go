package messaging

import (
	"context"
	"encoding/json"
)

// Message is the envelope relayed to subscribers. Key is the patient id so
// consumers can partition by patient.
type Message struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Key     string          `json:"key"`
	Payload json.RawMessage `json:"payload"`
}

// Publisher defines the interface for publishing messages
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
}

// Broker defines the interface for message brokers
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, topic string) (<-chan Message, error)
	Close() error
}
