package orders

import (
	"context"
	"encoding/json"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-chat-orders/internal/kafka"
)

// Publisher delivers ledger events. Delivery is best effort; the ledger logs
// failures and never rolls back a committed order because of them.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Envelope) error { return nil }

// KafkaPublisher writes envelopes through the async producer, keyed by the
// correlation id.
type KafkaPublisher struct {
	P *kafkax.Producer
}

func (k KafkaPublisher) Publish(_ context.Context, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	k.P.Publish(TopicFor(env.EventType), PartitionKey(env.CorrelationID), b,
		kafkago.Header{Key: "event_type", Value: []byte(env.EventType)})
	return nil
}

// RecordingPublisher keeps envelopes in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []Envelope
}

func (r *RecordingPublisher) Publish(_ context.Context, env Envelope) error {
	r.mu.Lock()
	r.Events = append(r.Events, env)
	r.mu.Unlock()
	return nil
}

func (r *RecordingPublisher) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.EventType
	}
	return out
}
