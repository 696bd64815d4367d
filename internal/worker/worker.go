// Package worker routes chat messages delivered over Kafka and publishes the
// replies to the outbound topic.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-chat-orders/internal/dedup"
	"github.com/ariefcatur/go-chat-orders/internal/handler"
	kafkax "github.com/ariefcatur/go-chat-orders/internal/kafka"
	"github.com/ariefcatur/go-chat-orders/internal/routing"
)

// Inbound is the value of a chat.inbound message. The Kafka key is the user id.
type Inbound struct {
	UserID    string    `json:"user_id"`
	MessageID string    `json:"message_id"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"sent_at"`
}

type Outbound struct {
	ReplyID    string    `json:"reply_id"`
	UserID     string    `json:"user_id"`
	MessageID  string    `json:"message_id,omitempty"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Text       string    `json:"text"`
	RepliedAt  time.Time `json:"replied_at"`
}

type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafka.Header)
}

type Service struct {
	Dispatcher    *routing.Dispatcher
	Guard         dedup.Guard
	Out           Publisher
	OutboundTopic string
	Log           *zap.Logger
}

// Handle is a kafka.Handler. Malformed and duplicate messages are acknowledged
// without routing. When dispatch fails the claim is released and the error
// returned, so the consumer retries the message.
func (s *Service) Handle(ctx context.Context, m kafka.Message) error {
	in, err := kafkax.Decode[Inbound](m.Value)
	if err != nil || in.UserID == "" || in.Text == "" {
		s.Log.Warn("dropping malformed message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if in.MessageID != "" && s.Guard != nil {
		first, err := s.Guard.Claim(ctx, in.MessageID)
		if err != nil {
			s.Log.Warn("dedup unavailable, routing anyway", zap.String("message_id", in.MessageID), zap.Error(err))
			first = true
		}
		if !first {
			s.Log.Debug("duplicate message", zap.String("message_id", in.MessageID))
			return nil
		}
	}

	res, err := s.Dispatcher.Dispatch(ctx, in.UserID, in.Text)
	if err != nil {
		if in.MessageID != "" && s.Guard != nil {
			if rerr := s.Guard.Release(context.WithoutCancel(ctx), in.MessageID); rerr != nil {
				s.Log.Warn("release claim", zap.String("message_id", in.MessageID), zap.Error(rerr))
			}
		}
		return err
	}
	out := Outbound{
		ReplyID:    uuid.NewString(),
		UserID:     in.UserID,
		MessageID:  in.MessageID,
		Intent:     string(res.Label),
		Confidence: res.Confidence,
		Text:       res.Reply.Truncate(handler.MaxReplyChars),
		RepliedAt:  time.Now().UTC(),
	}
	s.Out.Publish(s.OutboundTopic, []byte(in.UserID), kafkax.MustMarshal(out),
		kafka.Header{Key: "intent", Value: []byte(out.Intent)})
	return nil
}
