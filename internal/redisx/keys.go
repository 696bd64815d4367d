package redisx

import "time"

const (
	// Conversation memory per user: conv:{user_id} -> JSON context
	KeyConversation = "conv:%s"

	// Inbound message dedup: dedup:msg:{message_id}
	KeyMessageDedup = "dedup:msg:%s"

	// Cached rendered reply for a processed message: reply:{message_id}
	KeyReply = "reply:%s"
)

var (
	TTLDedup = 48 * time.Hour
	TTLReply = 10 * time.Minute
)
