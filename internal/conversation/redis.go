package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-chat-orders/internal/redisx"
)

// RedisStore keeps one JSON document per user and lets Redis expire it.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(userID string) string { return fmt.Sprintf(redisx.KeyConversation, userID) }

func (s *RedisStore) Load(ctx context.Context, userID string) (Context, error) {
	return s.get(ctx, s.rdb, userID)
}

func (s *RedisStore) get(ctx context.Context, c redis.Cmdable, userID string) (Context, error) {
	b, err := c.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Context{UserID: userID}, nil
	}
	if err != nil {
		return Context{}, err
	}
	var out Context
	if err := json.Unmarshal(b, &out); err != nil {
		return Context{UserID: userID}, nil
	}
	return out, nil
}

// Update is a WATCH/MULTI read-modify-write so concurrent writers from other
// processes cannot interleave.
func (s *RedisStore) Update(ctx context.Context, userID string, p Patch) (Context, error) {
	k := key(userID)
	var out Context
	txf := func(tx *redis.Tx) error {
		cur, err := s.get(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = cur.Apply(p, time.Now(), s.ttl)
		b, err := json.Marshal(out)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, b, s.ttl)
			return nil
		})
		return err
	}
	for i := 0; i < 3; i++ {
		err := s.rdb.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return out, err
	}
	return Context{}, fmt.Errorf("update conversation %s: %w", userID, redis.TxFailedErr)
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, key(userID)).Err()
}

var _ Store = (*RedisStore)(nil)
