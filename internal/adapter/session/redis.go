package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"qabot/internal/domain"
)

const keyPrefix = "qabot:session:"

// RedisStore keeps each transcript as a Redis list of JSON turns.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects and pings the server. A zero ttl keeps sessions forever.
func NewRedisStore(ctx context.Context, addr string, db int, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func sessionKey(id string) string {
	return keyPrefix + id
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, turn domain.ConversationTurn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}

	key := sessionKey(sessionID)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	items, err := s.rdb.LRange(ctx, sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	turns := make([]domain.ConversationTurn, 0, len(items))
	for _, item := range items {
		var turn domain.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("corrupt turn in session %s: %w", sessionID, err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, sessionKey(sessionID)).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
