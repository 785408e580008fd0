package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/zhouzirui/riji/backend/internal/model/chat"
)

// maxStoredMessages bounds each Redis transcript list.
const maxStoredMessages = 200

// RedisStore keeps sessions in Redis. Keys expire after the session TTL, so
// idle sessions disappear without an explicit prune.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed TranscriptStore.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string    { return fmt.Sprintf("riji:session:%s", id) }
func transcriptKey(id string) string { return fmt.Sprintf("riji:transcript:%s", id) }

// CreateSession stores the session record.
func (s *RedisStore) CreateSession(ctx context.Context, session chat.Session) error {
	return s.putSession(ctx, session)
}

func (s *RedisStore) putSession(ctx context.Context, session chat.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// GetSession loads a session record.
func (s *RedisStore) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return chat.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	var session chat.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return chat.Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

// Touch refreshes the activity timestamp and both key TTLs.
func (s *RedisStore) Touch(ctx context.Context, sessionID string, at time.Time) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	session.LastActiveAt = at
	if err := s.putSession(ctx, session); err != nil {
		return err
	}
	if err := s.client.Expire(ctx, transcriptKey(sessionID), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh transcript ttl: %w", err)
	}
	return nil
}

// Append pushes messages onto the transcript list and trims it.
func (s *RedisStore) Append(ctx context.Context, sessionID string, messages ...chat.Message) error {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, data)
	}

	key := transcriptKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -maxStoredMessages, -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append transcript: %w", err)
	}
	return nil
}

// Transcript returns the stored messages in order.
func (s *RedisStore) Transcript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	raw, err := s.client.LRange(ctx, transcriptKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	messages := make([]chat.Message, 0, len(raw))
	for _, item := range raw {
		var msg chat.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// PruneIdle is a no-op; Redis expires idle sessions on its own.
func (s *RedisStore) PruneIdle(context.Context, time.Time) (int, error) {
	return 0, nil
}
