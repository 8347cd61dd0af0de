package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/mindchat/backend/internal/model/chat"
)

const keyPrefix = "mindchat:session:"

// RedisStore keeps each session as a hash plus a list of turns. Both keys
// share a TTL that is refreshed on every write, so an idle session expires
// together with its history.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient parses url and verifies the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := redis.NewClient(opt)
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

// NewRedisStore wraps client. ttl must be positive.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string { return keyPrefix + id }
func turnsKey(id string) string   { return keyPrefix + id + ":turns" }

func (s *RedisStore) Create(ctx context.Context, session chat.Session) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(session.ID), map[string]any{
		"id":        session.ID,
		"modeId":    session.ModeID,
		"createdAt": session.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, sessionKey(session.ID), s.ttl)
	pipe.Del(ctx, turnsKey(session.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (chat.Session, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return chat.Session{}, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return chat.Session{}, ErrSessionNotFound
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields["createdAt"])
	if err != nil {
		return chat.Session{}, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return chat.Session{ID: fields["id"], ModeID: fields["modeId"], CreatedAt: createdAt}, nil
}

func (s *RedisStore) LoadHistory(ctx context.Context, sessionID string) (chat.History, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return chat.History{}, err
	}

	raw, err := s.client.LRange(ctx, turnsKey(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return chat.History{}, fmt.Errorf("load history: %w", err)
	}
	return decodeTurns(raw)
}

// SaveHistory appends the turns history has beyond what is stored. Writes
// for one session are serialised by the service, so the read-then-append
// below does not race with itself.
func (s *RedisStore) SaveHistory(ctx context.Context, sessionID string, history chat.History) error {
	current, err := s.LoadHistory(ctx, sessionID)
	if err != nil {
		return err
	}
	if !history.HasPrefix(current) {
		return ErrHistoryShrunk
	}

	added := history.Since(current.Len())
	if len(added) == 0 {
		return nil
	}

	values := make([]any, 0, len(added))
	for _, t := range added {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		values = append(values, data)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, turnsKey(sessionID), values...)
	pipe.Expire(ctx, turnsKey(sessionID), s.ttl)
	pipe.Expire(ctx, sessionKey(sessionID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	n, err := s.client.Del(ctx, sessionKey(sessionID), turnsKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func decodeTurns(raw []string) (chat.History, error) {
	turns := make([]chat.Turn, 0, len(raw))
	for i, item := range raw {
		var t chat.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return chat.History{}, fmt.Errorf("decode turn %d: %w", i, err)
		}
		turns = append(turns, t)
	}
	return chat.NewHistory(turns...), nil
}
