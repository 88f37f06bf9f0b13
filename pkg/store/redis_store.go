package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leojay-net/chatshop/internal/util"
	"github.com/leojay-net/chatshop/pkg/domain"
)

const redisKeyPrefix = "chatshop:session:"

// RedisStore keeps sessions in Redis with a TTL refreshed on every write.
// Suited to deployments that treat conversations as expiring state.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed session store. A zero TTL keeps
// sessions until explicitly deleted.
func NewRedisStore(addr, password string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

// redisKey hex-encodes the email so a ":" inside it cannot collide with the
// key separator.
func redisKey(email, sessionKey string) string {
	return redisKeyPrefix + hex.EncodeToString([]byte(email)) + ":" + sessionKey
}

// GetOrCreate returns or creates the session for (email, sessionKey).
func (s *RedisStore) GetOrCreate(ctx context.Context, email, sessionKey string) (domain.ChatSession, bool, error) {
	if sessionKey != "" {
		session, err := s.load(ctx, email, sessionKey)
		if err == nil {
			return session, false, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return domain.ChatSession{}, false, err
		}
	} else {
		sessionKey = util.NewSessionKey()
	}
	now := time.Now().UTC()
	session := domain.ChatSession{
		Email:      email,
		SessionKey: sessionKey,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.save(ctx, session); err != nil {
		return domain.ChatSession{}, false, err
	}
	return session, true, nil
}

// AppendMessage appends to an existing session's history.
func (s *RedisStore) AppendMessage(ctx context.Context, email, sessionKey string, msg domain.Message) error {
	session, err := s.load(ctx, email, sessionKey)
	if err != nil {
		return err
	}
	session.History = append(session.History, msg)
	session.UpdatedAt = time.Now().UTC()
	return s.save(ctx, session)
}

// List scans for matching sessions. Results come back ordered by creation
// time since key scan order is unspecified.
func (s *RedisStore) List(ctx context.Context, filter Filter) ([]domain.ChatSession, error) {
	keys, err := s.matchingKeys(ctx, filter)
	if err != nil {
		return nil, err
	}
	sessions := make([]domain.ChatSession, 0, len(keys))
	for _, key := range keys {
		raw, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", key, err)
		}
		var session domain.ChatSession
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", key, err)
		}
		sessions = append(sessions, session)
	}
	sortSessionsByCreation(sessions)
	return sessions, nil
}

// Delete removes matching sessions and reports the count.
func (s *RedisStore) Delete(ctx context.Context, filter Filter) (int64, error) {
	if filter.Empty() {
		return 0, ErrFilterRequired
	}
	keys, err := s.matchingKeys(ctx, filter)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	deleted, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	return deleted, nil
}

func (s *RedisStore) load(ctx context.Context, email, sessionKey string) (domain.ChatSession, error) {
	raw, err := s.client.Get(ctx, redisKey(email, sessionKey)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ChatSession{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.ChatSession{}, fmt.Errorf("load session: %w", err)
	}
	var session domain.ChatSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return domain.ChatSession{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func (s *RedisStore) save(ctx context.Context, session domain.ChatSession) error {
	encoded, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	key := redisKey(session.Email, session.SessionKey)
	if err := s.client.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) matchingKeys(ctx context.Context, filter Filter) ([]string, error) {
	pattern := redisKeyPrefix + "*"
	if filter.Email != "" {
		pattern = redisKeyPrefix + hex.EncodeToString([]byte(filter.Email)) + ":*"
	}
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if filter.SessionKey != "" && !strings.HasSuffix(key, ":"+filter.SessionKey) {
			continue
		}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return keys, nil
}

func sortSessionsByCreation(sessions []domain.ChatSession) {
	sort.Slice(sessions, func(a, b int) bool {
		return sessions[a].CreatedAt.Before(sessions[b].CreatedAt)
	})
}
