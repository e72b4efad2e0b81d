package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// MemoryLanguageStore keeps language choices for the lifetime of the process.
type MemoryLanguageStore struct {
	mu    sync.RWMutex
	langs map[int64]string
}

func NewMemoryLanguageStore() *MemoryLanguageStore {
	return &MemoryLanguageStore{langs: make(map[int64]string)}
}

func (s *MemoryLanguageStore) Get(ctx context.Context, userID int64) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lang, ok := s.langs[userID]
	return lang, ok, nil
}

func (s *MemoryLanguageStore) Set(ctx context.Context, userID int64, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.langs[userID] = lang
	return nil
}

const languageKeyPrefix = "scdl:lang:"

// RedisLanguageStore persists language choices so they survive restarts.
type RedisLanguageStore struct {
	client *redis.Client
}

// NewRedisClient builds a client for the language store.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// PingRedis checks the connection.
func PingRedis(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func NewRedisLanguageStore(client *redis.Client) *RedisLanguageStore {
	return &RedisLanguageStore{client: client}
}

func (s *RedisLanguageStore) Get(ctx context.Context, userID int64) (string, bool, error) {
	lang, err := s.client.Get(ctx, languageKey(userID)).Result()
	switch {
	case err == nil:
		return lang, true, nil
	case errors.Is(err, redis.Nil):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("get language: %w", err)
	}
}

func (s *RedisLanguageStore) Set(ctx context.Context, userID int64, lang string) error {
	if err := s.client.Set(ctx, languageKey(userID), lang, 0).Err(); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return nil
}

func languageKey(userID int64) string {
	return languageKeyPrefix + strconv.FormatInt(userID, 10)
}
