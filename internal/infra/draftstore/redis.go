package draftstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	domain "github.com/Ekka-Barber/Bookings-sub000/internal/domain/booking"
)

const keyPrefix = "booking:draft:"

// RedisDraftStorage keeps one session's draft under a fixed key.
type RedisDraftStorage struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func New(client *redis.Client, sessionID string, ttl time.Duration) *RedisDraftStorage {
	return &RedisDraftStorage{client: client, key: keyPrefix + sessionID, ttl: ttl}
}

// Factory binds a client and TTL for per-session storages.
func Factory(client *redis.Client, ttl time.Duration) func(sessionID string) domain.DraftStorage {
	return func(sessionID string) domain.DraftStorage {
		return New(client, sessionID, ttl)
	}
}

var _ domain.DraftStorage = (*RedisDraftStorage)(nil)

func (s *RedisDraftStorage) Load(ctx context.Context) (*domain.Draft, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var d domain.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", s.key, err)
	}
	return &d, nil
}

func (s *RedisDraftStorage) Save(ctx context.Context, d domain.Draft) error {
	b, err := json.Marshal(d.Persisted())
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, b, s.ttl).Err()
}

func (s *RedisDraftStorage) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
