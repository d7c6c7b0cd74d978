package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveSession is the cached view of an open parking session.
type ActiveSession struct {
	SessionID int64     `json:"session_id"`
	Plate     string    `json:"plate"`
	TenantID  int64     `json:"tenant_id"`
	OpenedBy  int64     `json:"opened_by"`
	StartTime time.Time `json:"start_time"`
}

// Store caches open sessions by plate.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store. A zero ttl keeps entries until deleted.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(plate string) string {
	return fmt.Sprintf("parking:active:%s", plate)
}

// Save caches session.
func (s *Store) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.Plate), data, s.ttl).Err()
}

// Get returns the cached session of plate or redis.Nil.
func (s *Store) Get(ctx context.Context, plate string) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.key(plate)).Result()
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete evicts plate.
func (s *Store) Delete(ctx context.Context, plate string) error {
	return s.client.Del(ctx, s.key(plate)).Err()
}
