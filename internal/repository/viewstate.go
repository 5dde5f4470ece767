package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"queuebot/internal/model"
)

// ErrViewStateNotFound is returned when no view state is saved for a chat.
var ErrViewStateNotFound = errors.New("view state not found")

// ViewStateStore persists each chat's queue view between restarts.
type ViewStateStore interface {
	Save(ctx context.Context, chatID int64, state model.ViewState) error
	Load(ctx context.Context, chatID int64) (model.ViewState, error)
}

const keyViewState = "queuebot:view:%d"

// RedisViewStateStore keeps view state in Redis with a sliding TTL.
type RedisViewStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisViewStateStore creates a store on client. A zero ttl keeps keys forever.
func NewRedisViewStateStore(client *redis.Client, ttl time.Duration) *RedisViewStateStore {
	return &RedisViewStateStore{client: client, ttl: ttl}
}

// Save stores state for chatID.
func (s *RedisViewStateStore) Save(ctx context.Context, chatID int64, state model.ViewState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode view state: %w", err)
	}

	if err := s.client.Set(ctx, fmt.Sprintf(keyViewState, chatID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save view state: %w", err)
	}
	return nil
}

// Load returns the saved state for chatID or ErrViewStateNotFound.
func (s *RedisViewStateStore) Load(ctx context.Context, chatID int64) (model.ViewState, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(keyViewState, chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.ViewState{}, ErrViewStateNotFound
	}
	if err != nil {
		return model.ViewState{}, fmt.Errorf("failed to load view state: %w", err)
	}

	var state model.ViewState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.ViewState{}, fmt.Errorf("failed to decode view state: %w", err)
	}
	return state, nil
}

// MemoryViewStateStore keeps view state in process memory.
type MemoryViewStateStore struct {
	mu     sync.RWMutex
	states map[int64]model.ViewState
}

// NewMemoryViewStateStore creates an empty in-memory store.
func NewMemoryViewStateStore() *MemoryViewStateStore {
	return &MemoryViewStateStore{states: make(map[int64]model.ViewState)}
}

// Save stores state for chatID.
func (s *MemoryViewStateStore) Save(_ context.Context, chatID int64, state model.ViewState) error {
	s.mu.Lock()
	s.states[chatID] = state
	s.mu.Unlock()
	return nil
}

// Load returns the saved state for chatID or ErrViewStateNotFound.
func (s *MemoryViewStateStore) Load(_ context.Context, chatID int64) (model.ViewState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[chatID]
	if !ok {
		return model.ViewState{}, ErrViewStateNotFound
	}
	return state, nil
}
