package ai

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/macromojo/macromojo/internal/ports/outbound"
)

const memoryKeyPrefix = "assistant:history:"

// Memory keeps each conversation's recent turns in the cache
type Memory struct {
	cache outbound.CacheRepository
	limit int
	ttl   time.Duration
}

// NewMemory creates a conversation store keeping at most limit messages
func NewMemory(cache outbound.CacheRepository, limit int, ttl time.Duration) *Memory {
	if limit <= 0 {
		limit = 20
	}
	return &Memory{cache: cache, limit: limit, ttl: ttl}
}

// Load returns the stored turns, oldest first. A missing conversation is empty.
func (m *Memory) Load(ctx context.Context, conversationID string) ([]outbound.ChatMessage, error) {
	data, err := m.cache.Get(ctx, memoryKeyPrefix+conversationID)
	if errors.Is(err, outbound.ErrCacheMiss) {
		return []outbound.ChatMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	var history []outbound.ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return []outbound.ChatMessage{}, nil
	}
	return history, nil
}

// Save stores history, keeping only the newest messages
func (m *Memory) Save(ctx context.Context, conversationID string, history []outbound.ChatMessage) error {
	if len(history) > m.limit {
		history = history[len(history)-m.limit:]
	}
	data, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return m.cache.Set(ctx, memoryKeyPrefix+conversationID, data, m.ttl)
}

// Reset forgets the conversation
func (m *Memory) Reset(ctx context.Context, conversationID string) error {
	return m.cache.Delete(ctx, memoryKeyPrefix+conversationID)
}
