package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/morpion-backend/internal/entity"
)

// ChatRepository keeps the bounded chat history of each room.
type ChatRepository interface {
	// Append stores entry and evicts the oldest entries beyond limit.
	Append(ctx context.Context, entry entity.ChatEntry, limit int) error
	// History returns the stored entries of a room, oldest first.
	History(ctx context.Context, roomID string) ([]entity.ChatEntry, error)
	DeleteByRoomID(ctx context.Context, roomID string) error
}

type dbChat struct {
	client *redis.Client
}

func NewChatRepository(client *redis.Client) ChatRepository {
	return &dbChat{
		client: client,
	}
}

func chatKey(roomID string) string {
	return "chat:" + roomID
}

func (that *dbChat) Append(ctx context.Context, entry entity.ChatEntry, limit int) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("could not marshal chat entry: %w", err)
	}

	key := chatKey(entry.RoomID)

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, entryJSON)
		if limit > 0 {
			pipe.LTrim(ctx, key, int64(-limit), -1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append chat entry: %w", err)
	}

	return nil
}

func (that *dbChat) History(ctx context.Context, roomID string) ([]entity.ChatEntry, error) {
	response, err := that.client.LRange(ctx, chatKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get chat history: %w", err)
	}

	entries := make([]entity.ChatEntry, 0, len(response))
	for _, raw := range response {
		var entry entity.ChatEntry
		if err = json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (that *dbChat) DeleteByRoomID(ctx context.Context, roomID string) error {
	if err := that.client.Del(ctx, chatKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to delete chat history: %w", err)
	}

	return nil
}

type memoryChat struct {
	mu      sync.Mutex
	entries map[string][]entity.ChatEntry
}

// NewMemoryChatRepository keeps chat history in process memory. It is used when redis is
// disabled.
func NewMemoryChatRepository() ChatRepository {
	return &memoryChat{
		entries: make(map[string][]entity.ChatEntry),
	}
}

func (that *memoryChat) Append(_ context.Context, entry entity.ChatEntry, limit int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	entries := append(that.entries[entry.RoomID], entry)
	if limit > 0 && len(entries) > limit {
		entries = append([]entity.ChatEntry(nil), entries[len(entries)-limit:]...)
	}

	that.entries[entry.RoomID] = entries

	return nil
}

func (that *memoryChat) History(_ context.Context, roomID string) ([]entity.ChatEntry, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	entries := make([]entity.ChatEntry, len(that.entries[roomID]))
	copy(entries, that.entries[roomID])

	return entries, nil
}

func (that *memoryChat) DeleteByRoomID(_ context.Context, roomID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.entries, roomID)

	return nil
}
