// Package redisstore keeps conversation metadata and message logs in
// Redis under a shared sliding TTL. Metadata lives in a hash at
// conversation:<id>, the ordered message log in a list at
// conversation:<id>:messages; both keys expire together and every
// write pushes the deadline forward.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gincol-ia/ollama-api/utils/logging"
	"github.com/gincol-ia/ollama-api/utils/types"
)

var ErrNotFound = errors.New("conversation not found")

const (
	keyPrefix      = "conversation:"
	messagesSuffix = ":messages"
	opTimeout      = 5 * time.Second
)

// Metadata is the stored conversation hash. Timestamps are unix
// seconds, matching what the wire format exposes.
type Metadata struct {
	Model       string
	CreatedAt   float64
	UpdatedAt   float64
	DisplayName string
}

type Store struct {
	addr     string
	password string
	db       int
	ttl      time.Duration
}

func New(addr, password string, db int, ttl time.Duration) *Store {
	return &Store{addr: addr, password: password, db: db, ttl: ttl}
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

// connect dials a client scoped to one logical operation. The caller
// must Close it on every exit path.
func (s *Store) connect(ctx context.Context) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         s.addr,
		Password:     s.password,
		DB:           s.db,
		DialTimeout:  opTimeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return client, nil
}

func metaKey(id string) string {
	return keyPrefix + id
}

func messagesKey(id string) string {
	return keyPrefix + id + messagesSuffix
}

func nowSeconds() float64 {
	return float64(time.Now().UnixMilli()) / 1000
}

// CreateOrTouchMetadata creates the metadata hash on first use, or
// advances updated_at on an existing one. Model and display_name are
// never overwritten by a touch.
func (s *Store) CreateOrTouchMetadata(ctx context.Context, id, model string) error {
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	return touchMetadata(ctx, client, id, model)
}

func touchMetadata(ctx context.Context, client *redis.Client, id, model string) error {
	exists, err := client.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return err
	}
	now := nowSeconds()
	if exists == 0 {
		return client.HSet(ctx, metaKey(id), map[string]any{
			"model":      model,
			"created_at": now,
			"updated_at": now,
		}).Err()
	}
	return client.HSet(ctx, metaKey(id), "updated_at", now).Err()
}

// AppendMessage appends one message to the ordered log and resets the
// TTL on both keys. It assumes metadata already exists.
func (s *Store) AppendMessage(ctx context.Context, id, role, content string) error {
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	return appendMessage(ctx, client, s.ttl, id, role, content)
}

func appendMessage(ctx context.Context, client *redis.Client, ttl time.Duration, id, role, content string) error {
	data, err := json.Marshal(map[string]any{
		"role":      role,
		"content":   content,
		"timestamp": nowSeconds(),
	})
	if err != nil {
		return err
	}
	if err := client.RPush(ctx, messagesKey(id), data).Err(); err != nil {
		return err
	}
	if err := client.Expire(ctx, metaKey(id), ttl).Err(); err != nil {
		return err
	}
	return client.Expire(ctx, messagesKey(id), ttl).Err()
}

// SaveMessage is the touch-then-append composite used on every relay
// write, performed over a single connection.
func (s *Store) SaveMessage(ctx context.Context, id, role, content, model string) error {
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := touchMetadata(ctx, client, id, model); err != nil {
		return err
	}
	return appendMessage(ctx, client, s.ttl, id, role, content)
}

// ReadMessages returns the ordered log for id, or an empty slice when
// the conversation does not exist. Stored entries that fail to parse
// or lack role/content are skipped.
func (s *Store) ReadMessages(ctx context.Context, id string) ([]types.ChatMessage, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	exists, err := client.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return []types.ChatMessage{}, nil
	}

	raw, err := client.LRange(ctx, messagesKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]types.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg struct {
			Role    *string `json:"role"`
			Content *string `json:"content"`
		}
		if err := json.Unmarshal([]byte(item), &msg); err != nil || msg.Role == nil || msg.Content == nil {
			logging.ErrorLogger.Error("skipping malformed stored message",
				zap.String("conversation_id", id))
			continue
		}
		messages = append(messages, types.ChatMessage{Role: *msg.Role, Content: *msg.Content})
	}
	return messages, nil
}

// ReadMetadata returns the metadata hash and the remaining TTL in
// seconds (-1 means no expiry). ErrNotFound when the metadata key is
// absent.
func (s *Store) ReadMetadata(ctx context.Context, id string) (Metadata, int64, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return Metadata{}, 0, err
	}
	defer client.Close()

	exists, err := client.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return Metadata{}, 0, err
	}
	if exists == 0 {
		return Metadata{}, 0, ErrNotFound
	}

	fields, err := client.HGetAll(ctx, metaKey(id)).Result()
	if err != nil {
		return Metadata{}, 0, err
	}
	ttl, err := client.TTL(ctx, metaKey(id)).Result()
	if err != nil {
		return Metadata{}, 0, err
	}

	meta := Metadata{
		Model:       fields["model"],
		DisplayName: fields["display_name"],
	}
	meta.CreatedAt, _ = strconv.ParseFloat(fields["created_at"], 64)
	meta.UpdatedAt, _ = strconv.ParseFloat(fields["updated_at"], 64)

	// Redis replies -1 (no expiry) and -2 (no key) come back as the raw
	// negative Durations; converting those through Seconds would collapse
	// them to 0.
	if ttl < 0 {
		return meta, int64(ttl), nil
	}
	return meta, int64(ttl.Seconds()), nil
}

// MessageCount returns the length of the message log.
func (s *Store) MessageCount(ctx context.Context, id string) (int64, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer client.Close()
	return client.LLen(ctx, messagesKey(id)).Result()
}

// SetDisplayName renames the conversation and refreshes the TTL on
// both keys. ErrNotFound when the conversation does not exist.
func (s *Store) SetDisplayName(ctx context.Context, id, name string) error {
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	exists, err := client.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	if err := client.HSet(ctx, metaKey(id), map[string]any{
		"display_name": name,
		"updated_at":   nowSeconds(),
	}).Err(); err != nil {
		return err
	}
	if err := client.Expire(ctx, metaKey(id), s.ttl).Err(); err != nil {
		return err
	}
	return client.Expire(ctx, messagesKey(id), s.ttl).Err()
}

// Delete removes metadata and message log together. ErrNotFound when
// the metadata key was already absent; a missing message log alone is
// not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	exists, err := client.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return client.Del(ctx, metaKey(id), messagesKey(id)).Err()
}

// ListIDs enumerates all conversation ids from the metadata keys.
func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	keys, err := client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasSuffix(key, messagesSuffix) {
			continue
		}
		ids = append(ids, strings.TrimPrefix(key, keyPrefix))
	}
	return ids, nil
}

// Ping verifies connectivity with a round-trip probe key, the same
// check the health endpoint reports on.
func (s *Store) Ping(ctx context.Context) error {
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	probe := fmt.Sprintf("health_check_%d", time.Now().UnixNano())
	if err := client.Set(ctx, probe, "ok", 10*time.Second).Err(); err != nil {
		return err
	}
	return client.Get(ctx, probe).Err()
}
