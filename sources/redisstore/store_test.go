package redisstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = 12 * time.Hour

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return New(mr.Addr(), "", 0, testTTL), mr
}

func TestReadMissingConversation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	messages, err := store.ReadMessages(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, messages)

	_, _, err = store.ReadMetadata(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendPreservesOrder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateOrTouchMetadata(ctx, "conv", "m"))
	for i := 0; i < 5; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		require.NoError(t, store.AppendMessage(ctx, "conv", role, fmt.Sprintf("msg-%d", i)))
	}

	messages, err := store.ReadMessages(ctx, "conv")
	require.NoError(t, err)
	require.Len(t, messages, 5)
	for i, msg := range messages {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg.Content)
	}
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "assistant", messages[1].Role)

	count, err := store.MessageCount(ctx, "conv")
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
}

func TestTouchNeverOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateOrTouchMetadata(ctx, "conv", "model-one"))

	_, ttl, err := store.ReadMetadata(ctx, "conv")
	require.NoError(t, err)
	assert.EqualValues(t, -1, ttl) // no expiry until a TTL-refreshing write

	require.NoError(t, store.SetDisplayName(ctx, "conv", "Foo"))

	before, _, err := store.ReadMetadata(ctx, "conv")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, store.CreateOrTouchMetadata(ctx, "conv", "model-two"))

	after, _, err := store.ReadMetadata(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, "model-one", after.Model)
	assert.Equal(t, "Foo", after.DisplayName)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Greater(t, after.UpdatedAt, before.UpdatedAt)
}

func TestReadMetadataNoExpirySentinel(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// Metadata alone carries no expiry until a TTL-refreshing write.
	require.NoError(t, store.CreateOrTouchMetadata(ctx, "conv", "m"))

	_, ttl, err := store.ReadMetadata(ctx, "conv")
	require.NoError(t, err)
	assert.EqualValues(t, -1, ttl)

	// A message write sets the sliding window and the value turns positive.
	require.NoError(t, store.AppendMessage(ctx, "conv", "user", "hi"))
	_, ttl, err = store.ReadMetadata(ctx, "conv")
	require.NoError(t, err)
	assert.EqualValues(t, testTTL.Seconds(), ttl)
}

func TestSetDisplayNameNotFound(t *testing.T) {
	store, mr := newTestStore(t)

	err := store.SetDisplayName(context.Background(), "nope", "Foo")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists("conversation:nope"))
}

func TestDelete(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Delete(ctx, "nope"), ErrNotFound)

	require.NoError(t, store.SaveMessage(ctx, "conv", "user", "hi", "m"))
	require.NoError(t, store.Delete(ctx, "conv"))

	assert.False(t, mr.Exists("conversation:conv"))
	assert.False(t, mr.Exists("conversation:conv:messages"))

	_, _, err := store.ReadMetadata(ctx, "conv")
	assert.ErrorIs(t, err, ErrNotFound)
	messages, err := store.ReadMessages(ctx, "conv")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestListIDs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMessage(ctx, "a", "user", "hi", "m"))
	require.NoError(t, store.SaveMessage(ctx, "b", "user", "hi", "m"))

	ids, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestSlidingTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMessage(ctx, "conv", "user", "hi", "m"))
	assert.Equal(t, testTTL, mr.TTL("conversation:conv"))
	assert.Equal(t, testTTL, mr.TTL("conversation:conv:messages"))

	mr.FastForward(time.Hour)
	_, ttl, err := store.ReadMetadata(ctx, "conv")
	require.NoError(t, err)
	assert.Less(t, ttl, int64(testTTL.Seconds()))

	// Any write resets both keys to the full window.
	require.NoError(t, store.SaveMessage(ctx, "conv", "assistant", "hello", "m"))
	assert.Equal(t, testTTL, mr.TTL("conversation:conv"))
	assert.Equal(t, testTTL, mr.TTL("conversation:conv:messages"))

	require.NoError(t, store.SetDisplayName(ctx, "conv", "Foo"))
	assert.Equal(t, testTTL, mr.TTL("conversation:conv"))
	assert.Equal(t, testTTL, mr.TTL("conversation:conv:messages"))
}

func TestMalformedStoredEntriesSkipped(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMessage(ctx, "conv", "user", "first", "m"))

	raw := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer raw.Close()
	require.NoError(t, raw.RPush(ctx, "conversation:conv:messages", "{not json").Err())
	require.NoError(t, raw.RPush(ctx, "conversation:conv:messages", `{"content":"missing role"}`).Err())

	require.NoError(t, store.AppendMessage(ctx, "conv", "assistant", "second"))

	messages, err := store.ReadMessages(ctx, "conv")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
}

func TestStoreUnavailable(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	mr.Close()
	assert.Error(t, store.Ping(ctx))
	assert.Error(t, store.SaveMessage(ctx, "conv", "user", "hi", "m"))
	_, err := store.ReadMessages(ctx, "conv")
	assert.Error(t, err)
}
