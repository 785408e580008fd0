package chat_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modelchat "github.com/zhouzirui/riji/backend/internal/model/chat"
	chat "github.com/zhouzirui/riji/backend/internal/service/chat"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*chat.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return chat.NewRedisStore(client, ttl), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t, time.Minute)
	svc := chat.NewService(store, &fakeCompleter{reply: "收到"})
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "redis-user")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, session.ID, "开心", modelchat.TypeText)
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "redis-user", got.UserID)

	transcript, err := svc.LoadTranscript(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, "开心", transcript[0].Content)
	assert.Equal(t, "收到", transcript[1].Content)

	_, err = store.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
	assert.ErrorIs(t, store.Append(ctx, "missing", modelchat.Message{Content: "x"}), chat.ErrSessionNotFound)
}

func TestRedisStoreCapsTranscript(t *testing.T) {
	store, _ := newRedisStore(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, modelchat.Session{ID: "s1"}))

	messages := make([]modelchat.Message, 0, 205)
	for i := 0; i < 205; i++ {
		messages = append(messages, modelchat.Message{SessionID: "s1", Content: fmt.Sprintf("message-%d", i)})
	}
	require.NoError(t, store.Append(ctx, "s1", messages...))

	transcript, err := store.Transcript(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, transcript, 200)
	assert.Equal(t, "message-5", transcript[0].Content)
	assert.Equal(t, "message-204", transcript[199].Content)
}

func TestRedisStoreTouchRefreshesTTL(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, modelchat.Session{ID: "s1"}))
	require.NoError(t, store.Append(ctx, "s1", modelchat.Message{SessionID: "s1", Content: "你好"}))

	mr.FastForward(40 * time.Second)
	at := time.Date(2024, 8, 24, 20, 30, 0, 0, time.UTC)
	require.NoError(t, store.Touch(ctx, "s1", at))
	assert.Equal(t, time.Minute, mr.TTL("riji:session:s1"))
	assert.Equal(t, time.Minute, mr.TTL("riji:transcript:s1"))

	session, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, session.LastActiveAt.Equal(at))

	pruned, err := store.PruneIdle(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, pruned)

	mr.FastForward(2 * time.Minute)
	_, err = store.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
	assert.False(t, mr.Exists("riji:transcript:s1"))
}
