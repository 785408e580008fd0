package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zhouzirui/riji/backend/internal/analysis/emotion"
	modelchat "github.com/zhouzirui/riji/backend/internal/model/chat"
	chat "github.com/zhouzirui/riji/backend/internal/service/chat"
)

type fakeCompleter struct {
	mu       sync.Mutex
	reply    string
	messages []string
	history  [][]modelchat.HistoryMessage
}

func (f *fakeCompleter) Send(_ context.Context, message string, history []modelchat.HistoryMessage) modelchat.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	f.history = append(f.history, history)
	analysis := emotion.Classify(message)
	return modelchat.Response{
		ID:              "1",
		Content:         f.reply,
		EmotionAnalysis: analysis,
		Summary:         emotion.Summarize(f.reply),
		Suggestions:     emotion.Suggestions(analysis.Sentiment),
	}
}

func TestServiceGetSession(t *testing.T) {
	svc := chat.NewService(chat.NewMemoryStore(), &fakeCompleter{})
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
	if got.UserID != "user-1" {
		t.Fatalf("unexpected user ID: got %s", got.UserID)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := chat.NewService(chat.NewMemoryStore(), &fakeCompleter{})

	if _, err := svc.GetSession(context.Background(), "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSendMessageStoresBothTurns(t *testing.T) {
	completer := &fakeCompleter{reply: "听起来很辛苦呢。想聊聊吗？"}
	svc := chat.NewService(chat.NewMemoryStore(), completer)
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, "")
	resp, err := svc.SendMessage(ctx, session.ID, "  今天 压力 好大  ", "")
	if err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	if resp.Content != completer.reply {
		t.Fatalf("unexpected reply: %s", resp.Content)
	}
	if len(completer.history[0]) != 0 {
		t.Fatalf("first turn must carry no history, got %d", len(completer.history[0]))
	}
	if completer.messages[0] != "今天 压力 好大" {
		t.Fatalf("message not trimmed: %q", completer.messages[0])
	}

	transcript, err := svc.LoadTranscript(ctx, session.ID)
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(transcript) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(transcript))
	}
	user, assistant := transcript[0], transcript[1]
	if user.Sender != modelchat.SenderUser || user.Emotion != emotion.LabelAnxious || user.Type != modelchat.TypeText {
		t.Fatalf("unexpected user message: %+v", user)
	}
	if assistant.Sender != modelchat.SenderAssistant || assistant.Analysis == nil {
		t.Fatalf("unexpected assistant message: %+v", assistant)
	}
	if assistant.Summary != "听起来很辛苦呢。" {
		t.Fatalf("unexpected summary: %s", assistant.Summary)
	}
}

func TestSendMessageForwardsRecentHistory(t *testing.T) {
	completer := &fakeCompleter{reply: "嗯"}
	svc := chat.NewService(chat.NewMemoryStore(), completer, chat.WithHistoryLimit(3))
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, "")
	for _, text := range []string{"一", "二", "三"} {
		if _, err := svc.SendMessage(ctx, session.ID, text, modelchat.TypeVoice); err != nil {
			t.Fatalf("SendMessage err: %v", err)
		}
	}

	last := completer.history[2]
	if len(last) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(last))
	}
	want := []modelchat.HistoryMessage{
		{Role: modelchat.SenderAssistant, Content: "嗯"},
		{Role: modelchat.SenderUser, Content: "二"},
		{Role: modelchat.SenderAssistant, Content: "嗯"},
	}
	for i := range want {
		if last[i] != want[i] {
			t.Fatalf("history[%d] = %+v, want %+v", i, last[i], want[i])
		}
	}
}

func TestSendMessageValidation(t *testing.T) {
	svc := chat.NewService(chat.NewMemoryStore(), &fakeCompleter{})
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	if _, err := svc.SendMessage(ctx, session.ID, "   ", ""); !errors.Is(err, chat.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, session.ID, "hi", "image"); !errors.Is(err, chat.ErrInvalidMessageType) {
		t.Fatalf("expected ErrInvalidMessageType, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, "missing", "hi", ""); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	noAI := chat.NewService(chat.NewMemoryStore(), nil)
	s2, _ := noAI.CreateSession(ctx, "")
	if _, err := noAI.SendMessage(ctx, s2.ID, "hi", ""); !errors.Is(err, chat.ErrCompleterUnavailable) {
		t.Fatalf("expected ErrCompleterUnavailable, got %v", err)
	}
}

func TestSaveMessage(t *testing.T) {
	svc := chat.NewService(chat.NewMemoryStore(), nil)
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	if err := svc.SaveMessage(ctx, modelchat.Message{SessionID: session.ID, Sender: modelchat.SenderUser, Content: "记一笔"}); err != nil {
		t.Fatalf("SaveMessage err: %v", err)
	}
	if err := svc.SaveMessage(ctx, modelchat.Message{Content: "orphan"}); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	transcript, _ := svc.LoadTranscript(ctx, session.ID)
	if len(transcript) != 1 || transcript[0].ID == "" || transcript[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected transcript: %+v", transcript)
	}
}

func TestPruneIdle(t *testing.T) {
	now := time.Date(2024, 8, 24, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := chat.NewMemoryStore()
	svc := chat.NewService(store, &fakeCompleter{reply: "好"}, chat.WithClock(clock))
	ctx := context.Background()

	stale, _ := svc.CreateSession(ctx, "")
	now = now.Add(2 * time.Hour)
	fresh, _ := svc.CreateSession(ctx, "")
	if _, err := svc.SendMessage(ctx, fresh.ID, "你好", ""); err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}

	pruned, err := svc.PruneIdle(ctx, time.Hour)
	if err != nil {
		t.Fatalf("PruneIdle err: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned session, got %d", pruned)
	}
	if _, err := svc.GetSession(ctx, stale.ID); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("stale session should be gone, got %v", err)
	}
	if _, err := svc.GetSession(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh session should survive: %v", err)
	}
}

func TestSendKeepsClientMessageIdentity(t *testing.T) {
	now := time.Date(2024, 8, 24, 20, 30, 0, 0, time.UTC)
	sentAt := now.Add(-time.Minute)
	svc := chat.NewService(chat.NewMemoryStore(), &fakeCompleter{reply: "好的"}, chat.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	if _, err := svc.Send(ctx, session.ID, modelchat.UserMessage{ID: "client-1", Content: "开心", Timestamp: sentAt}); err != nil {
		t.Fatalf("Send err: %v", err)
	}
	if _, err := svc.Send(ctx, session.ID, modelchat.UserMessage{Content: "  "}); !errors.Is(err, chat.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}

	transcript, _ := svc.LoadTranscript(ctx, session.ID)
	user := transcript[0]
	if user.ID != "client-1" || !user.CreatedAt.Equal(sentAt) || user.Type != modelchat.TypeText {
		t.Fatalf("unexpected user message: %+v", user)
	}
	if !transcript[1].CreatedAt.Equal(now) {
		t.Fatalf("assistant turn should use the service clock, got %v", transcript[1].CreatedAt)
	}
}
