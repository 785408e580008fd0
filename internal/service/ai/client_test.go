package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/riji/backend/internal/analysis/emotion"
	"github.com/zhouzirui/riji/backend/internal/config"
	"github.com/zhouzirui/riji/backend/internal/model/chat"
	"github.com/zhouzirui/riji/backend/internal/model/persona"
)

type fixedRandom int

func (f fixedRandom) IntN(int) int { return int(f) }

var fixedNow = time.Date(2024, 8, 24, 20, 30, 0, 0, time.UTC)

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		BaseURL:     baseURL,
		APIKey:      "sk-test",
		Model:       "test-model",
		MaxTokens:   1000,
		Temperature: 0.7,
	}
}

func newTestClient(baseURL string, opts ...Option) *Client {
	base := []Option{
		WithRandomSource(fixedRandom(2)),
		WithClock(func() time.Time { return fixedNow }),
	}
	return NewClient(testConfig(baseURL), persona.Seed()[0], append(base, opts...)...)
}

func completionHandler(t *testing.T, reply string, inspect func(map[string]any)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		if inspect != nil {
			inspect(body)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}
}

func TestSendSuccess(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "听起来很辛苦呢。具体是什么让你感到压力？", func(body map[string]any) {
		assert.Equal(t, "test-model", body["model"])
		assert.EqualValues(t, 1000, body["max_tokens"])
		assert.InDelta(t, 0.7, body["temperature"], 1e-9)
		stream, ok := body["stream"]
		assert.True(t, ok, "stream must be sent explicitly")
		assert.Equal(t, false, stream)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp := client.Send(context.Background(), "今天 压力 好大", nil)

	assert.Equal(t, "1724531400000", resp.ID)
	assert.Equal(t, "听起来很辛苦呢。具体是什么让你感到压力？", resp.Content)
	assert.Equal(t, emotion.LabelAnxious, resp.EmotionAnalysis.Emotion)
	assert.Equal(t, emotion.Negative, resp.EmotionAnalysis.Sentiment)
	assert.Equal(t, []string{"压力"}, resp.EmotionAnalysis.Keywords)
	assert.Equal(t, "听起来很辛苦呢。", resp.Summary)
	assert.Equal(t, emotion.Suggestions(emotion.Negative), resp.Suggestions)
	assert.Equal(t, fixedNow, resp.Timestamp)
}

func TestSendClassifiesUserMessageNotReply(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "真为你高兴！是什么样的活动这么有趣？", nil))
	defer server.Close()

	resp := newTestClient(server.URL).Send(context.Background(), "随便聊聊", nil)

	assert.Equal(t, emotion.LabelThinking, resp.EmotionAnalysis.Emotion)
	assert.Equal(t, "真为你高兴。", resp.Summary)
	assert.Len(t, resp.Suggestions, 2)
}

func TestSendMessageLayout(t *testing.T) {
	history := []chat.HistoryMessage{
		{Role: chat.SenderAssistant, Content: "你好！今天有什么特别的事想聊聊吗？"},
		{Role: chat.SenderUser, Content: "今天有点累"},
		{Role: chat.SenderAssistant, Content: "辛苦了 {真的}"},
	}

	tests := []struct {
		name          string
		preserveRoles bool
		wantRoles     []string
	}{
		{"history re-tagged as user", false, []string{"system", "user", "user", "user", "user"}},
		{"history roles preserved", true, []string{"system", "assistant", "user", "assistant", "user"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var messages []any
			server := httptest.NewServer(completionHandler(t, "好的", func(body map[string]any) {
				messages, _ = body["messages"].([]any)
			}))
			defer server.Close()

			cfg := testConfig(server.URL)
			cfg.PreserveHistoryRoles = tt.preserveRoles
			client := NewClient(cfg, persona.Seed()[0])
			client.Send(context.Background(), "想记录一下 {今天}", history)

			require.Len(t, messages, len(tt.wantRoles))
			for i, raw := range messages {
				msg := raw.(map[string]any)
				assert.Equal(t, tt.wantRoles[i], msg["role"], "message %d", i)
			}
			first := messages[0].(map[string]any)
			assert.Equal(t, persona.SystemPrompt, first["content"])
			third := messages[3].(map[string]any)
			assert.Equal(t, "辛苦了 {真的}", third["content"])
			last := messages[len(messages)-1].(map[string]any)
			assert.Equal(t, "想记录一下 {今天}", last["content"])
		})
	}
}

func TestSendFailuresNeverEscape(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
			},
			want: UnauthorizedReply,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "slow down", http.StatusTooManyRequests)
			},
			want: RateLimitedReply,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want: FallbackReplies[2],
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices": [`))
			},
			want: FallbackReplies[2],
		},
		{
			name: "missing choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices": []}`))
			},
			want: FallbackReplies[2],
		},
		{
			name: "missing message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices": [{"index": 0}]}`))
			},
			want: FallbackReplies[2],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			resp := newTestClient(server.URL).Send(context.Background(), "开心", nil)

			assert.Equal(t, tt.want, resp.Content)
			assert.Equal(t, emotion.Placeholder(), resp.EmotionAnalysis)
			assert.Empty(t, resp.Summary)
			assert.Nil(t, resp.Suggestions)
			assert.Equal(t, "1724531400000", resp.ID)
		})
	}
}

func TestSendTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	resp := newTestClient(url).Send(context.Background(), "你好", nil)

	assert.Equal(t, NetworkReply, resp.Content)
	assert.Equal(t, emotion.Placeholder(), resp.EmotionAnalysis)
}

func TestSendTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	resp := client.Send(context.Background(), "你好", nil)

	assert.Equal(t, NetworkReply, resp.Content)
	assert.Equal(t, emotion.Placeholder(), resp.EmotionAnalysis)
}

func TestFallbackSelectionUsesRandomSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	for i, want := range FallbackReplies {
		resp := newTestClient(server.URL, WithRandomSource(fixedRandom(i))).Send(context.Background(), "x", nil)
		assert.Equal(t, want, resp.Content)
	}

	out := newTestClient(server.URL, WithRandomSource(fixedRandom(99))).Send(context.Background(), "x", nil)
	assert.Equal(t, FallbackReplies[0], out.Content)
}

func TestClassifyFailure(t *testing.T) {
	assert.Equal(t, failureUnauthorized, classifyFailure(&APIError{StatusCode: 401}))
	assert.Equal(t, failureRateLimited, classifyFailure(&APIError{StatusCode: 429}))
	assert.Equal(t, failureUnknown, classifyFailure(&APIError{StatusCode: 503}))
	assert.Equal(t, failureUnknown, classifyFailure(ErrMalformedResponse))
}
