package chat

import (
	"time"

	"github.com/zhouzirui/riji/backend/internal/analysis/emotion"
)

// 消息发送方。
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message persists individual turns of a conversation transcript.
type Message struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"sessionId"`
	Sender      string            `json:"sender"`
	Content     string            `json:"content"`
	Type        MessageType       `json:"type,omitempty"`
	Emotion     string            `json:"emotion,omitempty"`
	Analysis    *emotion.Analysis `json:"emotionAnalysis,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// MessageType 区分文字输入与语音输入。
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeVoice MessageType = "voice"
)

// UserMessage 是一条尚未附加情绪分析的用户输入。
type UserMessage struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Emotion   string      `json:"emotion,omitempty"`
}

// HistoryMessage is one prior turn forwarded to the completion endpoint.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryLimit caps how many prior turns are forwarded per request.
const HistoryLimit = 10

// RecentHistory maps the tail of a transcript to at most limit history entries.
func RecentHistory(messages []Message, limit int) []HistoryMessage {
	if limit <= 0 || len(messages) == 0 {
		return nil
	}

	start := 0
	if len(messages) > limit {
		start = len(messages) - limit
	}

	history := make([]HistoryMessage, 0, len(messages)-start)
	for _, msg := range messages[start:] {
		role := SenderUser
		if msg.Sender == SenderAssistant {
			role = SenderAssistant
		}
		history = append(history, HistoryMessage{Role: role, Content: msg.Content})
	}
	return history
}
