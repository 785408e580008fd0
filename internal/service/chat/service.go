package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/riji/backend/internal/analysis/emotion"
	"github.com/zhouzirui/riji/backend/internal/model/chat"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrEmptyMessage         = errors.New("message content is required")
	ErrInvalidMessageType   = errors.New("message type must be text or voice")
	ErrCompleterUnavailable = errors.New("ai completion unavailable")
)

// Completer produces the assistant reply for one turn. It never fails; failures
// come back as locally synthesized responses.
type Completer interface {
	Send(ctx context.Context, message string, history []chat.HistoryMessage) chat.Response
}

// Service 负责会话管理与单轮对话编排。
type Service struct {
	store        TranscriptStore
	completer    Completer
	historyLimit int
	now          func() time.Time
	logger       *zap.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithHistoryLimit overrides how many prior turns are forwarded.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService wires a transcript store and an optional completer.
func NewService(store TranscriptStore, completer Completer, opts ...Option) *Service {
	s := &Service{
		store:        store,
		completer:    completer,
		historyLimit: chat.HistoryLimit,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "chat"))
	return s
}

// CreateSession provisions a session owned by userID.
func (s *Service) CreateSession(ctx context.Context, userID string) (chat.Session, error) {
	now := s.now()
	session := chat.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return chat.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// SaveMessage appends a message to the session history.
func (s *Service) SaveMessage(ctx context.Context, message chat.Message) error {
	if message.SessionID == "" {
		return ErrSessionNotFound
	}
	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now()
	}
	return s.store.Append(ctx, message.SessionID, message)
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return s.store.Transcript(ctx, sessionID)
}

// SendMessage 处理一轮对话：识别用户情绪、携带最近的历史调用补全接口，并把两条消息写入会话。
// 补全失败不会作为错误返回，只有会话或输入问题才会。
func (s *Service) SendMessage(ctx context.Context, sessionID, content string, msgType chat.MessageType) (chat.Response, error) {
	return s.Send(ctx, sessionID, chat.UserMessage{Content: content, Type: msgType})
}

// Send is SendMessage for a client-built UserMessage. A client-supplied id and
// timestamp are kept on the stored user turn.
func (s *Service) Send(ctx context.Context, sessionID string, msg chat.UserMessage) (chat.Response, error) {
	content := strings.TrimSpace(msg.Content)
	msgType := msg.Type
	if content == "" {
		return chat.Response{}, ErrEmptyMessage
	}
	if msgType == "" {
		msgType = chat.TypeText
	}
	if msgType != chat.TypeText && msgType != chat.TypeVoice {
		return chat.Response{}, ErrInvalidMessageType
	}
	if s.completer == nil {
		return chat.Response{}, ErrCompleterUnavailable
	}

	transcript, err := s.store.Transcript(ctx, sessionID)
	if err != nil {
		return chat.Response{}, err
	}
	history := chat.RecentHistory(transcript, s.historyLimit)

	analysis := emotion.Classify(content)
	userMsg := chat.Message{
		ID:        msg.ID,
		SessionID: sessionID,
		Sender:    chat.SenderUser,
		Content:   content,
		Type:      msgType,
		Emotion:   analysis.Emotion,
		CreatedAt: msg.Timestamp,
	}
	if userMsg.ID == "" {
		userMsg.ID = uuid.NewString()
	}
	if userMsg.CreatedAt.IsZero() {
		userMsg.CreatedAt = s.now()
	}
	if err := s.store.Append(ctx, sessionID, userMsg); err != nil {
		return chat.Response{}, fmt.Errorf("failed to save user message: %w", err)
	}

	resp := s.completer.Send(ctx, content, history)

	reply := resp.EmotionAnalysis
	assistantMsg := chat.Message{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Sender:      chat.SenderAssistant,
		Content:     resp.Content,
		Type:        chat.TypeText,
		Analysis:    &reply,
		Summary:     resp.Summary,
		Suggestions: resp.Suggestions,
		CreatedAt:   s.now(),
	}
	if err := s.store.Append(ctx, sessionID, assistantMsg); err != nil {
		s.logger.Error("failed to save assistant message", zap.String("session_id", sessionID), zap.Error(err))
	}
	if err := s.store.Touch(ctx, sessionID, s.now()); err != nil {
		s.logger.Warn("failed to touch session", zap.String("session_id", sessionID), zap.Error(err))
	}

	s.logger.Info("chat turn completed",
		zap.String("session_id", sessionID),
		zap.String("emotion", analysis.Emotion),
		zap.Int("history", len(history)),
	)
	return resp, nil
}

// PruneIdle removes sessions idle for longer than ttl.
func (s *Service) PruneIdle(ctx context.Context, ttl time.Duration) (int, error) {
	pruned, err := s.store.PruneIdle(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	if pruned > 0 {
		s.logger.Info("pruned idle sessions", zap.Int("count", pruned))
	}
	return pruned, nil
}
