package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/riji/backend/internal/middleware"
	"github.com/zhouzirui/riji/backend/internal/model/chat"
	"github.com/zhouzirui/riji/backend/internal/model/persona"
	chatService "github.com/zhouzirui/riji/backend/internal/service/chat"
	"github.com/zhouzirui/riji/backend/pkg/utils"
)

// Handler 通过 Server-Sent Events 推送一轮对话的结果
type Handler struct {
	chatSvc  *chatService.Service
	personas persona.Store
	logger   *zap.Logger
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, personas persona.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc:  chatSvc,
		personas: personas,
		logger:   logger.With(zap.String("component", "stream")),
	}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string   `json:"event"`
	Content   string   `json:"content,omitempty"`
	SessionID string   `json:"sessionId,omitempty"`
	Data      any      `json:"data,omitempty"`
	Finished  bool     `json:"finished,omitempty"`
	Error     string   `json:"error,omitempty"`
	Items     []string `json:"items,omitempty"`
}

// RegisterRoutes 注册流式对话路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/{sessionID}/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	message := strings.TrimSpace(r.URL.Query().Get("message"))
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil || (session.UserID != "" && session.UserID != middleware.OpenID(r.Context())) {
		utils.RespondError(w, http.StatusNotFound, chatService.ErrSessionNotFound.Error())
		return
	}

	msgType := chat.MessageType(r.URL.Query().Get("type"))
	if err := h.HandleStreamRequest(r.Context(), w, sessionID, message, msgType); err != nil {
		h.logger.Warn("stream request failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// HandleStreamRequest 依次推送 start、message、emotion、summary、suggestions、end 事件
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string, msgType chat.MessageType) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return errors.New("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	companion := h.personas.Default()
	if err := h.sendSSE(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
		Content:   fmt.Sprintf("%s的回复:", companion.Name),
	}); err != nil {
		return err
	}

	response, err := h.chatSvc.SendMessage(ctx, sessionID, userMessage, msgType)
	if err != nil {
		_ = h.sendSSE(w, flusher, StreamResponse{Event: "error", SessionID: sessionID, Error: err.Error()})
		return err
	}

	events := []StreamResponse{
		{Event: "message", SessionID: sessionID, Content: response.Content},
		{Event: "emotion", SessionID: sessionID, Data: response.EmotionAnalysis},
	}
	if response.Summary != "" {
		events = append(events, StreamResponse{Event: "summary", SessionID: sessionID, Content: response.Summary})
	}
	if len(response.Suggestions) > 0 {
		events = append(events, StreamResponse{Event: "suggestions", SessionID: sessionID, Items: response.Suggestions})
	}
	events = append(events, StreamResponse{Event: "end", SessionID: sessionID, Finished: true})

	for _, event := range events {
		if err := h.sendSSE(w, flusher, event); err != nil {
			return err
		}
	}

	h.logger.Debug("stream completed", zap.String("session_id", sessionID))
	return nil
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) error {
	return utils.SendSSEChunk(w, flusher, response)
}
