package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/riji/backend/internal/middleware"
	"github.com/zhouzirui/riji/backend/internal/model/chat"
	chatService "github.com/zhouzirui/riji/backend/internal/service/chat"
	"github.com/zhouzirui/riji/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}/messages", h.handleListMessages)
	r.Post("/session/{sessionID}/messages", h.handleSendMessage)
}

// handleCreateSession 创建会话，已登录时归属当前用户
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context(), middleware.OpenID(r.Context()))
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleListMessages 返回会话的全部消息
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

// handleSendMessage 发送一条消息并返回 AI 回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var payload chat.UserMessage
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.chatSvc.Send(r.Context(), sessionID, payload)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

// authorize 校验会话存在，且属于当前用户（匿名会话任何人可访问）。
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return "", false
	}
	if session.UserID != "" && session.UserID != middleware.OpenID(r.Context()) {
		utils.RespondError(w, http.StatusNotFound, chatService.ErrSessionNotFound.Error())
		return "", false
	}
	return sessionID, true
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrEmptyMessage), errors.Is(err, chatService.ErrInvalidMessageType):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrCompleterUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
