package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/zhouzirui/riji/backend/internal/auth"
	"github.com/zhouzirui/riji/backend/internal/middleware"
	"github.com/zhouzirui/riji/backend/internal/model/user"
	"github.com/zhouzirui/riji/backend/pkg/utils"
)

// Handler 登录与用户资料的HTTP处理器
type Handler struct {
	authSvc *auth.Service
}

// New 创建登录处理器
func New(authSvc *auth.Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// RegisterRoutes 注册登录相关路由；除 login 与 session 外都需要令牌
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Get("/session", h.handleCheckSession)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.authSvc))
			r.Get("/me", h.handleProfile)
			r.Post("/phone", h.handleBindPhone)
			r.Post("/logout", h.handleLogout)
		})
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Code     string        `json:"code"`
		UserInfo *user.Profile `json:"userInfo"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.authSvc.Login(r.Context(), payload.Code, payload.UserInfo)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCheckSession(w http.ResponseWriter, r *http.Request) {
	valid := false
	if token := middleware.BearerToken(r); token != "" {
		valid = h.authSvc.CheckSession(token)
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.authSvc.Profile(r.Context(), middleware.OpenID(r.Context()))
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, u)
}

func (h *Handler) handleBindPhone(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Code string `json:"code"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	phone, err := h.authSvc.BindPhone(r.Context(), middleware.OpenID(r.Context()), payload.Code)
	if err != nil {
		respondAuthError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, phone)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.authSvc.Logout(middleware.Token(r.Context())); err != nil {
		respondAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondAuthError(w http.ResponseWriter, err error) {
	var (
		verrs  validator.ValidationErrors
		wxErr  *auth.WeChatError
		status = http.StatusInternalServerError
	)
	switch {
	case errors.Is(err, auth.ErrMissingCode), errors.As(err, &verrs):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.As(err, &wxErr):
		status = http.StatusBadGateway
	}
	utils.RespondError(w, status, err.Error())
}
