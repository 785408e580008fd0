package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/riji/backend/internal/auth"
	authHandler "github.com/zhouzirui/riji/backend/internal/handler/auth"
	"github.com/zhouzirui/riji/backend/internal/handler/chat"
	diaryHandler "github.com/zhouzirui/riji/backend/internal/handler/diary"
	emotionHandler "github.com/zhouzirui/riji/backend/internal/handler/emotion"
	"github.com/zhouzirui/riji/backend/internal/handler/persona"
	realtimeHandler "github.com/zhouzirui/riji/backend/internal/handler/realtime"
	"github.com/zhouzirui/riji/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/riji/backend/internal/middleware"
	personaModel "github.com/zhouzirui/riji/backend/internal/model/persona"
	"github.com/zhouzirui/riji/backend/internal/realtime"
	chatService "github.com/zhouzirui/riji/backend/internal/service/chat"
	diaryService "github.com/zhouzirui/riji/backend/internal/service/diary"
	"github.com/zhouzirui/riji/backend/pkg/utils"
)

// Dependencies 是路由需要的全部服务。
type Dependencies struct {
	Personas personaModel.Store
	Chat     *chatService.Service
	Diaries  *diaryService.Service
	Auth     *auth.Service
	Hub      *realtime.Hub
	Location *time.Location
	Logger   *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.AccessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		persona.New(deps.Personas).RegisterRoutes(api)
		emotionHandler.New().RegisterRoutes(api)
		authHandler.New(deps.Auth).RegisterRoutes(api)

		// 对话允许匿名，登录后会话归属当前用户
		api.Route("/chat", func(c chi.Router) {
			c.Use(middlewarePkg.OptionalAuth(deps.Auth))
			chat.New(deps.Chat).RegisterRoutes(c)
			stream.New(deps.Chat, deps.Personas, logger).RegisterRoutes(c)
		})

		api.Group(func(private chi.Router) {
			private.Use(middlewarePkg.RequireAuth(deps.Auth))
			diaryHandler.New(deps.Diaries, deps.Location).RegisterRoutes(private)
			realtimeHandler.New(deps.Hub, logger).RegisterRoutes(private)
		})
	})

	return r
}
