package emotion

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/riji/backend/internal/analysis/emotion"
	"github.com/zhouzirui/riji/backend/pkg/utils"
)

// Handler 提供离线情绪分析接口
type Handler struct{}

// New 创建情绪分析处理器
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes 注册情绪分析路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/emotion/analyze", h.handleAnalyze)
}

type analyzeResponse struct {
	emotion.Analysis
	Suggestions []string `json:"suggestions"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	analysis := emotion.Classify(payload.Text)
	utils.RespondJSON(w, http.StatusOK, analyzeResponse{
		Analysis:    analysis,
		Suggestions: emotion.Suggestions(analysis.Sentiment),
	})
}
