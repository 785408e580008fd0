package diary

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/zhouzirui/riji/backend/internal/middleware"
	"github.com/zhouzirui/riji/backend/internal/model/diary"
	diaryService "github.com/zhouzirui/riji/backend/internal/service/diary"
	"github.com/zhouzirui/riji/backend/pkg/utils"
)

// Handler 日记、统计与时间轴的HTTP处理器，所有路由都需要登录
type Handler struct {
	diarySvc *diaryService.Service
	loc      *time.Location
	now      func() time.Time
}

// New 创建日记处理器；loc 用于解析日期参数
func New(diarySvc *diaryService.Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{diarySvc: diarySvc, loc: loc, now: time.Now}
}

// RegisterRoutes 注册日记相关路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/diaries", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
	r.Get("/stats/emotions", h.handleEmotionStats)
	r.Get("/stats/monthly", h.handleMonthlyStats)
	r.Get("/timeline", h.handleTimeline)
}

// handleList 支持 ?emotion= 与 ?from=&to= 两种过滤
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID := middleware.OpenID(r.Context())
	query := r.URL.Query()

	var (
		entries []diary.Entry
		err     error
	)
	switch {
	case query.Get("emotion") != "":
		entries, err = h.diarySvc.ListByEmotion(r.Context(), userID, query.Get("emotion"))
	case query.Get("from") != "" || query.Get("to") != "":
		start, parseErr := parseBound(query.Get("from"), h.loc, false)
		if parseErr != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid from: "+parseErr.Error())
			return
		}
		end, parseErr := parseBound(query.Get("to"), h.loc, true)
		if parseErr != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid to: "+parseErr.Error())
			return
		}
		entries, err = h.diarySvc.ListByDateRange(r.Context(), userID, start, end)
	default:
		entries, err = h.diarySvc.List(r.Context(), userID)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in diary.CreateInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.diarySvc.Create(r.Context(), middleware.OpenID(r.Context()), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.diarySvc.Get(r.Context(), middleware.OpenID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in diary.UpdateInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.diarySvc.Update(r.Context(), middleware.OpenID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.diarySvc.Delete(r.Context(), middleware.OpenID(r.Context()), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEmotionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.diarySvc.EmotionStats(r.Context(), middleware.OpenID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.diarySvc.MonthlyStats(r.Context(), middleware.OpenID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, stats)
}

// parseBound 接受 RFC3339 或 YYYY-MM-DD；日期形式的上界取当天最后一刻。
func parseBound(raw string, loc *time.Location, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if upper {
			return time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), nil
		}
		return time.Unix(0, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, errors.New("expected RFC3339 or YYYY-MM-DD")
	}
	if upper {
		return day.AddDate(0, 0, 1).Add(-time.Millisecond), nil
	}
	return day, nil
}

func respondServiceError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, diaryService.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, diaryService.ErrInvalidRange), errors.As(err, &verrs):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
