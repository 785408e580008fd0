package diary

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zhouzirui/riji/backend/internal/middleware"
	"github.com/zhouzirui/riji/backend/internal/timeline"
	"github.com/zhouzirui/riji/backend/pkg/utils"
)

// handleTimeline 渲染 ?view=&date=&dir= 指定的时间段
func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	view, err := timeline.ParseView(query.Get("view"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	anchor := h.now().In(h.loc)
	if raw := strings.TrimSpace(query.Get("date")); raw != "" {
		anchor, err = time.ParseInLocation(time.DateOnly, raw, h.loc)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	dir, err := parseDirection(query.Get("dir"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "dir must be prev, next or an integer")
		return
	}
	anchor = timeline.Navigate(view, anchor, dir)

	start, end := timeline.Range(view, anchor)
	entries, err := h.diarySvc.ListByDateRange(r.Context(), middleware.OpenID(r.Context()), start, end.Add(-time.Millisecond))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, timeline.Build(entries, view, anchor))
}

func parseDirection(raw string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return 0, nil
	case "prev":
		return -1, nil
	case "next":
		return 1, nil
	default:
		return strconv.Atoi(raw)
	}
}
