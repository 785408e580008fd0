package diary

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/riji/backend/internal/middleware"
	"github.com/zhouzirui/riji/backend/internal/model/diary"
	diaryService "github.com/zhouzirui/riji/backend/internal/service/diary"
	"github.com/zhouzirui/riji/backend/internal/store/sqlite"
	"github.com/zhouzirui/riji/backend/internal/timeline"
)

var fixedNow = time.Date(2024, 8, 24, 12, 0, 0, 0, time.UTC)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "riji.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := diaryService.NewService(sqlite.NewDiaryRepository(db),
		diaryService.WithNotFound(sqlite.ErrNotFound),
		diaryService.WithClock(func() time.Time { return fixedNow }),
		diaryService.WithLocation(time.UTC),
	)
	h := New(svc, time.UTC)
	h.now = func() time.Time { return fixedNow }

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := r.Header.Get("X-Test-User")
			next.ServeHTTP(w, r.WithContext(middleware.WithOpenID(r.Context(), user)))
		})
	})
	h.RegisterRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, target, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("X-Test-User", user)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestDiaryCRUD(t *testing.T) {
	r := setupRouter(t)

	resp := do(t, r, http.MethodPost, "/diaries", "u1", map[string]any{"content": "今天 很 开心", "tags": []string{"周末"}})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created diary.Entry
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "开心", created.Emotion)

	resp = do(t, r, http.MethodGet, "/diaries/"+created.ID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code, "other users cannot read")

	resp = do(t, r, http.MethodPut, "/diaries/"+created.ID, "u1", map[string]any{"emotion": "平静"})
	require.Equal(t, http.StatusOK, resp.Code)
	var updated diary.Entry
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Equal(t, "平静", updated.Emotion)
	assert.Equal(t, created.Content, updated.Content)

	resp = do(t, r, http.MethodGet, "/diaries?emotion=平静", "u1", nil)
	var list []diary.Entry
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	resp = do(t, r, http.MethodDelete, "/diaries/"+created.ID, "u1", nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = do(t, r, http.MethodDelete, "/diaries/"+created.ID, "u1", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreateValidationError(t *testing.T) {
	r := setupRouter(t)
	resp := do(t, r, http.MethodPost, "/diaries", "u1", map[string]any{"content": ""})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListByDateRange(t *testing.T) {
	r := setupRouter(t)
	for _, day := range []string{"2024-08-20T10:00:00Z", "2024-08-22T23:30:00Z", "2024-08-23T00:30:00Z"} {
		resp := do(t, r, http.MethodPost, "/diaries", "u1", map[string]any{"content": "日常", "createdAt": day})
		require.Equal(t, http.StatusCreated, resp.Code)
	}

	resp := do(t, r, http.MethodGet, "/diaries?from=2024-08-21&to=2024-08-22", "u1", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list []diary.Entry
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	resp = do(t, r, http.MethodGet, "/diaries?from=2024-08-23&to=2024-08-21", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	resp = do(t, r, http.MethodGet, "/diaries?from=yesterday", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestStatsAndTimeline(t *testing.T) {
	r := setupRouter(t)
	posts := []map[string]any{
		{"content": "开心", "createdAt": "2024-08-24T08:00:00Z", "events": []string{"散步"}},
		{"content": "焦虑", "createdAt": "2024-08-19T08:00:00Z", "reflections": []string{"早点睡"}},
		{"content": "开心", "createdAt": "2024-08-10T08:00:00Z"},
	}
	for _, p := range posts {
		require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/diaries", "u1", p).Code)
	}

	resp := do(t, r, http.MethodGet, "/stats/emotions", "u1", nil)
	var counts map[string]int
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &counts))
	assert.Equal(t, map[string]int{"开心": 2, "焦虑": 1}, counts)

	resp = do(t, r, http.MethodGet, "/stats/monthly", "u1", nil)
	var monthly map[string]map[string]int
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &monthly))
	assert.Equal(t, 1, monthly["2024-08-24"]["开心"])
	assert.Len(t, monthly, 3)

	resp = do(t, r, http.MethodGet, "/timeline?view=week", "u1", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var page timeline.Page
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Equal(t, "第34周", page.Label)
	assert.Len(t, page.Entries, 2)
	assert.Equal(t, "本周记录了2条日记，主要情绪：开心、焦虑。共记录1个事件和1条反思。主导情绪是开心。", page.Summary)

	resp = do(t, r, http.MethodGet, "/timeline?view=week&date=2024-08-24&dir=prev", "u1", nil)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Equal(t, "第33周", page.Label)
	assert.Equal(t, "本周还没有记录，去倾诉页面开始记录吧！", page.Summary)

	resp = do(t, r, http.MethodGet, "/timeline?view=decade", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
