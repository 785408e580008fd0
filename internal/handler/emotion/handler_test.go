package emotion

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	r := chi.NewRouter()
	New().RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/emotion/analyze", strings.NewReader(`{"text":"今天 压力 好大"}`)))
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Emotion     string   `json:"emotion"`
		Confidence  float64  `json:"confidence"`
		Keywords    []string `json:"keywords"`
		Sentiment   string   `json:"sentiment"`
		Suggestions []string `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "焦虑", body.Emotion)
	assert.InDelta(t, 0.8, body.Confidence, 1e-9)
	assert.Equal(t, []string{"压力"}, body.Keywords)
	assert.Equal(t, "negative", body.Sentiment)
	assert.Len(t, body.Suggestions, 3)
}

func TestAnalyzeRejectsEmptyText(t *testing.T) {
	r := chi.NewRouter()
	New().RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/emotion/analyze", strings.NewReader(`{"text":"  "}`)))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
