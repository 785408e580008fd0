package chat

import (
	"time"

	"github.com/zhouzirui/riji/backend/internal/analysis/emotion"
)

// Response is the outcome of one chat turn, successful or synthesized locally.
type Response struct {
	ID              string           `json:"id"`
	Content         string           `json:"content"`
	EmotionAnalysis emotion.Analysis `json:"emotionAnalysis"`
	Summary         string           `json:"summary,omitempty"`
	Suggestions     []string         `json:"suggestions,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}
