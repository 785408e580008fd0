package diary

import (
	"time"

	"github.com/zhouzirui/riji/backend/internal/analysis/emotion"
)

// Entry 是一条日记记录。
type Entry struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Content     string            `json:"content"`
	Emotion     string            `json:"emotion"`
	Sentiment   emotion.Sentiment `json:"sentiment"`
	Summary     string            `json:"summary,omitempty"`
	Tags        []string          `json:"tags"`
	Events      []string          `json:"events"`
	Reflections []string          `json:"reflections"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// CreateInput carries the fields accepted when creating an entry.
// Emotion, Sentiment and Summary are derived from Content when empty.
type CreateInput struct {
	Content     string            `json:"content" validate:"required,max=10000"`
	Emotion     string            `json:"emotion" validate:"omitempty,max=32"`
	Sentiment   emotion.Sentiment `json:"sentiment" validate:"omitempty,oneof=positive negative neutral"`
	Summary     string            `json:"summary" validate:"omitempty,max=500"`
	Tags        []string          `json:"tags" validate:"omitempty,max=20,dive,required,max=32"`
	Events      []string          `json:"events" validate:"omitempty,max=50,dive,required,max=200"`
	Reflections []string          `json:"reflections" validate:"omitempty,max=50,dive,required,max=200"`
	CreatedAt   *time.Time        `json:"createdAt"`
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	Content     *string            `json:"content" validate:"omitempty,min=1,max=10000"`
	Emotion     *string            `json:"emotion" validate:"omitempty,max=32"`
	Sentiment   *emotion.Sentiment `json:"sentiment" validate:"omitempty,oneof=positive negative neutral"`
	Summary     *string            `json:"summary" validate:"omitempty,max=500"`
	Tags        []string           `json:"tags" validate:"omitempty,max=20,dive,required,max=32"`
	Events      []string           `json:"events" validate:"omitempty,max=50,dive,required,max=200"`
	Reflections []string           `json:"reflections" validate:"omitempty,max=50,dive,required,max=200"`
}

// Apply copies the non-nil fields of in onto e.
func (in UpdateInput) Apply(e *Entry) {
	if in.Content != nil {
		e.Content = *in.Content
	}
	if in.Emotion != nil {
		e.Emotion = *in.Emotion
	}
	if in.Sentiment != nil {
		e.Sentiment = *in.Sentiment
	}
	if in.Summary != nil {
		e.Summary = *in.Summary
	}
	if in.Tags != nil {
		e.Tags = append([]string(nil), in.Tags...)
	}
	if in.Events != nil {
		e.Events = append([]string(nil), in.Events...)
	}
	if in.Reflections != nil {
		e.Reflections = append([]string(nil), in.Reflections...)
	}
}

// 变更事件类型，与 postgres_changes 保持一致。
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// TableName is reported in change events.
const TableName = "diaries"

// ChangeEvent 描述一次日记变更，推送给实时订阅者。
type ChangeEvent struct {
	EventType       string    `json:"eventType"`
	Table           string    `json:"table"`
	UserID          string    `json:"-"`
	New             *Entry    `json:"new,omitempty"`
	Old             *Entry    `json:"old,omitempty"`
	CommitTimestamp time.Time `json:"commitTimestamp"`
}
