package diary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/riji/backend/internal/analysis/emotion"
	"github.com/zhouzirui/riji/backend/internal/model/diary"
)

var (
	ErrNotFound     = errors.New("diary not found")
	ErrInvalidRange = errors.New("range start must not be after end")
)

// statsWindow 是 MonthlyStats 统计的天数。
const statsWindow = 30

// Repository 是日记的持久化层，未找到记录时返回的错误通过 WithNotFound 指定。
type Repository interface {
	List(ctx context.Context, userID string) ([]diary.Entry, error)
	ListByEmotion(ctx context.Context, userID, emotion string) ([]diary.Entry, error)
	ListBetween(ctx context.Context, userID string, start, end time.Time) ([]diary.Entry, error)
	Get(ctx context.Context, userID, id string) (diary.Entry, error)
	Insert(ctx context.Context, e diary.Entry) error
	Update(ctx context.Context, e diary.Entry) error
	Delete(ctx context.Context, userID, id string) error
	CountByEmotion(ctx context.Context, userID string) (map[string]int, error)
}

// Publisher receives change events after each successful mutation.
type Publisher interface {
	Publish(event diary.ChangeEvent)
}

// Service 提供日记的增删改查与情绪统计。
type Service struct {
	repo      Repository
	publisher Publisher
	notFound  error
	validate  *validator.Validate
	now       func() time.Time
	loc       *time.Location
	logger    *zap.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher routes change events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithNotFound maps the repository's not-found sentinel to ErrNotFound.
func WithNotFound(err error) Option {
	return func(s *Service) { s.notFound = err }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone used to bucket entries by calendar day.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService wires the repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
		loc:      time.Local,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "diary"))
	return s
}

func (s *Service) mapErr(err error) error {
	if s.notFound != nil && errors.Is(err, s.notFound) {
		return ErrNotFound
	}
	return err
}

// List returns every entry of userID, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]diary.Entry, error) {
	return s.repo.List(ctx, userID)
}

// Get loads one entry.
func (s *Service) Get(ctx context.Context, userID, id string) (diary.Entry, error) {
	e, err := s.repo.Get(ctx, userID, id)
	return e, s.mapErr(err)
}

// Create stores a new entry. Emotion, sentiment and summary are derived from
// the content when the caller leaves them empty.
func (s *Service) Create(ctx context.Context, userID string, in diary.CreateInput) (diary.Entry, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := s.validate.Struct(in); err != nil {
		return diary.Entry{}, fmt.Errorf("invalid diary: %w", err)
	}

	now := s.now()
	created := now
	if in.CreatedAt != nil && !in.CreatedAt.IsZero() {
		created = in.CreatedAt.UTC()
	}

	e := diary.Entry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Content:     in.Content,
		Emotion:     in.Emotion,
		Sentiment:   in.Sentiment,
		Summary:     in.Summary,
		Tags:        orEmpty(in.Tags),
		Events:      orEmpty(in.Events),
		Reflections: orEmpty(in.Reflections),
		CreatedAt:   created,
		UpdatedAt:   now,
	}
	if e.Emotion == "" || e.Sentiment == "" {
		analysis := emotion.Classify(e.Content)
		if e.Emotion == "" {
			e.Emotion = analysis.Emotion
		}
		if e.Sentiment == "" {
			e.Sentiment = analysis.Sentiment
		}
	}
	if e.Summary == "" {
		e.Summary = emotion.Summarize(e.Content)
	}

	if err := s.repo.Insert(ctx, e); err != nil {
		return diary.Entry{}, err
	}

	s.publish(diary.EventInsert, userID, &e, nil)
	s.logger.Info("diary created", zap.String("user_id", userID), zap.String("id", e.ID), zap.String("emotion", e.Emotion))
	return e, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, userID, id string, in diary.UpdateInput) (diary.Entry, error) {
	if in.Content != nil {
		trimmed := strings.TrimSpace(*in.Content)
		in.Content = &trimmed
	}
	if err := s.validate.Struct(in); err != nil {
		return diary.Entry{}, fmt.Errorf("invalid diary: %w", err)
	}

	old, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return diary.Entry{}, s.mapErr(err)
	}

	updated := old
	in.Apply(&updated)
	updated.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, updated); err != nil {
		return diary.Entry{}, s.mapErr(err)
	}

	s.publish(diary.EventUpdate, userID, &updated, &old)
	return updated, nil
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	old, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return s.mapErr(err)
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return s.mapErr(err)
	}

	s.publish(diary.EventDelete, userID, nil, &old)
	return nil
}

// ListByEmotion returns entries labelled with the given emotion.
func (s *Service) ListByEmotion(ctx context.Context, userID, label string) ([]diary.Entry, error) {
	return s.repo.ListByEmotion(ctx, userID, label)
}

// ListByDateRange returns entries created in [start, end].
func (s *Service) ListByDateRange(ctx context.Context, userID string, start, end time.Time) ([]diary.Entry, error) {
	if start.After(end) {
		return nil, ErrInvalidRange
	}
	return s.repo.ListBetween(ctx, userID, start, end)
}

// EmotionStats 统计每种情绪的日记数。
func (s *Service) EmotionStats(ctx context.Context, userID string) (map[string]int, error) {
	return s.repo.CountByEmotion(ctx, userID)
}

// MonthlyStats groups the last 30 days by local date (YYYY-MM-DD), then by emotion.
func (s *Service) MonthlyStats(ctx context.Context, userID string) (map[string]map[string]int, error) {
	now := s.now()
	entries, err := s.repo.ListBetween(ctx, userID, now.AddDate(0, 0, -statsWindow), now)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]map[string]int)
	for _, e := range entries {
		day := e.CreatedAt.In(s.loc).Format(time.DateOnly)
		bucket, ok := stats[day]
		if !ok {
			bucket = make(map[string]int)
			stats[day] = bucket
		}
		bucket[e.Emotion]++
	}
	return stats, nil
}

func (s *Service) publish(eventType, userID string, newEntry, oldEntry *diary.Entry) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(diary.ChangeEvent{
		EventType:       eventType,
		Table:           diary.TableName,
		UserID:          userID,
		New:             newEntry,
		Old:             oldEntry,
		CommitTimestamp: s.now(),
	})
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
