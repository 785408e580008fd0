package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/zhouzirui/riji/backend/internal/analysis/emotion"
	"github.com/zhouzirui/riji/backend/internal/model/diary"
)

type diaryRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	Content     string `db:"content"`
	Emotion     string `db:"emotion"`
	Sentiment   string `db:"sentiment"`
	Summary     string `db:"summary"`
	Tags        string `db:"tags"`
	Events      string `db:"events"`
	Reflections string `db:"reflections"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

const diaryColumns = `id, user_id, content, emotion, sentiment, summary, tags, events, reflections, created_at, updated_at`

func newDiaryRow(e diary.Entry) (diaryRow, error) {
	tags, err := encodeList(e.Tags)
	if err != nil {
		return diaryRow{}, err
	}
	events, err := encodeList(e.Events)
	if err != nil {
		return diaryRow{}, err
	}
	reflections, err := encodeList(e.Reflections)
	if err != nil {
		return diaryRow{}, err
	}
	return diaryRow{
		ID:          e.ID,
		UserID:      e.UserID,
		Content:     e.Content,
		Emotion:     e.Emotion,
		Sentiment:   string(e.Sentiment),
		Summary:     e.Summary,
		Tags:        tags,
		Events:      events,
		Reflections: reflections,
		CreatedAt:   toMillis(e.CreatedAt),
		UpdatedAt:   toMillis(e.UpdatedAt),
	}, nil
}

func (r diaryRow) entry() (diary.Entry, error) {
	e := diary.Entry{
		ID:        r.ID,
		UserID:    r.UserID,
		Content:   r.Content,
		Emotion:   r.Emotion,
		Sentiment: emotion.Sentiment(r.Sentiment),
		Summary:   r.Summary,
		CreatedAt: fromMillis(r.CreatedAt),
		UpdatedAt: fromMillis(r.UpdatedAt),
	}
	var err error
	if e.Tags, err = decodeList(r.Tags); err != nil {
		return diary.Entry{}, fmt.Errorf("diary %s tags: %w", r.ID, err)
	}
	if e.Events, err = decodeList(r.Events); err != nil {
		return diary.Entry{}, fmt.Errorf("diary %s events: %w", r.ID, err)
	}
	if e.Reflections, err = decodeList(r.Reflections); err != nil {
		return diary.Entry{}, fmt.Errorf("diary %s reflections: %w", r.ID, err)
	}
	return e, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(raw string) ([]string, error) {
	values := []string{}
	if raw == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// DiaryRepository persists diary entries.
type DiaryRepository struct {
	db *sqlx.DB
}

// NewDiaryRepository wraps an open database.
func NewDiaryRepository(db *sqlx.DB) *DiaryRepository {
	return &DiaryRepository{db: db}
}

// List returns every entry of userID, newest first.
func (r *DiaryRepository) List(ctx context.Context, userID string) ([]diary.Entry, error) {
	return r.query(ctx,
		`SELECT `+diaryColumns+` FROM diaries WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
}

// ListByEmotion returns entries tagged with emotionLabel, newest first.
func (r *DiaryRepository) ListByEmotion(ctx context.Context, userID, emotionLabel string) ([]diary.Entry, error) {
	return r.query(ctx,
		`SELECT `+diaryColumns+` FROM diaries WHERE user_id = ? AND emotion = ? ORDER BY created_at DESC`,
		userID, emotionLabel)
}

// ListBetween returns entries created in [start, end], newest first.
func (r *DiaryRepository) ListBetween(ctx context.Context, userID string, start, end time.Time) ([]diary.Entry, error) {
	return r.query(ctx,
		`SELECT `+diaryColumns+` FROM diaries WHERE user_id = ? AND created_at >= ? AND created_at <= ? ORDER BY created_at DESC`,
		userID, toMillis(start), toMillis(end))
}

func (r *DiaryRepository) query(ctx context.Context, query string, args ...any) ([]diary.Entry, error) {
	var rows []diaryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query diaries: %w", err)
	}

	entries := make([]diary.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := row.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Get loads one entry owned by userID.
func (r *DiaryRepository) Get(ctx context.Context, userID, id string) (diary.Entry, error) {
	var row diaryRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+diaryColumns+` FROM diaries WHERE user_id = ? AND id = ?`, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return diary.Entry{}, ErrNotFound
	}
	if err != nil {
		return diary.Entry{}, fmt.Errorf("failed to get diary: %w", err)
	}
	return row.entry()
}

// Insert stores a new entry.
func (r *DiaryRepository) Insert(ctx context.Context, e diary.Entry) error {
	row, err := newDiaryRow(e)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx,
		`INSERT INTO diaries (`+diaryColumns+`)
		 VALUES (:id, :user_id, :content, :emotion, :sentiment, :summary, :tags, :events, :reflections, :created_at, :updated_at)`,
		row)
	if err != nil {
		return fmt.Errorf("failed to insert diary: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of an existing entry.
func (r *DiaryRepository) Update(ctx context.Context, e diary.Entry) error {
	row, err := newDiaryRow(e)
	if err != nil {
		return err
	}
	res, err := r.db.NamedExecContext(ctx,
		`UPDATE diaries SET content = :content, emotion = :emotion, sentiment = :sentiment, summary = :summary,
		 tags = :tags, events = :events, reflections = :reflections, updated_at = :updated_at
		 WHERE id = :id AND user_id = :user_id`,
		row)
	if err != nil {
		return fmt.Errorf("failed to update diary: %w", err)
	}
	return expectOneRow(res)
}

// Delete removes an entry owned by userID.
func (r *DiaryRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM diaries WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete diary: %w", err)
	}
	return expectOneRow(res)
}

// CountByEmotion 统计每种情绪的日记数量。
func (r *DiaryRepository) CountByEmotion(ctx context.Context, userID string) (map[string]int, error) {
	var rows []struct {
		Emotion string `db:"emotion"`
		Count   int    `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT emotion, COUNT(*) AS count FROM diaries WHERE user_id = ? GROUP BY emotion`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count diaries: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Emotion] = row.Count
	}
	return counts, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
