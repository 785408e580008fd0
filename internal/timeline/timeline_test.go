package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/riji/backend/internal/model/diary"
)

var shanghai = time.FixedZone("CST", 8*3600)

// 2024-08-24 是周六。
var anchor = time.Date(2024, 8, 24, 20, 30, 0, 0, shanghai)

func entry(id, label string, at time.Time, events, reflections int) diary.Entry {
	return diary.Entry{
		ID:          id,
		Emotion:     label,
		Events:      make([]string, events),
		Reflections: make([]string, reflections),
		CreatedAt:   at,
	}
}

func TestParseView(t *testing.T) {
	v, err := ParseView("")
	require.NoError(t, err)
	assert.Equal(t, Day, v)

	v, err = ParseView(" Month ")
	require.NoError(t, err)
	assert.Equal(t, Month, v)

	_, err = ParseView("decade")
	assert.ErrorIs(t, err, ErrInvalidView)
}

func TestRange(t *testing.T) {
	tests := []struct {
		view       View
		start, end time.Time
	}{
		{Day, time.Date(2024, 8, 24, 0, 0, 0, 0, shanghai), time.Date(2024, 8, 25, 0, 0, 0, 0, shanghai)},
		{Week, time.Date(2024, 8, 18, 0, 0, 0, 0, shanghai), time.Date(2024, 8, 25, 0, 0, 0, 0, shanghai)},
		{Month, time.Date(2024, 8, 1, 0, 0, 0, 0, shanghai), time.Date(2024, 9, 1, 0, 0, 0, 0, shanghai)},
		{Year, time.Date(2024, 1, 1, 0, 0, 0, 0, shanghai), time.Date(2025, 1, 1, 0, 0, 0, 0, shanghai)},
	}
	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			start, end := Range(tt.view, anchor)
			assert.True(t, tt.start.Equal(start), "start %s", start)
			assert.True(t, tt.end.Equal(end), "end %s", end)
		})
	}
}

func TestNavigate(t *testing.T) {
	assert.Equal(t, 25, Navigate(Day, anchor, 1).Day())
	assert.Equal(t, 17, Navigate(Week, anchor, -1).Day())
	assert.Equal(t, time.September, Navigate(Month, anchor, 1).Month())
	assert.Equal(t, 2023, Navigate(Year, anchor, -5).Year())
	assert.Equal(t, anchor, Navigate(Day, anchor, 0))
}

func TestWeekNumber(t *testing.T) {
	assert.Equal(t, 1, WeekNumber(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	// 2024-01-06 为周六，仍在第 1 周；次日进入第 2 周。
	assert.Equal(t, 1, WeekNumber(time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, WeekNumber(time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 34, WeekNumber(anchor))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "2024年8月24日", Label(Day, anchor))
	assert.Equal(t, "第34周", Label(Week, anchor))
	assert.Equal(t, "2024年8月", Label(Month, anchor))
	assert.Equal(t, "2024", Label(Year, anchor))
}

func TestFilterNewestFirst(t *testing.T) {
	entries := []diary.Entry{
		entry("sun", "开心", time.Date(2024, 8, 18, 8, 0, 0, 0, shanghai), 0, 0),
		entry("sat", "焦虑", time.Date(2024, 8, 24, 9, 0, 0, 0, shanghai), 0, 0),
		entry("prev", "平静", time.Date(2024, 8, 17, 23, 59, 0, 0, shanghai), 0, 0),
		// UTC 16:30 即北京时间次日 00:30，不属于本周。
		entry("next", "平静", time.Date(2024, 8, 24, 16, 30, 0, 0, time.UTC), 0, 0),
	}

	got := Filter(entries, Week, anchor)
	require.Len(t, got, 2)
	assert.Equal(t, "sat", got[0].ID)
	assert.Equal(t, "sun", got[1].ID)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "本周还没有记录，去倾诉页面开始记录吧！", Summarize(nil, Week))
	assert.Equal(t, "本日还没有记录，去倾诉页面开始记录吧！", Summarize(nil, Day))

	entries := []diary.Entry{
		entry("1", "开心", anchor, 2, 1),
		entry("2", "焦虑", anchor, 1, 3),
		entry("3", "焦虑", anchor, 0, 0),
	}
	assert.Equal(t,
		"本月记录了3条日记，主要情绪：开心、焦虑。共记录3个事件和4条反思。主导情绪是焦虑。",
		Summarize(entries, Month))
}

func TestSummarizeTieGoesToFirstSeen(t *testing.T) {
	entries := []diary.Entry{
		entry("1", "平静", anchor, 0, 0),
		entry("2", "开心", anchor, 0, 0),
	}
	assert.Contains(t, Summarize(entries, Year), "主导情绪是平静。")
}

func TestBuild(t *testing.T) {
	page := Build([]diary.Entry{entry("1", "开心", anchor, 1, 0)}, Day, anchor)
	assert.Equal(t, "2024年8月24日", page.Label)
	assert.Len(t, page.Entries, 1)
	assert.Equal(t, "本日记录了1条日记，主要情绪：开心。共记录1个事件和0条反思。主导情绪是开心。", page.Summary)
}
