// Package timeline 按日/周/月/年切分日记并生成时间段总结。
package timeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zhouzirui/riji/backend/internal/model/diary"
)

// View 是时间轴的粒度。
type View string

const (
	Day   View = "day"
	Week  View = "week"
	Month View = "month"
	Year  View = "year"
)

// ErrInvalidView is returned by ParseView for unknown granularities.
var ErrInvalidView = errors.New("view must be one of day, week, month, year")

// ParseView parses s; an empty string means Day.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return Day, nil
	case Day, Week, Month, Year:
		return v, nil
	default:
		return "", ErrInvalidView
	}
}

func (v View) noun() string {
	switch v {
	case Week:
		return "周"
	case Month:
		return "月"
	case Year:
		return "年"
	default:
		return "日"
	}
}

// Range returns the half-open interval [start, end) of the period containing anchor,
// in anchor's location.
func Range(v View, anchor time.Time) (time.Time, time.Time) {
	y, m, d := anchor.Date()
	loc := anchor.Location()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch v {
	case Week:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return start, start.AddDate(0, 0, 7)
	case Month:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	case Year:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}

// Navigate moves anchor one period forward (dir > 0) or back (dir < 0).
func Navigate(v View, anchor time.Time, dir int) time.Time {
	switch {
	case dir > 0:
		dir = 1
	case dir < 0:
		dir = -1
	default:
		return anchor
	}

	switch v {
	case Week:
		return anchor.AddDate(0, 0, 7*dir)
	case Month:
		return anchor.AddDate(0, dir, 0)
	case Year:
		return anchor.AddDate(dir, 0, 0)
	default:
		return anchor.AddDate(0, 0, dir)
	}
}

// WeekNumber 以 1 月 1 日所在周为第 1 周，周日为一周起点。
func WeekNumber(t time.Time) int {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	past := t.YearDay() - 1
	return (past+int(jan1.Weekday())+1+6) / 7
}

// Label 返回时间段的展示文本。
func Label(v View, anchor time.Time) string {
	switch v {
	case Week:
		return fmt.Sprintf("第%d周", WeekNumber(anchor))
	case Month:
		return fmt.Sprintf("%d年%d月", anchor.Year(), int(anchor.Month()))
	case Year:
		return fmt.Sprintf("%d", anchor.Year())
	default:
		return fmt.Sprintf("%d年%d月%d日", anchor.Year(), int(anchor.Month()), anchor.Day())
	}
}

// Filter returns the entries inside the period containing anchor, newest first.
func Filter(entries []diary.Entry, v View, anchor time.Time) []diary.Entry {
	start, end := Range(v, anchor)
	out := make([]diary.Entry, 0, len(entries))
	for _, e := range entries {
		at := e.CreatedAt.In(anchor.Location())
		if !at.Before(start) && at.Before(end) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Summarize 概括 entries（已按时间段过滤）的情绪、事件与反思。
func Summarize(entries []diary.Entry, v View) string {
	noun := v.noun()
	if len(entries) == 0 {
		return fmt.Sprintf("本%s还没有记录，去倾诉页面开始记录吧！", noun)
	}

	var unique []string
	counts := make(map[string]int)
	events, reflections := 0, 0
	for _, e := range entries {
		if _, seen := counts[e.Emotion]; !seen {
			unique = append(unique, e.Emotion)
		}
		counts[e.Emotion]++
		events += len(e.Events)
		reflections += len(e.Reflections)
	}

	dominant := unique[0]
	for _, label := range unique[1:] {
		if counts[label] > counts[dominant] {
			dominant = label
		}
	}

	return fmt.Sprintf("本%s记录了%d条日记，主要情绪：%s。共记录%d个事件和%d条反思。主导情绪是%s。",
		noun, len(entries), strings.Join(unique, "、"), events, reflections, dominant)
}

// Page is one rendered timeline period.
type Page struct {
	View    View          `json:"view"`
	Label   string        `json:"label"`
	Anchor  time.Time     `json:"anchor"`
	Start   time.Time     `json:"start"`
	End     time.Time     `json:"end"`
	Summary string        `json:"summary"`
	Entries []diary.Entry `json:"entries"`
}

// Build assembles the page for the period containing anchor.
func Build(entries []diary.Entry, v View, anchor time.Time) Page {
	start, end := Range(v, anchor)
	filtered := Filter(entries, v, anchor)
	return Page{
		View:    v,
		Label:   Label(v, anchor),
		Anchor:  anchor,
		Start:   start,
		End:     end,
		Summary: Summarize(filtered, v),
		Entries: filtered,
	}
}
