package emotion

import (
	"strings"
)

// Analysis 是对单条用户消息的情绪识别结果。
type Analysis struct {
	Emotion    string    `json:"emotion"`
	Confidence float64   `json:"confidence"`
	Keywords   []string  `json:"keywords"`
	Sentiment  Sentiment `json:"sentiment"`
}

// 情绪标签。
const (
	LabelHappy    = "开心"
	LabelAnxious  = "焦虑"
	LabelCalm     = "平静"
	LabelThinking = "思考中"
	LabelCaring   = "关心"
)

// DefaultKeyword 在没有任何词命中时作为占位关键词。
const DefaultKeyword = "对话"

type category struct {
	emotion    string
	sentiment  Sentiment
	confidence float64
}

// 整词命中时各极性对应的结果。
var lexiconCategories = map[Sentiment]category{
	Positive: {emotion: LabelHappy, sentiment: Positive, confidence: 0.9},
	Negative: {emotion: LabelAnxious, sentiment: Negative, confidence: 0.8},
	Neutral:  {emotion: LabelCalm, sentiment: Neutral, confidence: 0.6},
}

// 整词都未命中时，按顺序做子串检测。
var substringRules = []struct {
	triggers []string
	result   category
}{
	{
		triggers: []string{"!", "开心", "高兴", "快乐"},
		result:   category{emotion: LabelHappy, sentiment: Positive, confidence: 0.7},
	},
	{
		triggers: []string{"难过", "压力", "焦虑", "伤心"},
		result:   category{emotion: LabelAnxious, sentiment: Negative, confidence: 0.7},
	},
	{
		triggers: []string{"平静", "日常", "普通"},
		result:   category{emotion: LabelCalm, sentiment: Neutral, confidence: 0.6},
	},
}

var thinking = category{emotion: LabelThinking, sentiment: Neutral, confidence: 0.5}

// Classify 使用内置词表识别文本情绪。
func Classify(text string) Analysis {
	return defaultLexicon.Classify(text)
}

// Classify 对文本按空白切词并逐个整词匹配，最后一个命中的类别决定结果；
// 没有整词命中时回退到子串检测。结果的 Keywords 永不为空。
func (l *Lexicon) Classify(text string) Analysis {
	result := category{emotion: LabelCalm, sentiment: Neutral, confidence: 0.5}
	var keywords []string

	for _, token := range strings.Fields(strings.ToLower(text)) {
		sentiment, ok := l.Match(token)
		if !ok {
			continue
		}
		result = lexiconCategories[sentiment]
		keywords = append(keywords, token)
	}

	if len(keywords) == 0 {
		result = classifyBySubstring(text)
		keywords = []string{DefaultKeyword}
	}

	return Analysis{
		Emotion:    result.emotion,
		Confidence: result.confidence,
		Keywords:   keywords,
		Sentiment:  result.sentiment,
	}
}

func classifyBySubstring(text string) category {
	for _, rule := range substringRules {
		if containsAny(text, rule.triggers) {
			return rule.result
		}
	}
	return thinking
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

// Placeholder 返回回退回复所附带的固定情绪结果。
func Placeholder() Analysis {
	return Analysis{
		Emotion:    LabelCaring,
		Confidence: 0.6,
		Keywords:   []string{"倾听", "分享", "心情"},
		Sentiment:  Neutral,
	}
}
