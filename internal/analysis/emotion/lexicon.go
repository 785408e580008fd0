package emotion

// Sentiment 表示粗粒度的三分类情感极性。
type Sentiment string

const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

// Valid reports whether s is one of the three known polarities.
func (s Sentiment) Valid() bool {
	switch s {
	case Positive, Negative, Neutral:
		return true
	default:
		return false
	}
}

// Lexicon 是按情感极性划分的固定词表，用于整词匹配。
type Lexicon struct {
	positive map[string]struct{}
	negative map[string]struct{}
	neutral  map[string]struct{}
}

var (
	positiveWords = []string{"开心", "高兴", "幸福", "快乐", "满意", "兴奋", "激动", "欣慰"}
	negativeWords = []string{"难过", "悲伤", "焦虑", "紧张", "压力", "烦恼", "失望", "委屈"}
	neutralWords  = []string{"思考", "计划", "工作", "学习", "日常", "普通", "一般"}
)

var defaultLexicon = NewLexicon(positiveWords, negativeWords, neutralWords)

// DefaultLexicon returns the built-in word lists.
func DefaultLexicon() *Lexicon {
	return defaultLexicon
}

// NewLexicon 根据三组词表构建 Lexicon。
func NewLexicon(positive, negative, neutral []string) *Lexicon {
	return &Lexicon{
		positive: toSet(positive),
		negative: toSet(negative),
		neutral:  toSet(neutral),
	}
}

// Match 判断 token 是否完整命中某个词表，按 positive、negative、neutral 的顺序检查。
func (l *Lexicon) Match(token string) (Sentiment, bool) {
	if _, ok := l.positive[token]; ok {
		return Positive, true
	}
	if _, ok := l.negative[token]; ok {
		return Negative, true
	}
	if _, ok := l.neutral[token]; ok {
		return Neutral, true
	}
	return "", false
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
