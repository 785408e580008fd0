package emotion

var suggestionsBySentiment = map[Sentiment][]string{
	Positive: {"继续保持这种积极的心态", "记录下这个美好的时刻", "可以和朋友分享这份喜悦"},
	Negative: {"尝试深呼吸放松一下", "写下来可以帮助理清思绪", "明天会更好的，保持希望"},
	Neutral:  {"日常的记录也很重要", "保持思考是成长的一部分"},
}

// Suggestions 根据情感极性返回固定的建议列表。未知极性按 neutral 处理。
func Suggestions(sentiment Sentiment) []string {
	list, ok := suggestionsBySentiment[sentiment]
	if !ok {
		list = suggestionsBySentiment[Neutral]
	}
	return append([]string(nil), list...)
}
