package emotion

import "strings"

// DefaultSummary 在回复中找不到任何句子时使用。
const DefaultSummary = "这是一次有意义的交流。"

// Summarize 取 AI 回复中的第一句作为一句话摘要，并补上全角句号。
func Summarize(reply string) string {
	for _, segment := range strings.FieldsFunc(reply, isSentenceTerminator) {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		return segment + "。"
	}
	return DefaultSummary
}

func isSentenceTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	default:
		return false
	}
}
