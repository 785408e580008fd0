package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestions(t *testing.T) {
	pos := Suggestions(Positive)
	neg := Suggestions(Negative)
	neu := Suggestions(Neutral)

	assert.Len(t, pos, 3)
	assert.Len(t, neg, 3)
	assert.Len(t, neu, 2)
	assert.NotEqual(t, pos, neg)
	assert.Equal(t, "日常的记录也很重要", neu[0])
}

func TestSuggestionsPure(t *testing.T) {
	first := Suggestions(Negative)
	first[0] = "mutated"

	assert.Equal(t, "尝试深呼吸放松一下", Suggestions(Negative)[0])
	assert.Equal(t, Suggestions(Positive), Suggestions(Positive))
}
