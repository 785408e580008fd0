package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/riji/backend/internal/model/chat"
)

const (
	historyKey = "history"
	queryKey   = "query"
)

// newChatTemplate 组装 system 人设 + 历史消息占位 + 用户输入的模板。
func newChatTemplate(systemPrompt string) prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(escapeFString(systemPrompt)),
		schema.MessagesPlaceholder(historyKey, true),
		schema.UserMessage("{"+queryKey+"}"),
	)
}

// buildMessages renders the request messages. Unless preserveRoles is set, every
// prior turn is forwarded with the user role, matching what the app has always sent.
func buildMessages(ctx context.Context, tpl prompt.ChatTemplate, message string, history []chat.HistoryMessage, preserveRoles bool) ([]wireMessage, error) {
	prior := make([]*schema.Message, 0, len(history))
	for _, h := range history {
		if preserveRoles && h.Role == chat.SenderAssistant {
			prior = append(prior, schema.AssistantMessage(h.Content, nil))
			continue
		}
		prior = append(prior, schema.UserMessage(h.Content))
	}

	rendered, err := tpl.Format(ctx, map[string]any{
		historyKey: prior,
		queryKey:   message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render chat template: %w", err)
	}

	out := make([]wireMessage, 0, len(rendered))
	for _, m := range rendered {
		out = append(out, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	return out, nil
}

func escapeFString(s string) string {
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
}
