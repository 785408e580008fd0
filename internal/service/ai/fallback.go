package ai

import (
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/riji/backend/internal/analysis/emotion"
	"github.com/zhouzirui/riji/backend/internal/model/chat"
)

type failureKind int

const (
	failureUnknown failureKind = iota
	failureUnauthorized
	failureRateLimited
	failureNetwork
)

func (k failureKind) String() string {
	switch k {
	case failureUnauthorized:
		return "unauthorized"
	case failureRateLimited:
		return "rate_limited"
	case failureNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// 面向用户的固定提示文案。
const (
	UnauthorizedReply = "API认证失败，请检查配置"
	RateLimitedReply  = "请求过于频繁，请稍后再试"
	NetworkReply      = "网络连接出现问题，请检查网络"
)

// FallbackReplies 是未知错误时随机选用的共情回复。
var FallbackReplies = []string{
	"我在这里倾听，想和我聊聊发生了什么吗？",
	"听起来你有很多想法，愿意分享更多吗？",
	"我注意到你的情绪变化，想多谈谈吗？",
	"今天过得怎么样？有什么想记录的吗？",
	"我感受到你的心情，愿意多说一些吗？",
}

func classifyFailure(err error) failureKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return failureUnauthorized
		case http.StatusTooManyRequests:
			return failureRateLimited
		default:
			return failureUnknown
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return failureNetwork
	}
	return failureUnknown
}

func (c *Client) fallback(err error) chat.Response {
	kind := classifyFailure(err)

	fields := []zap.Field{zap.String("kind", kind.String()), zap.Error(err)}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		fields = append(fields, zap.Int("status", apiErr.StatusCode), zap.String("body", apiErr.Body))
	}
	c.logger.Warn("completion failed, using fallback reply", fields...)

	return chat.Response{
		ID:              c.newID(),
		Content:         c.fallbackContent(kind),
		EmotionAnalysis: emotion.Placeholder(),
		Timestamp:       c.now(),
	}
}

func (c *Client) fallbackContent(kind failureKind) string {
	switch kind {
	case failureUnauthorized:
		return UnauthorizedReply
	case failureRateLimited:
		return RateLimitedReply
	case failureNetwork:
		return NetworkReply
	}

	idx := c.random.IntN(len(FallbackReplies))
	if idx < 0 || idx >= len(FallbackReplies) {
		idx = 0
	}
	return FallbackReplies[idx]
}
