// Package ai talks to the OpenAI-compatible chat completion endpoint and turns
// every outcome, including failures, into a displayable chat.Response.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"go.uber.org/zap"

	"github.com/zhouzirui/riji/backend/internal/analysis/emotion"
	"github.com/zhouzirui/riji/backend/internal/config"
	"github.com/zhouzirui/riji/backend/internal/model/chat"
	"github.com/zhouzirui/riji/backend/internal/model/persona"
)

const completionsPath = "/v1/chat/completions"

// maxErrorBody bounds how much of an error response is kept for logging.
const maxErrorBody = 64 << 10

// RandomSource picks fallback replies. *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.Intn(n) }

// Client sends one conversation turn to the completion endpoint.
type Client struct {
	cfg        config.LLMConfig
	httpClient *http.Client
	template   prompt.ChatTemplate
	random     RandomSource
	now        func() time.Time
	logger     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for completion calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRandomSource injects the source used to choose fallback replies.
func WithRandomSource(r RandomSource) Option {
	return func(c *Client) { c.random = r }
}

// WithClock injects the clock used for response ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a completion client for the given companion persona.
func NewClient(cfg config.LLMConfig, companion persona.Persona, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		template:   newChatTemplate(companion.SystemPrompt),
		random:     globalRandom{},
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "ai"))
	return c
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Send 发送一轮对话并返回可直接展示的回复。该方法从不返回错误：
// 任何网络、状态码或响应格式问题都会转成本地合成的回退回复。
func (c *Client) Send(ctx context.Context, message string, history []chat.HistoryMessage) chat.Response {
	reply, err := c.complete(ctx, message, history)
	if err != nil {
		return c.fallback(err)
	}

	analysis := emotion.Classify(message)
	c.logger.Debug("completion succeeded",
		zap.Int("reply_length", len(reply)),
		zap.String("emotion", analysis.Emotion),
	)

	return chat.Response{
		ID:              c.newID(),
		Content:         reply,
		EmotionAnalysis: analysis,
		Summary:         emotion.Summarize(reply),
		Suggestions:     emotion.Suggestions(analysis.Sentiment),
		Timestamp:       c.now(),
	}
}

func (c *Client) complete(ctx context.Context, message string, history []chat.HistoryMessage) (string, error) {
	messages, err := buildMessages(ctx, c.template, message, history, c.cfg.PreserveHistoryRoles)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(completionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call completion api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message == nil || decoded.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("%w: missing choices[0].message.content", ErrMalformedResponse)
	}
	return *decoded.Choices[0].Message.Content, nil
}

func (c *Client) newID() string {
	return strconv.FormatInt(c.now().UnixMilli(), 10)
}

// APIError is a non-2xx answer from the completion endpoint.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion api returned %s: %s", e.Status, e.Body)
}

// ErrMalformedResponse marks a 2xx answer without the expected completion fields.
var ErrMalformedResponse = errors.New("malformed completion response")
