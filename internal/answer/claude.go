package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/avast/retry-go/v4"
	"github.com/dgallion1/hilens/internal/metrics"
)

const DefaultClaudeModel = "claude-sonnet-4-20250514"

type ClaudeConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	BaseURL   string
	Attempts  uint
	Timeout   time.Duration
}

// ClaudeClient calls the Anthropic Messages API.
type ClaudeClient struct {
	client  anthropic.Client
	cfg     ClaudeConfig
	latency *metrics.Latency
	log     *slog.Logger
}

func NewClaudeClient(cfg ClaudeConfig, latency *metrics.Latency, log *slog.Logger) *ClaudeClient {
	if cfg.Model == "" {
		cfg.Model = DefaultClaudeModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &ClaudeClient{client: anthropic.NewClient(opts...), cfg: cfg, latency: latency, log: log}
}

// Complete sends one user turn and returns the concatenated text blocks.
func (c *ClaudeClient) Complete(ctx context.Context, system, user string) (text string, err error) {
	defer func(start time.Time) { c.latency.Since(metrics.OpAnswer, start, err) }(time.Now())

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: c.cfg.MaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(user))},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	var msg *anthropic.Message
	err = retry.Do(
		func() error {
			var callErr error
			msg, callErr = c.client.Messages.New(ctx, params)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(c.cfg.Attempts),
		retry.Delay(time.Second),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("claude request failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("claude api: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("empty response from claude")
	}
	return sb.String(), nil
}

func isRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
