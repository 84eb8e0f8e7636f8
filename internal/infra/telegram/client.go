package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/namecoder1/calensync-bot/internal/config"
	"github.com/namecoder1/calensync-bot/internal/domain"
	"github.com/namecoder1/calensync-bot/internal/observability/tracing"
)

const (
	parseModeHTML = "HTML"

	defaultMaxRetries    = 3
	defaultBaseBackoff   = 150 * time.Millisecond
	defaultMaxRetryAfter = 5 * time.Second
	maxResponseBytes     = 64 << 10
)

// Client delivers messages through the Bot API sendMessage method.
type Client struct {
	baseURL       string
	token         string
	httpClient    *http.Client
	maxRetries    int
	baseBackoff   time.Duration
	maxRetryAfter time.Duration
}

func NewClient(cfg *config.TelegramConfig) (*Client, error) {
	if cfg == nil || cfg.BotToken == "" {
		return nil, ErrBotTokenMissing
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		token:   cfg.BotToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:    maxRetries,
		baseBackoff:   defaultBaseBackoff,
		maxRetryAfter: defaultMaxRetryAfter,
	}, nil
}

var _ domain.Notifier = (*Client)(nil)

// Send posts text in HTML parse mode. Rate limiting, server errors and
// transport failures are retried with exponential backoff; any other API
// error is returned immediately.
func (c *Client) Send(ctx context.Context, chatID, text string, opts domain.SendOptions) (*domain.SendResult, error) {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             parseModeHTML,
		DisableWebPagePreview: true,
		MessageThreadID:       opts.SubThreadID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sendMessage request: %w", err)
	}

	var lastErr error
	var wait time.Duration
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			slog.DebugContext(ctx, "retrying telegram sendMessage",
				slog.String("chat_id", chatID),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		result, err := c.doSend(ctx, body)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, err
		}

		wait = time.Duration(math.Pow(2, float64(attempt))) * c.baseBackoff
		if apiErr != nil && apiErr.RetryAfter > 0 {
			wait = min(apiErr.RetryAfter, c.maxRetryAfter)
		}
	}

	slog.ErrorContext(ctx, "all retries exhausted for telegram sendMessage",
		slog.String("chat_id", chatID),
		slog.Int("max_retries", c.maxRetries),
		slog.String("error", lastErr.Error()),
	)
	return nil, fmt.Errorf("sendMessage failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) doSend(ctx context.Context, body []byte) (*domain.SendResult, error) {
	ctx, span := tracing.StartExternalAPISpan(ctx, "telegram.send_message", c.baseURL+"/bot<redacted>/sendMessage")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		tracing.RecordResult(span, err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request URL embeds the token, so only the cause is kept.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		slog.WarnContext(ctx, "failed to send request to telegram",
			slog.String("error", err.Error()),
		)
		tracing.RecordResult(span, err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil && resp.StatusCode == http.StatusOK {
		tracing.RecordResult(span, err)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !parsed.OK {
		apiErr := &APIError{
			StatusCode:  resp.StatusCode,
			Description: parsed.Description,
		}
		if apiErr.StatusCode == http.StatusOK {
			apiErr.StatusCode = parsed.ErrorCode
		}
		if parsed.Parameters != nil && parsed.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(parsed.Parameters.RetryAfter) * time.Second
		}
		slog.WarnContext(ctx, "unexpected response from telegram",
			slog.Int("status_code", apiErr.StatusCode),
			slog.String("description", apiErr.Description),
		)
		tracing.RecordResult(span, apiErr)
		return nil, apiErr
	}

	tracing.RecordResult(span, nil)

	result := &domain.SendResult{}
	if parsed.Result != nil {
		result.MessageID = parsed.Result.MessageID
	}
	return result, nil
}

func (c *Client) endpoint(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}
