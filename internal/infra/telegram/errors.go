package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrBotTokenMissing = errors.New("telegram bot token is required")

// APIError is a non-OK answer from the Bot API.
type APIError struct {
	StatusCode  int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram: status %d", e.StatusCode)
	}
	return fmt.Sprintf("telegram: status %d: %s", e.StatusCode, e.Description)
}

// Retryable reports whether another attempt may succeed: rate limiting and
// server-side failures only.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
