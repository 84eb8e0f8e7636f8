package stub

import "time"

// SendMessageRequest mirrors the subset of the Bot API sendMessage payload
// the dispatcher produces.
type SendMessageRequest struct {
	ChatID                string `json:"chat_id" binding:"required"`
	Text                  string `json:"text" binding:"required"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
	MessageThreadID       *int64 `json:"message_thread_id,omitempty"`
}

type SentMessage struct {
	MessageID       int64     `json:"message_id"`
	ChatID          string    `json:"chat_id"`
	MessageThreadID *int64    `json:"message_thread_id,omitempty"`
	Text            string    `json:"text"`
	ParseMode       string    `json:"parse_mode"`
	ReceivedAt      time.Time `json:"received_at"`
}

type MessagesResponse struct {
	Messages []SentMessage `json:"messages"`
	Count    int           `json:"count"`
}

// FailureRequest queues Count failing answers for a run before it succeeds again.
type FailureRequest struct {
	Count      int    `json:"count" binding:"min=1"`
	StatusCode int    `json:"status_code"`
	RetryAfter int    `json:"retry_after"`
	ChatID     string `json:"chat_id"`
}

type apiResult struct {
	MessageID int64 `json:"message_id"`
}

type apiParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

type apiResponse struct {
	OK          bool           `json:"ok"`
	Result      *apiResult     `json:"result,omitempty"`
	ErrorCode   int            `json:"error_code,omitempty"`
	Description string         `json:"description,omitempty"`
	Parameters  *apiParameters `json:"parameters,omitempty"`
}
