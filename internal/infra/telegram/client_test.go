package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/namecoder1/calensync-bot/internal/config"
	"github.com/namecoder1/calensync-bot/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.TelegramConfig{
		BotToken:   "123:secret",
		APIBaseURL: server.URL,
		MaxRetries: 3,
		Timeout:    2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.baseBackoff = time.Millisecond
	client.maxRetryAfter = 5 * time.Millisecond

	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient(&config.TelegramConfig{})
	if !errors.Is(err, ErrBotTokenMissing) {
		t.Errorf("error: got %v, want %v", err, ErrBotTokenMissing)
	}
}

func TestSend_Success(t *testing.T) {
	var got sendMessageRequest
	var path string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeJSON(w, http.StatusOK, apiResponse{OK: true, Result: &message{MessageID: 77}})
	})

	thread := int64(3)
	result, err := client.Send(context.Background(), "-100", "<b>hi</b>", domain.SendOptions{SubThreadID: &thread})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if result.MessageID != 77 {
		t.Errorf("MessageID: got %d, want %d", result.MessageID, 77)
	}
	if path != "/bot123:secret/sendMessage" {
		t.Errorf("path: got %q, want %q", path, "/bot123:secret/sendMessage")
	}
	if got.ChatID != "-100" {
		t.Errorf("chat_id: got %q, want %q", got.ChatID, "-100")
	}
	if got.ParseMode != "HTML" {
		t.Errorf("parse_mode: got %q, want %q", got.ParseMode, "HTML")
	}
	if !got.DisableWebPagePreview {
		t.Error("disable_web_page_preview: got false, want true")
	}
	if got.MessageThreadID == nil || *got.MessageThreadID != 3 {
		t.Errorf("message_thread_id: got %v, want 3", got.MessageThreadID)
	}
}

func TestSend_OmitsThreadWhenAbsent(t *testing.T) {
	var raw map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		writeJSON(w, http.StatusOK, apiResponse{OK: true, Result: &message{MessageID: 1}})
	})

	if _, err := client.Send(context.Background(), "-100", "x", domain.SendOptions{}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if _, ok := raw["message_thread_id"]; ok {
		t.Errorf("message_thread_id should be omitted, got %v", raw["message_thread_id"])
	}
}

func TestSend_Retries(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		failStatus   int
		wantErr      bool
		wantAttempts int32
	}{
		{name: "server error then success", failures: 2, failStatus: http.StatusInternalServerError, wantAttempts: 3},
		{name: "rate limited then success", failures: 1, failStatus: http.StatusTooManyRequests, wantAttempts: 2},
		{name: "server error exhausted", failures: 5, failStatus: http.StatusBadGateway, wantErr: true, wantAttempts: 3},
		{name: "bad request not retried", failures: 5, failStatus: http.StatusBadRequest, wantErr: true, wantAttempts: 1},
		{name: "forbidden not retried", failures: 5, failStatus: http.StatusForbidden, wantErr: true, wantAttempts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				n := attempts.Add(1)
				if int(n) <= tt.failures {
					resp := apiResponse{OK: false, ErrorCode: tt.failStatus, Description: "nope"}
					if tt.failStatus == http.StatusTooManyRequests {
						resp.Parameters = &responseParameters{RetryAfter: 1}
					}
					writeJSON(w, tt.failStatus, resp)
					return
				}
				writeJSON(w, http.StatusOK, apiResponse{OK: true, Result: &message{MessageID: 9}})
			})

			_, err := client.Send(context.Background(), "-100", "x", domain.SendOptions{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if got := attempts.Load(); got != tt.wantAttempts {
				t.Errorf("attempts: got %d, want %d", got, tt.wantAttempts)
			}
			if tt.wantErr {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("error type: got %T, want *APIError", err)
				}
				if apiErr.StatusCode != tt.failStatus {
					t.Errorf("StatusCode: got %d, want %d", apiErr.StatusCode, tt.failStatus)
				}
			}
		})
	}
}

func TestSend_OKFalseWith200(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, apiResponse{OK: false, ErrorCode: 400, Description: "Bad Request: chat not found"})
	})

	_, err := client.Send(context.Background(), "-100", "x", domain.SendOptions{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type: got %T, want *APIError", err)
	}
	if apiErr.StatusCode != 400 {
		t.Errorf("StatusCode: got %d, want %d", apiErr.StatusCode, 400)
	}
}

func TestSend_ErrorDoesNotLeakToken(t *testing.T) {
	client, err := NewClient(&config.TelegramConfig{
		BotToken:   "123:secret",
		APIBaseURL: "http://127.0.0.1:1",
		MaxRetries: 1,
		Timeout:    time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Send(context.Background(), "-100", "x", domain.SendOptions{})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("error leaks bot token: %v", err)
	}
}

func TestSend_ContextCancelledDuringBackoff(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, apiResponse{OK: false, ErrorCode: 500})
	})
	client.baseBackoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Send(ctx, "-100", "x", domain.SendOptions{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error: got %v, want %v", err, context.DeadlineExceeded)
	}
}
