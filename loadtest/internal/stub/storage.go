package stub

import (
	"net/http"
	"sync"
	"time"
)

type failure struct {
	remaining  int
	statusCode int
	retryAfter int
	chatID     string
}

type MessageStorage struct {
	mu       sync.RWMutex
	nextID   int64
	messages map[string][]SentMessage // runID -> delivered messages
	failures map[string][]*failure    // runID -> queued failures
}

func NewMessageStorage() *MessageStorage {
	return &MessageStorage{
		messages: make(map[string][]SentMessage),
		failures: make(map[string][]*failure),
	}
}

func (s *MessageStorage) Reset(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, runID)
	delete(s.failures, runID)
}

func (s *MessageStorage) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = make(map[string][]SentMessage)
	s.failures = make(map[string][]*failure)
}

func (s *MessageStorage) AddFailure(runID string, req FailureRequest) {
	statusCode := req.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[runID] = append(s.failures[runID], &failure{
		remaining:  req.Count,
		statusCode: statusCode,
		retryAfter: req.RetryAfter,
		chatID:     req.ChatID,
	})
}

// Deliver consumes a queued failure matching the chat, if any, and otherwise
// records the message and assigns it an id.
func (s *MessageStorage) Deliver(runID string, req SendMessageRequest, now time.Time) (SentMessage, *failure) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.failures[runID] {
		if f.chatID != "" && f.chatID != req.ChatID {
			continue
		}
		f.remaining--
		if f.remaining <= 0 {
			s.failures[runID] = append(s.failures[runID][:i], s.failures[runID][i+1:]...)
		}
		return SentMessage{}, f
	}

	s.nextID++
	msg := SentMessage{
		MessageID:       s.nextID,
		ChatID:          req.ChatID,
		MessageThreadID: req.MessageThreadID,
		Text:            req.Text,
		ParseMode:       req.ParseMode,
		ReceivedAt:      now,
	}
	s.messages[runID] = append(s.messages[runID], msg)

	return msg, nil
}

func (s *MessageStorage) Messages(runID string) []SentMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SentMessage, len(s.messages[runID]))
	copy(out, s.messages[runID])
	return out
}
