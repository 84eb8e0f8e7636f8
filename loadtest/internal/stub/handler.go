package stub

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	storage *MessageStorage
	now     func() time.Time
}

func NewHandler(storage *MessageStorage) *Handler {
	return &Handler{storage: storage, now: time.Now}
}

// Register mounts the Bot API surface and the stub control endpoints.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/:bot/sendMessage", h.HandleSendMessage)

	ctl := r.Group("/stub")
	ctl.POST("/reset", h.HandleReset)
	ctl.POST("/failures", h.HandleFailures)
	ctl.GET("/messages", h.HandleMessages)
}

// runIDFromBot uses the bot token as the run id so parallel load test runs
// can share one stub by configuring different tokens.
func runIDFromBot(segment string) (string, bool) {
	token, ok := strings.CutPrefix(segment, "bot")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// POST /bot<token>/sendMessage
func (h *Handler) HandleSendMessage(c *gin.Context) {
	runID, ok := runIDFromBot(c.Param("bot"))
	if !ok {
		c.JSON(http.StatusNotFound, apiResponse{OK: false, ErrorCode: http.StatusNotFound, Description: "Not Found"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiResponse{
			OK:          false,
			ErrorCode:   http.StatusBadRequest,
			Description: "Bad Request: " + err.Error(),
		})
		return
	}

	msg, fail := h.storage.Deliver(runID, req, h.now())
	if fail != nil {
		resp := apiResponse{
			OK:          false,
			ErrorCode:   fail.statusCode,
			Description: http.StatusText(fail.statusCode),
		}
		if fail.retryAfter > 0 {
			resp.Parameters = &apiParameters{RetryAfter: fail.retryAfter}
		}

		slog.Debug("injected sendMessage failure",
			slog.String("chat_id", req.ChatID),
			slog.Int("status_code", fail.statusCode),
		)

		c.JSON(fail.statusCode, resp)
		return
	}

	slog.Debug("sendMessage",
		slog.String("chat_id", req.ChatID),
		slog.Int64("message_id", msg.MessageID),
	)

	c.JSON(http.StatusOK, apiResponse{OK: true, Result: &apiResult{MessageID: msg.MessageID}})
}

func (h *Handler) HandleReset(c *gin.Context) {
	runID := c.Query("run_id")
	if runID == "" {
		h.storage.ResetAll()
		runID = "*"
	} else {
		h.storage.Reset(runID)
	}

	slog.Info("reset data", slog.String("run_id", runID))

	c.JSON(http.StatusOK, gin.H{
		"status": "reset complete",
		"run_id": runID,
	})
}

func (h *Handler) HandleFailures(c *gin.Context) {
	runID := c.Query("run_id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id query parameter is required"})
		return
	}

	var req FailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.storage.AddFailure(runID, req)

	slog.Info("queued failures",
		slog.String("run_id", runID),
		slog.Int("count", req.Count),
		slog.Int("status_code", req.StatusCode),
	)

	c.JSON(http.StatusOK, gin.H{
		"status": "queued",
		"run_id": runID,
		"count":  req.Count,
	})
}

// GET /stub/messages?run_id=...
func (h *Handler) HandleMessages(c *gin.Context) {
	runID := c.Query("run_id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id query parameter is required"})
		return
	}

	messages := h.storage.Messages(runID)

	c.JSON(http.StatusOK, MessagesResponse{
		Messages: messages,
		Count:    len(messages),
	})
}
