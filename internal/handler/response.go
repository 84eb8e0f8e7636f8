package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

type dispatchResponse struct {
	OK       bool               `json:"ok"`
	RunID    string             `json:"run_id"`
	Mode     domain.Mode        `json:"mode"`
	TenantID string             `json:"tenant_id,omitempty"`
	From     time.Time          `json:"window_from"`
	To       time.Time          `json:"window_to"`
	Sent     int                `json:"sent"`
	Skipped  int                `json:"skipped"`
	TotalDue int                `json:"total_due"`
	Errors   []domain.ItemError `json:"errors"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func newDispatchResponse(outcome *domain.DispatchOutcome, errorLimit int) dispatchResponse {
	errs := outcome.Errors
	if errs == nil {
		errs = []domain.ItemError{}
	}
	if errorLimit > 0 && len(errs) > errorLimit {
		errs = errs[:errorLimit]
	}
	return dispatchResponse{
		OK:       true,
		RunID:    outcome.RunID,
		Mode:     outcome.Mode,
		TenantID: outcome.TenantID,
		From:     outcome.Window.From,
		To:       outcome.Window.To,
		Sent:     outcome.Sent,
		Skipped:  outcome.Skipped,
		TotalDue: outcome.TotalDue,
		Errors:   errs,
	}
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, errorResponse{OK: false, Error: message})
}
