package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/namecoder1/calensync-bot/internal/domain"
	"github.com/namecoder1/calensync-bot/internal/service/dispatch"
)

const tenantHeader = "X-Tenant-ID"

// ScheduledRunner runs the periodic dispatch over every configured target.
type ScheduledRunner interface {
	Run(ctx context.Context, now time.Time) ([]*domain.DispatchOutcome, error)
}

type DispatchHandlerConfig struct {
	// SchedulerToken guards the scheduled trigger when non-empty.
	SchedulerToken string
	// ManualErrorLimit caps the errors returned for manual runs.
	ManualErrorLimit int
	// AllowVirtualNow accepts a caller-supplied dispatch time. When
	// SchedulerToken is set the caller must also present it.
	AllowVirtualNow bool
}

type DispatchHandler struct {
	dispatcher dispatch.Dispatcher
	scheduled  ScheduledRunner
	cfg        DispatchHandlerConfig
	now        func() time.Time
}

func NewDispatchHandler(dispatcher dispatch.Dispatcher, scheduled ScheduledRunner, cfg DispatchHandlerConfig) *DispatchHandler {
	return &DispatchHandler{
		dispatcher: dispatcher,
		scheduled:  scheduled,
		cfg:        cfg,
		now:        time.Now,
	}
}

type dispatchRequest struct {
	TenantID string `json:"tenant_id"`
	Now      string `json:"now"`
}

// HandleDispatch runs one dispatch cycle. A tenant id (header, query or body)
// selects a manual run for that tenant; without one the run is automatic
// over the legacy configuration.
func (h *DispatchHandler) HandleDispatch(c *gin.Context) {
	ctx := c.Request.Context()

	var body dispatchRequest
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	tenantID := firstNonEmpty(c.GetHeader(tenantHeader), c.Query("tenant_id"), body.TenantID)

	now, ok := h.resolveNow(c, firstNonEmpty(c.Query("now"), body.Now))
	if !ok {
		return
	}

	opts := domain.DispatchOptions{Mode: domain.ModeAuto, TenantID: tenantID}
	errorLimit := 0
	if opts.HasTenant() {
		opts.Mode = domain.ModeManual
		errorLimit = h.cfg.ManualErrorLimit
	}

	slog.InfoContext(ctx, "dispatch requested",
		slog.String("mode", opts.Mode.String()),
		slog.String("tenant_id", tenantID),
		slog.Time("now", now),
	)

	outcome, err := h.dispatcher.Dispatch(ctx, now, opts)
	if err != nil {
		slog.ErrorContext(ctx, "dispatch failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, newDispatchResponse(outcome, errorLimit))
}

type scheduledResponse struct {
	OK    bool               `json:"ok"`
	Runs  []dispatchResponse `json:"runs"`
	Error string             `json:"error,omitempty"`
}

// HandleScheduled runs the automatic cycle for the legacy configuration and
// every registered tenant.
func (h *DispatchHandler) HandleScheduled(c *gin.Context) {
	ctx := c.Request.Context()

	if !h.authorized(c) {
		slog.WarnContext(ctx, "unauthorized scheduled trigger",
			slog.String("client_ip", c.ClientIP()),
		)
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	now, ok := h.resolveNow(c, c.Query("now"))
	if !ok {
		return
	}

	outcomes, err := h.scheduled.Run(ctx, now)

	resp := scheduledResponse{OK: err == nil, Runs: make([]dispatchResponse, 0, len(outcomes))}
	for _, outcome := range outcomes {
		resp.Runs = append(resp.Runs, newDispatchResponse(outcome, 0))
	}

	if err != nil {
		slog.ErrorContext(ctx, "scheduled dispatch finished with failures",
			slog.Int("completed_runs", len(outcomes)),
			slog.String("error", err.Error()),
		)
		resp.Error = err.Error()
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *DispatchHandler) authorized(c *gin.Context) bool {
	if h.cfg.SchedulerToken == "" {
		return true
	}
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.SchedulerToken)) == 1
}

// resolveNow parses an optional RFC3339 virtual time. It writes a 403 when
// virtual time is not permitted for the caller and a 400 when the value is
// malformed, returning false in both cases.
func (h *DispatchHandler) resolveNow(c *gin.Context, raw string) (time.Time, bool) {
	if raw == "" {
		return h.now(), true
	}
	if !h.cfg.AllowVirtualNow || !h.authorized(c) {
		slog.WarnContext(c.Request.Context(), "virtual time rejected",
			slog.String("client_ip", c.ClientIP()),
		)
		respondError(c, http.StatusForbidden, "virtual time is not allowed")
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid now, expected RFC3339")
		return time.Time{}, false
	}
	slog.InfoContext(c.Request.Context(), "using virtual time",
		slog.Time("virtual_now", parsed),
	)
	return parsed, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
