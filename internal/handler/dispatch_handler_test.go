package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

type fakeDispatcher struct {
	calls   []domain.DispatchOptions
	nows    []time.Time
	outcome *domain.DispatchOutcome
	err     error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, now time.Time, opts domain.DispatchOptions) (*domain.DispatchOutcome, error) {
	f.calls = append(f.calls, opts)
	f.nows = append(f.nows, now)
	if f.err != nil {
		return nil, f.err
	}
	out := *f.outcome
	out.Mode = opts.Mode
	out.TenantID = opts.TenantID
	return &out, nil
}

type fakeScheduled struct {
	calls    int
	outcomes []*domain.DispatchOutcome
	err      error
}

func (f *fakeScheduled) Run(_ context.Context, _ time.Time) ([]*domain.DispatchOutcome, error) {
	f.calls++
	return f.outcomes, f.err
}

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newDispatchRouter(d *fakeDispatcher, s *fakeScheduled, cfg DispatchHandlerConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewDispatchHandler(d, s, cfg)
	h.now = func() time.Time { return fixedNow }

	r := gin.New()
	r.POST("/api/v1/reminders/dispatch", h.HandleDispatch)
	r.GET("/api/v1/reminders/dispatch", h.HandleDispatch)
	r.POST("/api/v1/reminders/scheduled", h.HandleScheduled)
	return r
}

func manyErrors(n int) []domain.ItemError {
	out := make([]domain.ItemError, n)
	for i := range out {
		out[i] = domain.ItemError{Key: fmt.Sprintf("k%d", i), Message: "boom"}
	}
	return out
}

func TestHandleDispatch_ModeSelection(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		header     string
		body       string
		wantMode   domain.Mode
		wantTenant string
		wantErrors int
	}{
		{name: "no tenant is auto", method: http.MethodPost, target: "/api/v1/reminders/dispatch", wantMode: domain.ModeAuto, wantErrors: 12},
		{name: "tenant header is manual", method: http.MethodPost, target: "/api/v1/reminders/dispatch", header: "t1", wantMode: domain.ModeManual, wantTenant: "t1", wantErrors: 10},
		{name: "tenant query is manual", method: http.MethodGet, target: "/api/v1/reminders/dispatch?tenant_id=t2", wantMode: domain.ModeManual, wantTenant: "t2", wantErrors: 10},
		{name: "tenant body is manual", method: http.MethodPost, target: "/api/v1/reminders/dispatch", body: `{"tenant_id":"t3"}`, wantMode: domain.ModeManual, wantTenant: "t3", wantErrors: 10},
		{name: "header wins over body", method: http.MethodPost, target: "/api/v1/reminders/dispatch", header: "t1", body: `{"tenant_id":"t3"}`, wantMode: domain.ModeManual, wantTenant: "t1", wantErrors: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{outcome: &domain.DispatchOutcome{RunID: "run", Sent: 1, TotalDue: 13, Errors: manyErrors(12)}}
			r := newDispatchRouter(d, &fakeScheduled{}, DispatchHandlerConfig{ManualErrorLimit: 10})

			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tt.header != "" {
				req.Header.Set(tenantHeader, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status: got %d, want %d (%s)", w.Code, http.StatusOK, w.Body.String())
			}
			if len(d.calls) != 1 {
				t.Fatalf("dispatch calls: got %d, want 1", len(d.calls))
			}
			if d.calls[0].Mode != tt.wantMode {
				t.Errorf("mode: got %s, want %s", d.calls[0].Mode, tt.wantMode)
			}
			if d.calls[0].TenantID != tt.wantTenant {
				t.Errorf("tenant: got %q, want %q", d.calls[0].TenantID, tt.wantTenant)
			}
			if !d.nows[0].Equal(fixedNow) {
				t.Errorf("now: got %v, want %v", d.nows[0], fixedNow)
			}

			var resp dispatchResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !resp.OK || resp.Sent != 1 || resp.TotalDue != 13 {
				t.Errorf("response: got %+v", resp)
			}
			if len(resp.Errors) != tt.wantErrors {
				t.Errorf("errors: got %d, want %d", len(resp.Errors), tt.wantErrors)
			}
		})
	}
}

func TestHandleDispatch_VirtualNow(t *testing.T) {
	d := &fakeDispatcher{outcome: &domain.DispatchOutcome{RunID: "run"}}
	r := newDispatchRouter(d, &fakeScheduled{}, DispatchHandlerConfig{AllowVirtualNow: true})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reminders/dispatch?now=2025-03-10T06:30:00%2B01:00", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	want := time.Date(2025, 3, 10, 5, 30, 0, 0, time.UTC)
	if !d.nows[0].Equal(want) {
		t.Errorf("now: got %v, want %v", d.nows[0], want)
	}

	var resp dispatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Errors == nil {
		t.Error("errors should be an empty list, got null")
	}
}

func TestHandleDispatch_VirtualNowAccess(t *testing.T) {
	tests := []struct {
		name       string
		cfg        DispatchHandlerConfig
		auth       string
		wantStatus int
		wantNow    time.Time
	}{
		{
			name:       "disabled",
			cfg:        DispatchHandlerConfig{},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "disabled even with token",
			cfg:        DispatchHandlerConfig{SchedulerToken: "s3cret"},
			auth:       "Bearer s3cret",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "enabled without token",
			cfg:        DispatchHandlerConfig{AllowVirtualNow: true},
			wantStatus: http.StatusOK,
			wantNow:    time.Date(2024, 12, 24, 18, 0, 0, 0, time.UTC),
		},
		{
			name:       "enabled with matching token",
			cfg:        DispatchHandlerConfig{AllowVirtualNow: true, SchedulerToken: "s3cret"},
			auth:       "Bearer s3cret",
			wantStatus: http.StatusOK,
			wantNow:    time.Date(2024, 12, 24, 18, 0, 0, 0, time.UTC),
		},
		{
			name:       "enabled with missing token",
			cfg:        DispatchHandlerConfig{AllowVirtualNow: true, SchedulerToken: "s3cret"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "enabled with wrong token",
			cfg:        DispatchHandlerConfig{AllowVirtualNow: true, SchedulerToken: "s3cret"},
			auth:       "Bearer nope",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{outcome: &domain.DispatchOutcome{RunID: "run"}}
			r := newDispatchRouter(d, &fakeScheduled{}, tt.cfg)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/reminders/dispatch?now=2024-12-24T18:00:00Z", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				if len(d.calls) != 0 {
					t.Errorf("dispatcher calls: got %d, want 0", len(d.calls))
				}
				return
			}
			if len(d.nows) != 1 || !d.nows[0].Equal(tt.wantNow) {
				t.Errorf("now: got %v, want %v", d.nows, tt.wantNow)
			}
		})
	}
}

func TestHandleDispatch_WithoutNowIgnoresVirtualTimeSetting(t *testing.T) {
	d := &fakeDispatcher{outcome: &domain.DispatchOutcome{RunID: "run"}}
	r := newDispatchRouter(d, &fakeScheduled{}, DispatchHandlerConfig{SchedulerToken: "s3cret"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reminders/dispatch", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	if !d.nows[0].Equal(fixedNow) {
		t.Errorf("now: got %v, want %v", d.nows[0], fixedNow)
	}
}

func TestHandleDispatch_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
	}{
		{name: "invalid now", target: "/api/v1/reminders/dispatch?now=yesterday"},
		{name: "invalid body", target: "/api/v1/reminders/dispatch", body: `{"tenant_id":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{outcome: &domain.DispatchOutcome{}}
			r := newDispatchRouter(d, &fakeScheduled{}, DispatchHandlerConfig{AllowVirtualNow: true})

			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d", w.Code, http.StatusBadRequest)
			}
			if len(d.calls) != 0 {
				t.Errorf("dispatch calls: got %d, want 0", len(d.calls))
			}
		})
	}
}

func TestHandleDispatch_FatalError(t *testing.T) {
	d := &fakeDispatcher{err: fmt.Errorf("%w: token expired", domain.ErrCalendarFetch)}
	r := newDispatchRouter(d, &fakeScheduled{}, DispatchHandlerConfig{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reminders/dispatch", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.OK {
		t.Error("ok: got true, want false")
	}
	if !strings.Contains(resp.Error, "token expired") {
		t.Errorf("error: got %q", resp.Error)
	}
}

func TestHandleScheduled(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		authHeader string
		runErr     error
		wantStatus int
		wantCalls  int
	}{
		{name: "no token configured", wantStatus: http.StatusOK, wantCalls: 1},
		{name: "valid bearer", token: "s3cret", authHeader: "Bearer s3cret", wantStatus: http.StatusOK, wantCalls: 1},
		{name: "wrong bearer", token: "s3cret", authHeader: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "missing bearer", token: "s3cret", wantStatus: http.StatusUnauthorized},
		{name: "partial failure", runErr: errors.New("t2: boom"), wantStatus: http.StatusInternalServerError, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeScheduled{
				outcomes: []*domain.DispatchOutcome{
					{RunID: "a", Mode: domain.ModeAuto, Sent: 2, TotalDue: 2},
					{RunID: "b", Mode: domain.ModeAuto, TenantID: "t1", Skipped: 1, TotalDue: 1},
				},
				err: tt.runErr,
			}
			r := newDispatchRouter(&fakeDispatcher{}, s, DispatchHandlerConfig{SchedulerToken: tt.token})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/reminders/scheduled", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", w.Code, tt.wantStatus)
			}
			if s.calls != tt.wantCalls {
				t.Errorf("run calls: got %d, want %d", s.calls, tt.wantCalls)
			}
			if tt.wantCalls == 0 {
				return
			}

			var resp scheduledResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(resp.Runs) != 2 {
				t.Errorf("runs: got %d, want 2", len(resp.Runs))
			}
			if resp.OK != (tt.runErr == nil) {
				t.Errorf("ok: got %v, want %v", resp.OK, tt.runErr == nil)
			}
		})
	}
}
