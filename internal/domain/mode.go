package domain

import (
	"fmt"
	"time"
)

// Mode selects the due window used by a dispatch.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

func (m Mode) String() string {
	return string(m)
}

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeManual:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Window is an inclusive time range.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

type DispatchOptions struct {
	Mode Mode
	// TenantID selects per-tenant credentials and mappings. Empty means the
	// legacy single-tenant configuration.
	TenantID string
	// RunID is generated when empty.
	RunID string
}

func (o DispatchOptions) HasTenant() bool {
	return o.TenantID != ""
}
