package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

// TenantLister enumerates tenants that have routing configured.
type TenantLister interface {
	ListTenants(ctx context.Context) ([]string, error)
}

// Dispatcher is the single-cycle entry point shared by HTTP, cron and CLI.
type Dispatcher interface {
	Dispatch(ctx context.Context, now time.Time, opts domain.DispatchOptions) (*domain.DispatchOutcome, error)
}

// ScheduledRunner performs the periodic automatic run: the legacy
// configuration when it has a destination chat, then every registered tenant.
type ScheduledRunner struct {
	dispatcher Dispatcher
	tenants    TenantLister
	legacy     bool
}

func NewScheduledRunner(dispatcher Dispatcher, tenants TenantLister, legacyEnabled bool) *ScheduledRunner {
	return &ScheduledRunner{
		dispatcher: dispatcher,
		tenants:    tenants,
		legacy:     legacyEnabled,
	}
}

// Run dispatches in auto mode for each target. A failing target does not stop
// the others; their errors are joined in the returned error.
func (r *ScheduledRunner) Run(ctx context.Context, now time.Time) ([]*domain.DispatchOutcome, error) {
	var targets []string
	var errs []error

	if r.legacy {
		targets = append(targets, "")
	}

	if r.tenants != nil {
		tenantIDs, err := r.tenants.ListTenants(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to list tenants",
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("list tenants: %w", err))
		}
		targets = append(targets, tenantIDs...)
	}

	outcomes := make([]*domain.DispatchOutcome, 0, len(targets))

	for _, tenantID := range targets {
		outcome, err := r.dispatcher.Dispatch(ctx, now, domain.DispatchOptions{
			Mode:     domain.ModeAuto,
			TenantID: tenantID,
		})
		if err != nil {
			label := tenantID
			if label == "" {
				label = "legacy"
			}
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
			continue
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, errors.Join(errs...)
}
