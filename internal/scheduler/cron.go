package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

// Runner is the periodic dispatch over every configured target.
type Runner interface {
	Run(ctx context.Context, now time.Time) ([]*domain.DispatchOutcome, error)
}

// Scheduler triggers Runner on a cron expression evaluated in a fixed
// timezone. Overlapping ticks are skipped while a previous run is still going.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	runner  Runner
	timeout time.Duration
	now     func() time.Time
	ctx     context.Context
}

func New(spec string, loc *time.Location, runner Runner, timeout time.Duration) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}

	logger := slogLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		runner:  runner,
		timeout: timeout,
		now:     time.Now,
		ctx:     context.Background(),
	}

	entry, err := s.cron.AddFunc(spec, func() { s.tick(s.ctx) })
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.entry = entry

	return s, nil
}

// Start begins scheduling. Runs inherit ctx; cancelling it interrupts
// calendar fetches and sends, while markers of attempted sends are still
// confirmed or released.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()

	slog.InfoContext(ctx, "scheduler started",
		slog.Time("next_run", s.Next()),
	)
}

// Stop halts scheduling and waits for a running dispatch to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.now()
	outcomes, err := s.runner.Run(ctx, start)

	sent, skipped := 0, 0
	for _, o := range outcomes {
		sent += o.Sent
		skipped += o.Skipped
	}

	if err != nil {
		slog.ErrorContext(ctx, "scheduled dispatch finished with failures",
			slog.Int("runs", len(outcomes)),
			slog.Int("sent", sent),
			slog.String("error", err.Error()),
		)
		return
	}

	slog.InfoContext(ctx, "scheduled dispatch completed",
		slog.Int("runs", len(outcomes)),
		slog.Int("sent", sent),
		slog.Int("skipped", skipped),
		slog.Duration("elapsed", time.Since(start)),
	)
}

type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{slog.String("error", err.Error())}, keysAndValues...)...)
}
