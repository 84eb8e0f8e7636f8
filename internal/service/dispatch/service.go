package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/namecoder1/calensync-bot/internal/domain"
	"github.com/namecoder1/calensync-bot/internal/observability/metrics"
	"github.com/namecoder1/calensync-bot/internal/observability/tracing"
	"github.com/namecoder1/calensync-bot/internal/service/compose"
	"github.com/namecoder1/calensync-bot/internal/service/expand"
	"github.com/namecoder1/calensync-bot/internal/service/gate"
	"github.com/namecoder1/calensync-bot/internal/service/routing"
	"github.com/namecoder1/calensync-bot/internal/service/window"
)

const (
	DefaultConcurrency = 4

	settleTimeout = 5 * time.Second
)

type Config struct {
	Location    *time.Location
	Policy      window.Policy
	Concurrency int
}

type Service struct {
	source      domain.CalendarSource
	routes      *routing.Factory
	gate        *gate.Gate
	composer    *compose.Composer
	notifier    domain.Notifier
	recorder    domain.ReminderLogRecorder
	metrics     *metrics.DispatchMetrics
	loc         *time.Location
	policy      window.Policy
	concurrency int
}

// NewService wires the orchestrator. recorder and dispatchMetrics may be nil.
func NewService(
	source domain.CalendarSource,
	routes *routing.Factory,
	g *gate.Gate,
	composer *compose.Composer,
	notifier domain.Notifier,
	recorder domain.ReminderLogRecorder,
	dispatchMetrics *metrics.DispatchMetrics,
	cfg Config,
) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		source:      source,
		routes:      routes,
		gate:        g,
		composer:    composer,
		notifier:    notifier,
		recorder:    recorder,
		metrics:     dispatchMetrics,
		loc:         loc,
		policy:      cfg.Policy,
		concurrency: concurrency,
	}
}

// Dispatch runs one cycle: fetch, expand, filter by window, route, then
// deliver each pair at most once. Failing to fetch events or mappings aborts
// the cycle; every other failure is confined to its pair.
func (s *Service) Dispatch(ctx context.Context, now time.Time, opts domain.DispatchOptions) (*domain.DispatchOutcome, error) {
	started := time.Now()

	if opts.Mode == "" {
		opts.Mode = domain.ModeAuto
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	ctx, span := tracing.StartDispatchSpan(ctx, opts.RunID, opts.Mode.String(), opts.TenantID)
	defer span.End()

	win := s.policy.Compute(now.In(s.loc), opts.Mode)
	tracing.RecordWindow(span, win.From, win.To)

	logger := slog.With(
		slog.String("run_id", opts.RunID),
		slog.String("mode", opts.Mode.String()),
		slog.String("tenant_id", opts.TenantID),
	)

	logger.DebugContext(ctx, "dispatch window computed",
		slog.Time("from", win.From),
		slog.Time("to", win.To),
	)

	events, err := s.source.FetchEvents(ctx, opts.TenantID, now)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrCalendarFetch, err)
		return nil, s.abort(ctx, span, logger, opts, started, err)
	}

	resolver, err := s.routes.ForTenant(ctx, opts.TenantID)
	if err != nil {
		return nil, s.abort(ctx, span, logger, opts, started, err)
	}

	due := expand.FilterDue(expand.Expand(events), win)
	expand.SortCandidates(due)

	items, unrouted := buildItems(due, resolver)
	if s.metrics != nil {
		s.metrics.RecordUnrouted(ctx, opts.Mode.String(), unrouted)
	}

	logger.InfoContext(ctx, "due reminders resolved",
		slog.Int("event_count", len(events)),
		slog.Int("due_count", len(due)),
		slog.Int("unrouted_count", unrouted),
		slog.Int("pair_count", len(items)),
	)

	results := make([]domain.ItemResult, len(items))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i] = s.processItem(ctx, logger, opts, item)
			return nil
		})
	}
	_ = g.Wait()

	outcome := &domain.DispatchOutcome{
		RunID:    opts.RunID,
		Mode:     opts.Mode,
		TenantID: opts.TenantID,
		Window:   win,
		TotalDue: len(items),
		Items:    results,
	}
	for _, r := range results {
		switch r.Status {
		case domain.ItemStatusSent:
			outcome.Sent++
		case domain.ItemStatusSkipped:
			outcome.Skipped++
		case domain.ItemStatusFailed:
			outcome.Errors = append(outcome.Errors, domain.ItemError{Key: r.Key, Message: r.Error})
		}
	}

	s.recordLogs(ctx, logger, opts, items, results)

	if s.metrics != nil {
		s.metrics.RecordRun(ctx, opts.Mode.String(), "completed", time.Since(started), outcome.TotalDue)
	}
	tracing.RecordDispatchResult(span, outcome.Sent, outcome.Skipped, outcome.TotalDue, len(outcome.Errors), nil)

	attrs := []any{
		slog.Int("sent", outcome.Sent),
		slog.Int("skipped", outcome.Skipped),
		slog.Int("total_due", outcome.TotalDue),
		slog.Int("error_count", len(outcome.Errors)),
		slog.Duration("elapsed", time.Since(started)),
	}
	if len(outcome.Errors) > 0 {
		logger.WarnContext(ctx, "dispatch completed with errors", attrs...)
	} else {
		logger.InfoContext(ctx, "dispatch completed", attrs...)
	}

	return outcome, nil
}

func (s *Service) abort(ctx context.Context, span trace.Span, logger *slog.Logger, opts domain.DispatchOptions, started time.Time, err error) error {
	logger.ErrorContext(ctx, "dispatch aborted",
		slog.String("error", err.Error()),
	)
	if s.metrics != nil {
		s.metrics.RecordRun(ctx, opts.Mode.String(), "aborted", time.Since(started), 0)
	}
	tracing.RecordDispatchResult(span, 0, 0, 0, 0, err)
	return err
}

func buildItems(due []domain.Candidate, resolver routing.Resolver) ([]domain.DispatchItem, int) {
	var items []domain.DispatchItem
	unrouted := 0
	for _, c := range due {
		dests := resolver.Resolve(c)
		if len(dests) == 0 {
			unrouted++
			continue
		}
		for _, d := range dests {
			items = append(items, domain.DispatchItem{Candidate: c, Destination: d})
		}
	}
	return items, unrouted
}

func (s *Service) processItem(ctx context.Context, logger *slog.Logger, opts domain.DispatchOptions, item domain.DispatchItem) domain.ItemResult {
	key := item.DedupeKey()
	result := domain.ItemResult{
		Key:     key,
		EventID: item.Candidate.Event.ID,
		Minutes: item.Candidate.Minutes,
		FireAt:  item.Candidate.FireAt,
		Dest:    item.Destination,
	}

	ctx, span := tracing.StartItemSpan(ctx, key, item.Destination.ChatID)
	defer span.End()

	defer func() {
		if s.metrics != nil {
			s.metrics.RecordItem(ctx, opts.Mode.String(), string(result.Status))
		}
	}()

	admitted, err := s.gate.TryAdmit(ctx, key)
	if err != nil {
		logger.ErrorContext(ctx, "idempotency check failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		result.Status = domain.ItemStatusFailed
		result.Error = err.Error()
		tracing.RecordItemResult(span, string(result.Status), err)
		return result
	}
	if !admitted {
		logger.DebugContext(ctx, "skipping already delivered reminder",
			slog.String("key", key),
		)
		result.Status = domain.ItemStatusSkipped
		tracing.RecordItemResult(span, string(result.Status), nil)
		return result
	}

	text := s.composer.Compose(item.Candidate.Event, item.Candidate.Minutes)

	sendStarted := time.Now()
	sent, err := s.notifier.Send(ctx, item.Destination.ChatID, text, domain.SendOptions{
		SubThreadID: item.Destination.SubThreadID,
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSendDuration(ctx, "failed", time.Since(sendStarted))
		}
		logger.ErrorContext(ctx, "failed to send reminder",
			slog.String("key", key),
			slog.String("chat_id", item.Destination.ChatID),
			slog.String("error", err.Error()),
		)
		settleCtx, cancel := settleContext(ctx)
		relErr := s.gate.Release(settleCtx, key)
		cancel()
		if relErr != nil {
			logger.WarnContext(ctx, "failed to release idempotency lock",
				slog.String("key", key),
				slog.String("error", relErr.Error()),
			)
		}
		result.Status = domain.ItemStatusFailed
		result.Error = err.Error()
		tracing.RecordItemResult(span, string(result.Status), err)
		return result
	}
	if s.metrics != nil {
		s.metrics.RecordSendDuration(ctx, "sent", time.Since(sendStarted))
	}

	settleCtx, cancel := settleContext(ctx)
	confErr := s.gate.Confirm(settleCtx, key)
	cancel()
	if confErr != nil {
		logger.WarnContext(ctx, "failed to confirm delivery, lock remains until expiry",
			slog.String("key", key),
			slog.String("error", confErr.Error()),
		)
	}

	result.Status = domain.ItemStatusSent
	if sent != nil {
		result.MessageID = sent.MessageID
	}

	logger.DebugContext(ctx, "reminder sent",
		slog.String("key", key),
		slog.String("destination", item.Destination.String()),
		slog.Int64("message_id", result.MessageID),
	)
	tracing.RecordItemResult(span, string(result.Status), nil)

	return result
}

// settleContext detaches confirm and release from the caller's cancellation:
// an attempted send always settles its marker.
func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

func (s *Service) recordLogs(ctx context.Context, logger *slog.Logger, opts domain.DispatchOptions, items []domain.DispatchItem, results []domain.ItemResult) {
	if s.recorder == nil || len(results) == 0 {
		return
	}

	recordedAt := time.Now().UTC()
	records := make([]domain.ReminderLogRecord, 0, len(results))
	for i, r := range results {
		ev := items[i].Candidate.Event
		records = append(records, domain.ReminderLogRecord{
			RunID:       opts.RunID,
			TenantID:    opts.TenantID,
			Mode:        opts.Mode,
			EventID:     ev.ID,
			EventTitle:  ev.Title,
			CalendarID:  ev.SourceCalendarID,
			EventStart:  ev.StartAt,
			Minutes:     r.Minutes,
			FireAt:      r.FireAt,
			ChatID:      r.Dest.ChatID,
			SubThreadID: r.Dest.SubThreadID,
			MessageID:   r.MessageID,
			Status:      r.Status,
			Error:       r.Error,
			RecordedAt:  recordedAt,
		})
	}

	if err := s.recorder.RecordReminders(ctx, records); err != nil {
		logger.WarnContext(ctx, "failed to record reminder logs",
			slog.Int("record_count", len(records)),
			slog.String("error", err.Error()),
		)
	}
}
