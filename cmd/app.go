package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/namecoder1/calensync-bot/internal/config"
	"github.com/namecoder1/calensync-bot/internal/domain"
	"github.com/namecoder1/calensync-bot/internal/infra/googlecal"
	"github.com/namecoder1/calensync-bot/internal/infra/icsfeed"
	"github.com/namecoder1/calensync-bot/internal/infra/reminderlog"
	"github.com/namecoder1/calensync-bot/internal/infra/repository"
	"github.com/namecoder1/calensync-bot/internal/infra/telegram"
	"github.com/namecoder1/calensync-bot/internal/observability/metrics"
	"github.com/namecoder1/calensync-bot/internal/service/compose"
	"github.com/namecoder1/calensync-bot/internal/service/dispatch"
	"github.com/namecoder1/calensync-bot/internal/service/gate"
	"github.com/namecoder1/calensync-bot/internal/service/routing"
	"github.com/namecoder1/calensync-bot/internal/service/window"
)

// app holds the wired dependencies shared by the server and one-shot modes.
type app struct {
	redis      *redis.Client
	mappings   domain.MappingRepository
	dispatcher *dispatch.Service
	scheduled  *dispatch.ScheduledRunner
	recorder   domain.ReminderLogRecorder
	closers    []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	redisClient, err := newRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.redis = redisClient
	a.closers = append(a.closers, redisClient.Close)

	a.mappings = repository.NewMappingRepository(redisClient)
	idempotency := repository.NewIdempotencyStore(redisClient)

	notifier, err := telegram.NewClient(cfg.Telegram)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	source, err := newCalendarSource(cfg, redisClient, a.mappings)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	recorder, err := reminderlog.NewRecorder(ctx, reminderlog.LoadConfig())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize reminder log recorder: %w", err)
	}
	a.recorder = recorder
	a.closers = append(a.closers, func() error {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := recorder.Flush(flushCtx); err != nil {
			slog.Warn("failed to flush reminder log recorder", slog.String("error", err.Error()))
		}
		return recorder.Close()
	})

	dispatchMetrics, err := metrics.NewDispatchMetrics()
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize dispatch metrics: %w", err)
	}

	a.dispatcher = dispatch.NewService(
		source,
		routing.NewFactory(a.mappings, cfg.Legacy),
		gate.New(idempotency, cfg.Dispatch.Retention),
		compose.New(cfg.Location, cfg.Dispatch.DescriptionLimit),
		notifier,
		recorder,
		dispatchMetrics,
		dispatch.Config{
			Location:    cfg.Location,
			Policy:      window.NewPolicy(cfg.Dispatch),
			Concurrency: cfg.Dispatch.Concurrency,
		},
	)
	a.scheduled = dispatch.NewScheduledRunner(a.dispatcher, a.mappings, cfg.Legacy.Enabled())

	return a, nil
}

func newRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	if err := redisotel.InstrumentTracing(client); err != nil {
		slog.Error("failed to instrument redis tracing",
			slog.String("event", "redis.otel.tracing.fail"),
			slog.String("error", err.Error()),
		)
		_ = client.Close()
		return nil, err
	}

	if err := redisotel.InstrumentMetrics(client); err != nil {
		slog.Error("failed to instrument redis metrics",
			slog.String("event", "redis.otel.metrics.fail"),
			slog.String("error", err.Error()),
		)
		_ = client.Close()
		return nil, err
	}

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect redis",
			slog.String("event", "redis.connect.fail"),
			slog.String("error", err.Error()),
		)
		_ = client.Close()
		return nil, err
	}

	slog.Info("redis connected",
		slog.String("addr", cfg.Addr),
	)

	return client, nil
}

func newCalendarSource(cfg *config.Config, client *redis.Client, mappings domain.MappingRepository) (domain.CalendarSource, error) {
	switch cfg.Calendar.Source {
	case config.CalendarSourceICS:
		slog.Info("calendar source initialized",
			slog.String("type", "ics"),
			slog.Int("feeds", len(cfg.Calendar.ICS.Feeds)),
		)
		return icsfeed.NewSource(cfg.Calendar, cfg.Location), nil
	case config.CalendarSourceGoogle:
		slog.Info("calendar source initialized",
			slog.String("type", "google"),
		)
		return googlecal.NewSource(
			cfg.Calendar,
			repository.NewGlobalCredentialStore(client),
			repository.NewTenantCredentialStore(client),
			mappings,
			cfg.Location,
		), nil
	default:
		return nil, config.ErrUnknownCalendarSource
	}
}
