package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/namecoder1/calensync-bot/internal/config"
	"github.com/namecoder1/calensync-bot/internal/domain"
	"github.com/namecoder1/calensync-bot/internal/handler"
	"github.com/namecoder1/calensync-bot/internal/health"
	"github.com/namecoder1/calensync-bot/internal/observability/logging"
	"github.com/namecoder1/calensync-bot/internal/observability/metrics"
	"github.com/namecoder1/calensync-bot/internal/observability/middleware"
	"github.com/namecoder1/calensync-bot/internal/scheduler"
)

// Version is set via ldflags at build time
var Version = "dev"

const (
	shutdownTimeout = 10 * time.Second
	module          = logging.Module("reminder-dispatch")
)

type options struct {
	once      bool
	scheduled bool
	tenant    string
	mode      string
	now       string
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts options
	flags := pflag.NewFlagSet("calensync-bot", pflag.ContinueOnError)
	flags.BoolVar(&opts.once, "once", false, "run a single dispatch cycle, print the outcome and exit")
	flags.BoolVar(&opts.scheduled, "scheduled", false, "with --once, run the scheduled cycle over legacy and every tenant")
	flags.StringVar(&opts.tenant, "tenant", "", "tenant id; empty means the legacy configuration")
	flags.StringVar(&opts.mode, "mode", "", "dispatch mode: auto or manual (default manual with --tenant, auto otherwise)")
	flags.StringVar(&opts.now, "now", "", "virtual current time in RFC3339")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		return 1
	}

	if err := config.ValidateForRun(cfg); err != nil {
		slog.Error("configuration validation error", slog.String("error", err.Error()))
		return 1
	}

	obs, err := initObservability(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize observability", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Warn("observability shutdown error", slog.String("error", err.Error()))
		}
	}()

	slog.SetDefault(obs.Logger())
	ctx = logging.WithModule(ctx, module)

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("failed to release resources", slog.String("error", err.Error()))
		}
	}()

	if opts.once {
		return runOnce(ctx, a, opts)
	}

	return serve(ctx, cancel, cfg, a)
}

func runOnce(ctx context.Context, a *app, opts options) int {
	now := time.Now()
	if opts.now != "" {
		parsed, err := time.Parse(time.RFC3339, opts.now)
		if err != nil {
			slog.Error("invalid --now, expected RFC3339", slog.String("now", opts.now))
			return 2
		}
		now = parsed
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if opts.scheduled {
		outcomes, err := a.scheduled.Run(ctx, now)
		if encErr := enc.Encode(outcomes); encErr != nil {
			slog.Error("failed to write outcome", slog.String("error", encErr.Error()))
		}
		if err != nil {
			slog.Error("scheduled dispatch finished with failures", slog.String("error", err.Error()))
			return 1
		}
		return 0
	}

	dispatchOpts, err := cliDispatchOptions(opts)
	if err != nil {
		slog.Error("invalid flags", slog.String("error", err.Error()))
		return 2
	}

	outcome, err := a.dispatcher.Dispatch(ctx, now, dispatchOpts)
	if err != nil {
		slog.Error("dispatch failed", slog.String("error", err.Error()))
		return 1
	}

	if err := enc.Encode(outcome); err != nil {
		slog.Error("failed to write outcome", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func cliDispatchOptions(opts options) (domain.DispatchOptions, error) {
	mode := domain.ModeAuto
	if opts.tenant != "" {
		mode = domain.ModeManual
	}
	if opts.mode != "" {
		parsed, err := domain.ParseMode(opts.mode)
		if err != nil {
			return domain.DispatchOptions{}, err
		}
		mode = parsed
	}
	return domain.DispatchOptions{Mode: mode, TenantID: opts.tenant}, nil
}

func serve(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, a *app) int {
	httpMetrics, err := metrics.NewHTTPMetrics()
	if err != nil {
		slog.Error("failed to initialize HTTP metrics", slog.String("error", err.Error()))
		return 1
	}

	dispatchHandler := handler.NewDispatchHandler(a.dispatcher, a.scheduled, handler.DispatchHandlerConfig{
		SchedulerToken:   cfg.Schedule.Token,
		ManualErrorLimit: cfg.Dispatch.ManualErrorLimit,
		AllowVirtualNow:  cfg.Dispatch.AllowVirtualNow,
	})
	mappingHandler := handler.NewMappingHandler(a.mappings)

	r := gin.New()
	r.Use(middleware.Gin(middleware.GinConfig{
		SkipPaths:   []string{"/health", "/health/live", "/health/ready"},
		Module:      module,
		TracerName:  "github.com/namecoder1/calensync-bot/internal/observability/middleware",
		HTTPMetrics: httpMetrics,
	}))
	r.Use(middleware.PanicRecoveryGin())

	healthChecker := health.NewChecker(Version, health.RedisProbe(a.redis))
	r.GET("/health/live", healthChecker.LiveHandler())
	r.GET("/health/ready", healthChecker.ReadyHandler())
	r.GET("/health", healthChecker.ReadyHandler())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/reminders/dispatch", dispatchHandler.HandleDispatch)
		v1.POST("/reminders/dispatch", dispatchHandler.HandleDispatch)
		v1.POST("/reminders/scheduled", dispatchHandler.HandleScheduled)
		v1.GET("/tenants/:tenant/mappings", mappingHandler.HandleGetMappings)
		v1.PUT("/tenants/:tenant/mappings", mappingHandler.HandleReplaceMappings)
	}

	var cron *scheduler.Scheduler
	if cfg.Schedule.Enabled() {
		cron, err = scheduler.New(cfg.Schedule.Cron, cfg.Location, a.scheduled, cfg.Schedule.Timeout)
		if err != nil {
			slog.Error("failed to initialize scheduler", slog.String("error", err.Error()))
			return 1
		}
		cron.Start(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Port),
			slog.String("calendar_source", string(cfg.Calendar.Source)),
			slog.String("timezone", cfg.Location.String()),
			slog.Bool("scheduler_enabled", cron != nil),
			slog.Int("concurrency", cfg.Dispatch.Concurrency),
		)
		serverErr <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if cron != nil {
			if err := cron.Stop(shutdownCtx); err != nil {
				slog.Warn("scheduler did not stop in time", slog.String("error", err.Error()))
			}
		}
		cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown server", slog.String("error", err.Error()))
			return 1
		}

		slog.Info("server exited properly")
		return 0

	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return 0
		}
		slog.Error("server exited with error", slog.String("error", err.Error()))
		return 1
	}
}
