package logging

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type Environment string

const (
	EnvDev     Environment = "dev"
	EnvStaging Environment = "staging"
	EnvProd    Environment = "prod"
)

// Module names the component a log line comes from.
type Module string

type ServiceInfo struct {
	Name     string
	Version  string
	Revision string
}

type Config struct {
	Service       ServiceInfo
	Environment   Environment
	Level         slog.Level
	GCPProjectID  string
	DefaultModule Module
}

type moduleKey struct{}

// WithModule overrides the module attribute for logs written with ctx.
func WithModule(ctx context.Context, module Module) context.Context {
	return context.WithValue(ctx, moduleKey{}, module)
}

func moduleFrom(ctx context.Context, fallback Module) Module {
	if ctx != nil {
		if m, ok := ctx.Value(moduleKey{}).(Module); ok && m != "" {
			return m
		}
	}
	return fallback
}

// NewLogger builds the process logger: JSON output (text in dev) carrying
// service attributes, the module and the active trace and span ids.
func NewLogger(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var base slog.Handler
	if cfg.Environment == EnvDev {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	service := []slog.Attr{slog.String("name", cfg.Service.Name)}
	if cfg.Service.Version != "" {
		service = append(service, slog.String("version", cfg.Service.Version))
	}
	if cfg.Service.Revision != "" {
		service = append(service, slog.String("revision", cfg.Service.Revision))
	}

	base = base.WithAttrs([]slog.Attr{
		slog.Any("service", slog.GroupValue(service...)),
		slog.String("env", string(cfg.Environment)),
	})

	return slog.New(&contextHandler{
		next:          base,
		projectID:     cfg.GCPProjectID,
		defaultModule: cfg.DefaultModule,
	})
}

type contextHandler struct {
	next          slog.Handler
	projectID     string
	defaultModule Module
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if module := moduleFrom(ctx, h.defaultModule); module != "" {
		r.AddAttrs(slog.String("module", string(module)))
	}

	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			r.AddAttrs(
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
			r.AddAttrs(gcpTraceAttrs(ctx, h.projectID)...)
		}
	}

	return h.next.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), projectID: h.projectID, defaultModule: h.defaultModule}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), projectID: h.projectID, defaultModule: h.defaultModule}
}
