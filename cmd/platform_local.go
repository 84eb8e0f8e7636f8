//go:build !gcloud

package main

import (
	"context"
	"os"

	"github.com/namecoder1/calensync-bot/internal/config"
	"github.com/namecoder1/calensync-bot/internal/observability"
	"github.com/namecoder1/calensync-bot/internal/observability/logging"
)

func initObservability(ctx context.Context, cfg *config.Config) (*observability.Resources, error) {
	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "calensync-bot"
	}

	env := logging.EnvDev
	if e := os.Getenv("ENV"); e != "" {
		env = logging.Environment(e)
	}

	return observability.Init(ctx, observability.Config{
		ServiceInfo: logging.ServiceInfo{
			Name:    serviceName,
			Version: Version,
		},
		Environment:   env,
		LogLevel:      cfg.LogLevel,
		SamplingRate:  1.0,
		DefaultModule: module,
	})
}
