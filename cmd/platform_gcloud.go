//go:build gcloud

package main

import (
	"context"
	"os"

	"github.com/namecoder1/calensync-bot/internal/config"
	"github.com/namecoder1/calensync-bot/internal/observability"
	"github.com/namecoder1/calensync-bot/internal/observability/logging"
)

func initObservability(ctx context.Context, cfg *config.Config) (*observability.Resources, error) {
	serviceName := os.Getenv("K_SERVICE")
	if serviceName == "" {
		serviceName = "calensync-bot"
	}

	env := logging.EnvProd
	if e := os.Getenv("ENV"); e != "" {
		env = logging.Environment(e)
	}

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = os.Getenv("GCLOUD_PROJECT_ID")
	}

	return observability.Init(ctx, observability.Config{
		ServiceInfo: logging.ServiceInfo{
			Name:     serviceName,
			Version:  Version,
			Revision: os.Getenv("K_REVISION"),
		},
		Environment:   env,
		LogLevel:      cfg.LogLevel,
		GCPProjectID:  projectID,
		SamplingRate:  0.1,
		DefaultModule: module,
	})
}
