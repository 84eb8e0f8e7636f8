package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Status represents the health status of a service or dependency.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

const checkTimeout = 5 * time.Second

// CheckResult represents the health check result for a single dependency.
type CheckResult struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HealthStatus represents the overall health status of the service.
type HealthStatus struct {
	Status  Status                 `json:"status"`
	Version string                 `json:"version,omitempty"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// Probe checks one dependency.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// RedisProbe pings the shared store backing the idempotency gate.
func RedisProbe(client *redis.Client) Probe {
	return Probe{
		Name: "redis",
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

// Checker performs health checks on service dependencies.
type Checker struct {
	probes  []Probe
	version string
}

// NewChecker creates a new health checker with the given probes.
func NewChecker(version string, probes ...Probe) *Checker {
	return &Checker{
		probes:  probes,
		version: version,
	}
}

// Check runs every probe concurrently and returns the overall status.
func (c *Checker) Check(ctx context.Context) *HealthStatus {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	status := &HealthStatus{
		Status:  StatusHealthy,
		Version: c.version,
		Checks:  make(map[string]CheckResult, len(c.probes)),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range c.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()

			start := time.Now()
			err := p.Check(checkCtx)

			result := CheckResult{Status: StatusHealthy, LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				result = CheckResult{Status: StatusUnhealthy, Error: err.Error()}
			}

			mu.Lock()
			defer mu.Unlock()
			status.Checks[p.Name] = result
			if err != nil {
				status.Status = StatusUnhealthy
			}
		}()
	}
	wg.Wait()

	return status
}

// LiveHandler returns a Gin handler for liveness probes.
func (c *Checker) LiveHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// ReadyHandler returns a Gin handler for readiness probes.
func (c *Checker) ReadyHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := c.Check(ctx.Request.Context())

		httpStatus := http.StatusOK
		if status.Status != StatusHealthy {
			httpStatus = http.StatusServiceUnavailable
		}

		ctx.JSON(httpStatus, status)
	}
}
