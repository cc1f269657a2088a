package fleet

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/taskfleet/deployer-backend/internal/logger"
	"github.com/taskfleet/deployer-backend/pkg/domain/entities"

	"go.uber.org/zap"
)

// Reference defaults for health probing: 10 attempts, 30 seconds apart.
const (
	DefaultMaxProbeAttempts = 10
	DefaultProbeSpacing     = 30 * time.Second
)

// HealthVerifier probes the fleet's public entry point after a rollout.
// A passing probe proves some healthy instance answers behind the entry
// point, not that every instance runs the new version.
type HealthVerifier struct {
	client *http.Client
}

func NewHealthVerifier(client *http.Client) *HealthVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HealthVerifier{client: client}
}

// Verify issues up to maxAttempts probes, spaced apart, against the
// endpoint. It returns true on the first success and false after
// maxAttempts consecutive failures; it never raises.
func (v *HealthVerifier) Verify(ctx context.Context, endpoint string, maxAttempts int, spacing time.Duration) bool {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxProbeAttempts
	}
	if spacing < 0 {
		spacing = DefaultProbeSpacing
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result := v.probe(ctx, endpoint)
		if result.Healthy {
			logger.Info("health probe succeeded",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt))
			return true
		}
		logger.Warn("health probe failed",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts))
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(spacing):
		}
	}
	return false
}

func (v *HealthVerifier) probe(ctx context.Context, endpoint string) entities.HealthProbeResult {
	result := entities.HealthProbeResult{Timestamp: time.Now()}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return result
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return result
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	result.Healthy = resp.StatusCode >= 200 && resp.StatusCode < 300
	return result
}
