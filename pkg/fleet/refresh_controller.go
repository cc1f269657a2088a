package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskfleet/deployer-backend/internal/logger"
	"github.com/taskfleet/deployer-backend/pkg/domain/entities"

	"go.uber.org/zap"
)

// Reference defaults for waiting on a refresh.
const (
	DefaultPollInterval  = 30 * time.Second
	DefaultTimeoutBudget = 600 * time.Second
)

// RefreshAPI is the slice of the fleet manager that runs rolling
// replacements.
type RefreshAPI interface {
	ActiveRefresh(ctx context.Context, fleetID string) (*entities.RefreshOperation, error)
	StartRefresh(ctx context.Context, fleetID string, version entities.BootTemplateVersion, policy entities.RolloutPolicy) (entities.RefreshOperation, error)
	DescribeRefresh(ctx context.Context, fleetID string, refreshID string) (entities.RefreshStatus, error)
}

// RefreshController triggers and observes rolling replacements. It never
// forces a status transition; the fleet manager owns them.
type RefreshController struct {
	api RefreshAPI
}

func NewRefreshController(api RefreshAPI) *RefreshController {
	return &RefreshController{api: api}
}

// Start begins a rolling replacement onto the given template version.
// At most one refresh may be active per fleet: a second start fails fast
// with RefreshStartError instead of queueing. The check-then-start has a
// narrow race window; the fleet manager itself rejects a true double
// start, the check just produces a clean error first.
func (c *RefreshController) Start(ctx context.Context, fleetID string, version entities.BootTemplateVersion, policy entities.RolloutPolicy) (entities.RefreshOperation, error) {
	active, err := c.api.ActiveRefresh(ctx, fleetID)
	if err != nil {
		return entities.RefreshOperation{}, &RefreshStartError{FleetID: fleetID, Reason: "could not check for an active refresh", Err: err}
	}
	if active != nil {
		return entities.RefreshOperation{}, &RefreshStartError{
			FleetID: fleetID,
			Reason:  fmt.Sprintf("refresh %s is already %s", active.ID, active.Status),
		}
	}

	op, err := c.api.StartRefresh(ctx, fleetID, version, policy)
	if err != nil {
		var startErr *RefreshStartError
		if errors.As(err, &startErr) {
			return entities.RefreshOperation{}, err
		}
		return entities.RefreshOperation{}, &RefreshStartError{FleetID: fleetID, Reason: "fleet manager rejected the refresh", Err: err}
	}

	logger.Info("started fleet refresh",
		zap.String("fleetId", fleetID),
		zap.String("refreshId", op.ID),
		zap.Int64("templateVersion", version.Version))
	return op, nil
}

// Poll is a pure read of the refresh status.
func (c *RefreshController) Poll(ctx context.Context, fleetID string, refreshID string) (entities.RefreshStatus, error) {
	return c.api.DescribeRefresh(ctx, fleetID, refreshID)
}

// AwaitTerminal samples the refresh status at pollInterval and returns as
// soon as it is terminal. Once elapsed time exceeds timeoutBudget it
// returns the last observed status together with ErrRefreshTimeout; the
// refresh may still be progressing on the provider side. The call always
// returns within timeoutBudget + pollInterval.
func (c *RefreshController) AwaitTerminal(ctx context.Context, fleetID string, refreshID string, pollInterval, timeoutBudget time.Duration) (entities.RefreshStatus, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if timeoutBudget <= 0 {
		timeoutBudget = DefaultTimeoutBudget
	}

	deadline := time.Now().Add(timeoutBudget)
	for {
		status, err := c.api.DescribeRefresh(ctx, fleetID, refreshID)
		if err != nil {
			return status, fmt.Errorf("poll refresh %s: %w", refreshID, err)
		}
		if status.Terminal() {
			return status, nil
		}
		logger.Info("refresh still in progress",
			zap.String("fleetId", fleetID),
			zap.String("refreshId", refreshID),
			zap.String("status", string(status)))
		if !time.Now().Before(deadline) {
			return status, ErrRefreshTimeout
		}
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
