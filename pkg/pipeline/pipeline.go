package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/taskfleet/deployer-backend/internal/logger"
	"github.com/taskfleet/deployer-backend/pkg/config"
	"github.com/taskfleet/deployer-backend/pkg/domain/entities"
	"github.com/taskfleet/deployer-backend/pkg/fleet"

	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, req entities.DeploymentRequest) (string, error)
}

type TemplateManager interface {
	EnsureVersion(ctx context.Context, fleetID string, payload string) (entities.BootTemplateVersion, error)
}

type RefreshController interface {
	Start(ctx context.Context, fleetID string, version entities.BootTemplateVersion, policy entities.RolloutPolicy) (entities.RefreshOperation, error)
	AwaitTerminal(ctx context.Context, fleetID string, refreshID string, pollInterval, timeoutBudget time.Duration) (entities.RefreshStatus, error)
}

type HealthVerifier interface {
	Verify(ctx context.Context, endpoint string, maxAttempts int, spacing time.Duration) bool
}

type Recorder interface {
	Record(ctx context.Context, req entities.DeploymentRequest, outcome entities.Outcome, phase entities.Phase, startedAt time.Time) entities.DeploymentRecord
}

type Notifier interface {
	Notify(ctx context.Context, record entities.DeploymentRecord) error
}

// Result is the terminal state of one pipeline run.
type Result struct {
	Phase   entities.Phase
	Outcome entities.Outcome
	Skipped bool
	Record  *entities.DeploymentRecord
}

// Pipeline sequences one rolling deployment: publish artifact, append a
// boot template version, start a fleet refresh, wait for it to settle,
// verify health through the front door, record the outcome, notify.
// Control flows strictly forward; no phase retries a prior phase.
type Pipeline struct {
	cfg       config.Config
	publisher Publisher
	templates TemplateManager
	refreshes RefreshController
	health    HealthVerifier
	recorder  Recorder
	notifier  Notifier
}

func New(
	cfg config.Config,
	publisher Publisher,
	templates TemplateManager,
	refreshes RefreshController,
	health HealthVerifier,
	recorder Recorder,
	notifier Notifier,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		publisher: publisher,
		templates: templates,
		refreshes: refreshes,
		health:    health,
		recorder:  recorder,
		notifier:  notifier,
	}
}

// Run executes the rollout for one request. Fatal errors abort without
// rollback: a refresh already started keeps running on the provider side,
// since interrupting an in-flight rolling replacement is less safe than
// letting it finish.
func (p *Pipeline) Run(ctx context.Context, req entities.DeploymentRequest) (Result, error) {
	var missing []string
	if req.FleetID == "" {
		missing = append(missing, "fleet identifier")
	}
	if req.ArtifactRef == "" {
		missing = append(missing, "artifact reference")
	}
	if p.cfg.HealthEndpoint == "" {
		missing = append(missing, "health endpoint")
	}
	if len(missing) > 0 {
		return Result{Phase: entities.PhaseAborted}, &config.ValidationError{Missing: missing}
	}

	if !req.Environment.Supported() {
		logger.Info("environment not eligible for deployment, skipping",
			zap.String("environment", string(req.Environment)))
		return Result{Phase: entities.PhaseDone, Skipped: true}, nil
	}

	startedAt := time.Now()
	logger.Info("deployment started",
		zap.String("fleetId", req.FleetID),
		zap.String("artifactRef", req.ArtifactRef),
		zap.String("environment", string(req.Environment)))

	// Publishing
	artifactRef, err := p.publisher.Publish(ctx, req)
	if err != nil {
		return p.abort(ctx, req, entities.PhasePublishing, startedAt, err)
	}

	// TemplateUpdate
	payload := fleet.RenderBootPayload(req, artifactRef)
	version, err := p.templates.EnsureVersion(ctx, req.FleetID, payload)
	if err != nil {
		return p.abort(ctx, req, entities.PhaseTemplateUpdate, startedAt, err)
	}

	// RefreshStarting
	op, err := p.refreshes.Start(ctx, req.FleetID, version, p.cfg.Policy())
	if err != nil {
		return p.abort(ctx, req, entities.PhaseRefreshStarting, startedAt, err)
	}

	// RefreshWaiting
	status, err := p.refreshes.AwaitTerminal(ctx, req.FleetID, op.ID, p.cfg.PollInterval, p.cfg.TimeoutBudget)
	if errors.Is(err, fleet.ErrRefreshTimeout) {
		// Not a failure: the refresh may still be progressing. Record the
		// inconclusive outcome and surface a warning.
		logger.Warn("refresh did not settle within the timeout budget",
			zap.String("refreshId", op.ID),
			zap.String("lastStatus", string(status)),
			zap.Duration("budget", p.cfg.TimeoutBudget))
		record := p.finishRecord(ctx, req, entities.OutcomeTimedOut, startedAt)
		return Result{Phase: entities.PhaseDone, Outcome: entities.OutcomeTimedOut, Record: &record}, nil
	}
	if err != nil {
		return p.abort(ctx, req, entities.PhaseRefreshWaiting, startedAt, err)
	}
	if status != entities.RefreshStatusSuccessful {
		return p.abort(ctx, req, entities.PhaseRefreshWaiting, startedAt, &RefreshFailedError{RefreshID: op.ID, Status: status})
	}

	// HealthChecking
	healthy := p.health.Verify(ctx, p.cfg.HealthEndpoint, p.cfg.HealthMaxAttempts, p.cfg.HealthProbeSpacing)
	if !healthy {
		healthErr := &HealthCheckError{Endpoint: p.cfg.HealthEndpoint, Attempts: p.cfg.HealthMaxAttempts}
		if p.cfg.HealthFailClosed {
			record := p.finishRecord(ctx, req, entities.OutcomeFailed, startedAt)
			return Result{Phase: entities.PhaseDone, Outcome: entities.OutcomeFailed, Record: &record}, healthErr
		}
		// Fail-open, matching the legacy pipeline: the rollout already
		// replaced the fleet, so log loudly and keep going.
		logger.Warn("health verification exhausted its attempts, continuing under fail-open policy",
			zap.String("endpoint", p.cfg.HealthEndpoint))
	}

	// Recording
	record := p.finishRecord(ctx, req, entities.OutcomeSuccess, startedAt)

	logger.Info("deployment finished",
		zap.String("fleetId", req.FleetID),
		zap.String("artifactRef", artifactRef),
		zap.String("outcome", string(record.Outcome)))
	return Result{Phase: entities.PhaseDone, Outcome: entities.OutcomeSuccess, Record: &record}, nil
}

// abort records the failed run and returns the absorbing Aborted state.
// One record is written per run regardless of outcome.
func (p *Pipeline) abort(ctx context.Context, req entities.DeploymentRequest, phase entities.Phase, startedAt time.Time, err error) (Result, error) {
	logger.Error("deployment aborted",
		zap.String("phase", string(phase)),
		zap.String("fleetId", req.FleetID),
		zap.Error(err))
	record := p.recorder.Record(ctx, req, entities.OutcomeFailed, phase, startedAt)
	p.notify(ctx, record)
	return Result{Phase: entities.PhaseAborted, Outcome: entities.OutcomeFailed, Record: &record}, &PhaseError{Phase: phase, Err: err}
}

func (p *Pipeline) finishRecord(ctx context.Context, req entities.DeploymentRequest, outcome entities.Outcome, startedAt time.Time) entities.DeploymentRecord {
	record := p.recorder.Record(ctx, req, outcome, entities.PhaseDone, startedAt)
	p.notify(ctx, record)
	return record
}

func (p *Pipeline) notify(ctx context.Context, record entities.DeploymentRecord) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, record); err != nil {
		logger.Warn("deployment notification failed", zap.Error(err))
	}
}
