package services

import (
	"context"

	"github.com/taskfleet/deployer-backend/internal/logger"
	"github.com/taskfleet/deployer-backend/pkg/domain/entities"
	"github.com/taskfleet/deployer-backend/pkg/pipeline"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PipelineRunner interface {
	Run(ctx context.Context, req entities.DeploymentRequest) (pipeline.Result, error)
}

type RecordRepository interface {
	GetRecords(ctx context.Context) ([]*entities.DeploymentRecord, error)
	GetRecordByID(ctx context.Context, id string) (*entities.DeploymentRecord, error)
	GetRecordsByArtifactRef(ctx context.Context, artifactRef string) ([]*entities.DeploymentRecord, error)
}

type TaskManager interface {
	Start()
	AddTask(task entities.Task)
	Stop()
}

// DeploymentService runs rollout pipelines in the background and serves
// the persisted deployment records back out.
type DeploymentService struct {
	runner      PipelineRunner
	records     RecordRepository
	taskManager TaskManager
}

func NewDeploymentService(
	runner PipelineRunner,
	records RecordRepository,
	taskManager TaskManager,
) *DeploymentService {
	srv := &DeploymentService{
		runner:      runner,
		records:     records,
		taskManager: taskManager,
	}

	srv.taskManager.Start()

	return srv
}

// TriggerDeployment enqueues one pipeline run and returns immediately.
// The run id only correlates log lines; the durable audit trail is the
// deployment record the pipeline writes.
func (s *DeploymentService) TriggerDeployment(ctx context.Context, req entities.DeploymentRequest) (uuid.UUID, error) {
	runID := uuid.New()

	logger.Info("deployment queued",
		zap.String("runId", runID.String()),
		zap.String("fleetId", req.FleetID),
		zap.String("artifactRef", req.ArtifactRef))

	// The caller's context dies when the HTTP handler returns; the run
	// outlives the request, so detach cancellation before handing it off.
	runCtx := context.WithoutCancel(ctx)

	s.taskManager.AddTask(func() {
		result, err := s.runner.Run(runCtx, req)
		if err != nil {
			logger.Error("deployment run failed",
				zap.String("runId", runID.String()),
				zap.String("phase", string(result.Phase)),
				zap.Error(err))
			return
		}
		logger.Info("deployment run finished",
			zap.String("runId", runID.String()),
			zap.String("phase", string(result.Phase)),
			zap.String("outcome", string(result.Outcome)),
			zap.Bool("skipped", result.Skipped))
	})

	return runID, nil
}

func (s *DeploymentService) GetRecords(ctx context.Context) ([]*entities.DeploymentRecord, error) {
	return s.records.GetRecords(ctx)
}

func (s *DeploymentService) GetRecordByID(ctx context.Context, id string) (*entities.DeploymentRecord, error) {
	return s.records.GetRecordByID(ctx, id)
}

func (s *DeploymentService) GetRecordsByArtifactRef(ctx context.Context, artifactRef string) ([]*entities.DeploymentRecord, error) {
	return s.records.GetRecordsByArtifactRef(ctx, artifactRef)
}
