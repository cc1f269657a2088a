package recorder

import (
	"context"
	"time"

	"github.com/taskfleet/deployer-backend/internal/logger"
	"github.com/taskfleet/deployer-backend/pkg/domain/entities"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink is any durable store a deployment record can be written to,
// queryable by artifact reference and timestamp.
type Sink interface {
	Save(ctx context.Context, record entities.DeploymentRecord) error
}

// Recorder persists the audit record of a run. Persistence errors are
// logged and swallowed: losing an audit record must not mask or reverse
// a deployment outcome that has already been determined.
type Recorder struct {
	sink     Sink
	operator string
}

func New(sink Sink, operator string) *Recorder {
	return &Recorder{sink: sink, operator: operator}
}

// Record builds and persists the record for one run. It never fails.
func (r *Recorder) Record(ctx context.Context, req entities.DeploymentRequest, outcome entities.Outcome, phase entities.Phase, startedAt time.Time) entities.DeploymentRecord {
	record := entities.DeploymentRecord{
		ID:          uuid.New(),
		ArtifactRef: req.ArtifactRef,
		Environment: req.Environment,
		FleetID:     req.FleetID,
		Outcome:     outcome,
		Phase:       phase,
		Operator:    r.operator,
		GitBranch:   req.GitBranch,
		GitCommit:   req.GitCommit,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
	}

	if r.sink == nil {
		logger.Warn("no record sink configured, deployment record not persisted",
			zap.String("recordId", record.ID.String()))
		return record
	}
	if err := r.sink.Save(ctx, record); err != nil {
		logger.Error("failed to persist deployment record",
			zap.String("recordId", record.ID.String()),
			zap.String("artifactRef", record.ArtifactRef),
			zap.Error(err))
		return record
	}

	logger.Info("deployment record persisted",
		zap.String("recordId", record.ID.String()),
		zap.String("fleetId", record.FleetID),
		zap.String("outcome", string(record.Outcome)))
	return record
}
