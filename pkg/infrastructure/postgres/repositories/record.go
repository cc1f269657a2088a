package repositories

import (
	"context"
	"encoding/json"

	"github.com/taskfleet/deployer-backend/pkg/domain/entities"
	"github.com/taskfleet/deployer-backend/pkg/infrastructure/postgres/schemas"

	"gorm.io/gorm"
)

// DeploymentRecordRepository is the durable postgres sink for deployment
// records, queryable by artifact reference and timestamp.
type DeploymentRecordRepository struct {
	db *gorm.DB
}

func NewDeploymentRecordRepository(db *gorm.DB) *DeploymentRecordRepository {
	return &DeploymentRecordRepository{db: db}
}

// Save implements recorder.Sink.
func (r *DeploymentRecordRepository) Save(ctx context.Context, record entities.DeploymentRecord) error {
	row := toSchema(record)
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *DeploymentRecordRepository) GetRecords(ctx context.Context) ([]*entities.DeploymentRecord, error) {
	var rows []schemas.DeploymentRecord
	err := r.db.WithContext(ctx).Order("started_at DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	records := make([]*entities.DeploymentRecord, 0, len(rows))
	for i := range rows {
		record := toEntity(rows[i])
		records = append(records, &record)
	}
	return records, nil
}

func (r *DeploymentRecordRepository) GetRecordByID(ctx context.Context, id string) (*entities.DeploymentRecord, error) {
	var row schemas.DeploymentRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		return nil, err
	}
	record := toEntity(row)
	return &record, nil
}

func (r *DeploymentRecordRepository) GetRecordsByArtifactRef(ctx context.Context, artifactRef string) ([]*entities.DeploymentRecord, error) {
	var rows []schemas.DeploymentRecord
	err := r.db.WithContext(ctx).
		Where("artifact_ref = ?", artifactRef).
		Order("started_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	records := make([]*entities.DeploymentRecord, 0, len(rows))
	for i := range rows {
		record := toEntity(rows[i])
		records = append(records, &record)
	}
	return records, nil
}

func toSchema(record entities.DeploymentRecord) schemas.DeploymentRecord {
	request, _ := json.Marshal(entities.DeploymentRequest{
		ArtifactRef: record.ArtifactRef,
		Environment: record.Environment,
		FleetID:     record.FleetID,
		GitBranch:   record.GitBranch,
		GitCommit:   record.GitCommit,
	})
	return schemas.DeploymentRecord{
		ID:          record.ID,
		ArtifactRef: record.ArtifactRef,
		Environment: record.Environment,
		FleetID:     record.FleetID,
		Outcome:     record.Outcome,
		Phase:       record.Phase,
		Operator:    record.Operator,
		GitBranch:   record.GitBranch,
		GitCommit:   record.GitCommit,
		Request:     request,
		StartedAt:   record.StartedAt,
		FinishedAt:  record.FinishedAt,
	}
}

func toEntity(row schemas.DeploymentRecord) entities.DeploymentRecord {
	return entities.DeploymentRecord{
		ID:          row.ID,
		ArtifactRef: row.ArtifactRef,
		Environment: row.Environment,
		FleetID:     row.FleetID,
		Outcome:     row.Outcome,
		Phase:       row.Phase,
		Operator:    row.Operator,
		GitBranch:   row.GitBranch,
		GitCommit:   row.GitCommit,
		StartedAt:   row.StartedAt,
		FinishedAt:  row.FinishedAt,
	}
}
