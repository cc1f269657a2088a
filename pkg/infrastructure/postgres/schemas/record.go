package schemas

import (
	"time"

	"github.com/taskfleet/deployer-backend/pkg/domain/entities"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type DeploymentRecord struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey;column:id"`
	ArtifactRef string               `gorm:"column:artifact_ref;not null;index"`
	Environment entities.Environment `gorm:"column:environment;not null"`
	FleetID     string               `gorm:"column:fleet_id;not null;index"`
	Outcome     entities.Outcome     `gorm:"column:outcome;not null"`
	Phase       entities.Phase       `gorm:"column:phase;not null"`
	Operator    string               `gorm:"column:operator"`
	GitBranch   string               `gorm:"column:git_branch"`
	GitCommit   string               `gorm:"column:git_commit"`
	Request     datatypes.JSON       `gorm:"type:jsonb;column:request"`
	StartedAt   time.Time            `gorm:"column:started_at;index"`
	FinishedAt  time.Time            `gorm:"column:finished_at"`
	CreatedAt   time.Time            `gorm:"autoCreateTime;column:created_at"`
}

func (DeploymentRecord) TableName() string {
	return "deployment_records"
}
