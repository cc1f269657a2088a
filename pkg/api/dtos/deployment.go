package dtos

import (
	"fmt"

	"github.com/taskfleet/deployer-backend/pkg/domain/entities"
)

type DeployRequest struct {
	ArtifactRef string `json:"artifactRef"`
	Environment string `json:"environment"`
	FleetID     string `json:"fleetId"`
	GitBranch   string `json:"gitBranch"`
	GitCommit   string `json:"gitCommit"`
}

func (r *DeployRequest) Validate() error {
	if r.ArtifactRef == "" {
		return fmt.Errorf("artifactRef is required")
	}
	if r.FleetID == "" {
		return fmt.Errorf("fleetId is required")
	}
	if r.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	return nil
}

func (r *DeployRequest) ToEntity() entities.DeploymentRequest {
	return entities.DeploymentRequest{
		ArtifactRef: r.ArtifactRef,
		Environment: entities.Environment(r.Environment),
		FleetID:     r.FleetID,
		GitBranch:   r.GitBranch,
		GitCommit:   r.GitCommit,
	}
}
