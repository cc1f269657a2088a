package entities

import (
	"time"

	"github.com/google/uuid"
)

// DeploymentRequest describes one rollout invocation. It is built once
// and never mutated.
type DeploymentRequest struct {
	ArtifactRef string
	Environment Environment
	FleetID     string
	GitBranch   string
	GitCommit   string
}

// DeploymentRecord is the append-only audit artifact persisted once per
// run, whatever the outcome.
type DeploymentRecord struct {
	ID          uuid.UUID
	ArtifactRef string
	Environment Environment
	FleetID     string
	Outcome     Outcome
	Phase       Phase
	Operator    string
	GitBranch   string
	GitCommit   string
	StartedAt   time.Time
	FinishedAt  time.Time
}
