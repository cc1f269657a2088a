package pipeline

import (
	"fmt"

	"github.com/taskfleet/deployer-backend/pkg/domain/entities"
)

// PhaseError wraps a fatal error with the phase it aborted.
type PhaseError struct {
	Phase entities.Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("deployment aborted in phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// RefreshFailedError is raised when the fleet manager drives the refresh
// to Failed or Cancelled. Both are fatal and treated identically.
type RefreshFailedError struct {
	RefreshID string
	Status    entities.RefreshStatus
}

func (e *RefreshFailedError) Error() string {
	return fmt.Sprintf("refresh %s reached terminal status %s", e.RefreshID, e.Status)
}

// HealthCheckError is raised only under the fail-closed policy, after
// the verifier exhausted its probe attempts.
type HealthCheckError struct {
	Endpoint string
	Attempts int
}

func (e *HealthCheckError) Error() string {
	return fmt.Sprintf("health check against %s exhausted %d attempts", e.Endpoint, e.Attempts)
}
