package entities

type Environment string

const (
	EnvironmentStaging    Environment = "staging"
	EnvironmentProduction Environment = "production"
)

// Supported reports whether deployments run in this environment.
// Unsupported environments are skipped, not rejected.
func (e Environment) Supported() bool {
	return e == EnvironmentStaging || e == EnvironmentProduction
}

type RefreshStatus string

const (
	RefreshStatusPending    RefreshStatus = "Pending"
	RefreshStatusInProgress RefreshStatus = "InProgress"
	RefreshStatusSuccessful RefreshStatus = "Successful"
	RefreshStatusFailed     RefreshStatus = "Failed"
	RefreshStatusCancelled  RefreshStatus = "Cancelled"
)

func (s RefreshStatus) Terminal() bool {
	switch s {
	case RefreshStatusSuccessful, RefreshStatusFailed, RefreshStatusCancelled:
		return true
	}
	return false
}

type Outcome string

const (
	OutcomeSuccess  Outcome = "Success"
	OutcomeFailed   Outcome = "Failed"
	OutcomeTimedOut Outcome = "TimedOut"
)

type Phase string

const (
	PhasePublishing      Phase = "Publishing"
	PhaseTemplateUpdate  Phase = "TemplateUpdate"
	PhaseRefreshStarting Phase = "RefreshStarting"
	PhaseRefreshWaiting  Phase = "RefreshWaiting"
	PhaseHealthChecking  Phase = "HealthChecking"
	PhaseRecording       Phase = "Recording"
	PhaseDone            Phase = "Done"
	PhaseAborted         Phase = "Aborted"
)
