package entities

import "time"

// BootTemplate is the versioned boot configuration for a fleet. Versions
// are immutable; a deployment always appends a new one.
type BootTemplate struct {
	ID            string
	Name          string
	LatestVersion int64
}

// BootTemplateVersion is one immutable snapshot of boot instructions.
type BootTemplateVersion struct {
	TemplateID string
	Version    int64
	Payload    string
	CreatedAt  time.Time
}

// RolloutPolicy bounds a rolling replacement.
type RolloutPolicy struct {
	MinHealthyPercentage int32
	InstanceWarmup       time.Duration
	SkipMatching         bool
}

// RefreshOperation is a managed rolling replacement of fleet members.
// Status transitions are owned by the fleet manager; we only observe.
type RefreshOperation struct {
	ID              string
	FleetID         string
	TemplateID      string
	TemplateVersion int64
	Policy          RolloutPolicy
	Status          RefreshStatus
	StartedAt       time.Time
}

// HealthProbeResult is consumed only inside the verifier's retry loop.
type HealthProbeResult struct {
	Timestamp time.Time
	Healthy   bool
}
